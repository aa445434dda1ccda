package parser

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/laps"
	"github.com/sstent/tracksync-go/internal/models"
)

// gpxPointFields decodes the source gpxPointSource builds for a <trkpt>.
var gpxPointFields = data.Table{
	{Name: "lat", Type: data.Latitude},
	{Name: "lon", Type: data.Longitude},
	{Name: "ele", Type: data.Altitude},
	{Name: "hr", Type: data.HeartRate},
	{Name: "cad", Type: data.Cadence},
	{Name: "atemp", Type: data.Temperature},
}

// GPXParser reads GPX 1.1 tracks. GPX carries no laps and no beat intervals.
type GPXParser struct {
	opts options
}

func NewGPXParser(opts ...Option) *GPXParser {
	return &GPXParser{opts: newOptions(opts)}
}

func (p *GPXParser) ParseData(raw []byte) (*Result, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, malformed("", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "gpx" {
		return nil, malformed("gpx", nil)
	}

	points, skipped := gpxPoints(root.FindElements("//trkpt"))
	if len(points) == 0 {
		return nil, malformed("trkpt", fmt.Errorf("no timestamped track points"))
	}

	activityType := unknownActivityType
	if el := root.FindElement("//trk/type"); el != nil && strings.TrimSpace(el.Text()) != "" {
		activityType = strings.TrimSpace(el.Text())
	}

	activity := models.NewActivity(time.Time{}, activityType)
	activity.Creator = models.Creator{Name: root.SelectAttrValue("creator", "")}
	for _, pt := range points {
		activity.AddPoint(pt)
	}
	activity.SortPointsByDate()
	activity.StartDate = activity.StartPoint().Date
	activity.Summary = gpxSummary(activity.Points)

	event := p.opts.assemble(activity, nil, nil)
	return &Result{Event: event, Skipped: skipped}, nil
}

func gpxPoints(elements []*etree.Element) ([]*models.Point, []Skip) {
	var (
		points  = make([]*models.Point, 0, len(elements))
		skipped []Skip
	)
	for i, el := range elements {
		timeEl := el.SelectElement("time")
		if timeEl == nil {
			skipped = append(skipped, Skip{Index: i, Field: "time", Reason: fmt.Errorf("missing timestamp")})
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(timeEl.Text()))
		if err != nil {
			skipped = append(skipped, Skip{Index: i, Field: "time", Reason: err})
			continue
		}
		point := models.NewPoint(ts)
		values, errs := gpxPointFields.Decode(gpxPointSource(el))
		for _, v := range values {
			_ = point.AddData(v)
		}
		for _, fe := range errs {
			skipped = append(skipped, Skip{Index: i, Field: fe.Field, Reason: fe.Err})
		}
		points = append(points, point)
	}
	return points, skipped
}

// gpxPointSource gathers the attributes and child values of one <trkpt>. Extension
// values (hr, cad, atemp) are matched by local name under any namespace prefix.
func gpxPointSource(el *etree.Element) object {
	src := object{}
	for _, name := range []string{"lat", "lon"} {
		if attr := el.SelectAttr(name); attr != nil {
			src[name] = attr.Value
		}
	}
	if ele := el.SelectElement("ele"); ele != nil {
		src["ele"] = ele.Text()
	}
	if ext := el.SelectElement("extensions"); ext != nil {
		for _, name := range []string{"hr", "cad", "atemp"} {
			if v := ext.FindElement(".//" + name); v != nil {
				src[name] = v.Text()
			}
		}
	}
	return src
}

// gpxSummary derives distance, duration and channel extremes from the points,
// which must be sorted.
func gpxSummary(points []*models.Point) *models.Summary {
	s := models.NewSummary()
	if len(points) == 0 {
		return s
	}
	s.TotalDurationInSeconds = points[len(points)-1].Date.Sub(points[0].Date).Seconds()

	var track laps.Track
	for _, pt := range points {
		lat, okLat := pt.Value(data.Latitude)
		lng, okLng := pt.Value(data.Longitude)
		if okLat && okLng {
			track.Latitudes = append(track.Latitudes, lat)
			track.Longitudes = append(track.Longitudes, lng)
		}
	}
	s.TotalDistanceInMeters = track.Distance()

	if min, max, ok := valueRange(points, data.Altitude); ok {
		s.MinAltitudeInMeters = models.Float(min)
		s.MaxAltitudeInMeters = models.Float(max)
	}
	for _, t := range []data.Type{data.HeartRate, data.Cadence, data.Temperature} {
		if ext, ok := pointExtremes(points, t); ok {
			s.Extremes[t] = ext
		}
	}
	return s
}

func valueRange(points []*models.Point, t data.Type) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, pt := range points {
		v, has := pt.Value(t)
		if !has {
			continue
		}
		ok = true
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	return min, max, ok
}

func pointExtremes(points []*models.Point, t data.Type) (models.Extremes, bool) {
	min, max, ok := valueRange(points, t)
	if !ok {
		return models.Extremes{}, false
	}
	var sum float64
	var n int
	for _, pt := range points {
		if v, has := pt.Value(t); has {
			sum += v
			n++
		}
	}
	return models.Extremes{
		Min: models.Float(min),
		Avg: models.Float(sum / float64(n)),
		Max: models.Float(max),
	}, true
}
