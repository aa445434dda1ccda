package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/ibi"
	"github.com/sstent/tracksync-go/internal/laps"
	"github.com/sstent/tracksync-go/internal/models"
)

// suuntoSampleFields is the decoding table for one entry of DeviceLog.Samples.
var suuntoSampleFields = data.Table{
	{Name: "HR", Type: data.HeartRate, Convert: data.RawToBPM},
	{Name: "GPSAltitude", Type: data.GPSAltitude},
	{Name: "Latitude", Type: data.Latitude, Convert: data.RadiansToDegrees},
	{Name: "Longitude", Type: data.Longitude, Convert: data.RadiansToDegrees},
	{Name: "AbsPressure", Type: data.AbsolutePressure, Convert: data.PascalToKilopascal},
	{Name: "SeaLevelPressure", Type: data.SeaLevelPressure, Convert: data.PascalToKilopascal},
	{Name: "Altitude", Type: data.Altitude},
	{Name: "Cadence", Type: data.Cadence, Convert: data.HzToRPM},
	{Name: "Power", Type: data.Power},
	{Name: "Speed", Type: data.Speed},
	{Name: "Temperature", Type: data.Temperature, Convert: data.KelvinToCelsius},
	{Name: "VerticalSpeed", Type: data.VerticalSpeed},
	{Name: "EHPE", Type: data.EHPE},
	{Name: "EVPE", Type: data.EVPE},
	{Name: "NumberOfSatellites", Type: data.NumberOfSatellites},
	{Name: "Satellite5BestSNR", Type: data.Satellite5BestSNR},
}

// suuntoExclusionMarkers drop a sample from the point stream when truthy.
var suuntoExclusionMarkers = []string{"Debug", "Events"}

const suuntoAutoLapWindow = "Autolap"

// SuuntoJSONParser decodes the Suunto app JSON export (a DeviceLog document).
type SuuntoJSONParser struct {
	opts options
}

func NewSuuntoJSONParser(opts ...Option) *SuuntoJSONParser {
	return &SuuntoJSONParser{opts: newOptions(opts)}
}

func (p *SuuntoJSONParser) ParseData(raw []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, malformed("", err)
	}

	deviceLog, ok := object(root).object("DeviceLog")
	if !ok {
		return nil, malformed("DeviceLog", nil)
	}
	header, ok := deviceLog.object("Header")
	if !ok {
		return nil, malformed("Header", nil)
	}
	device, ok := deviceLog.object("Device")
	if !ok {
		return nil, malformed("Device", nil)
	}
	samples, ok := deviceLog.array("Samples")
	if !ok {
		return nil, malformed("Samples", nil)
	}

	start, err := parseSuuntoTime(header.string("DateTime"))
	if err != nil {
		return nil, malformed("Header.DateTime", err)
	}

	activityType := unknownActivityType
	if id, ok := header.number("ActivityType"); ok {
		activityType = ActivityType(int(id))
	}

	activity := models.NewActivity(start, activityType)
	activity.Summary = suuntoSummary(header)
	activity.Creator = suuntoCreator(device)

	points, skipped := suuntoPoints(samples)
	for _, pt := range points {
		activity.AddPoint(pt)
	}

	event := p.opts.assemble(activity, suuntoMarkers(deviceLog), suuntoIBI(deviceLog))
	return &Result{Event: event, Skipped: skipped}, nil
}

func suuntoCreator(device object) models.Creator {
	creator := models.Creator{
		Name:         DeviceModel(device.string("Name")),
		SerialNumber: device.string("SerialNumber"),
	}
	if info, ok := device.object("Info"); ok {
		creator.HWInfo = info.string("HW")
		creator.SWInfo = info.string("SW")
	}
	return creator
}

// suuntoPoints creates one point per sample. Samples with an exclusion marker or
// an unreadable timestamp are dropped; unconvertible fields are dropped alone.
func suuntoPoints(samples []any) ([]*models.Point, []Skip) {
	var (
		points  = make([]*models.Point, 0, len(samples))
		skipped []Skip
	)
	for i, raw := range samples {
		m, ok := raw.(map[string]any)
		if !ok {
			skipped = append(skipped, Skip{Index: i, Reason: fmt.Errorf("sample is %T, not an object", raw)})
			continue
		}
		sample := object(m)
		if marker, excluded := sample.excluded(); excluded {
			skipped = append(skipped, Skip{Index: i, Reason: fmt.Errorf("%w: %s", ErrExcludedSample, marker)})
			continue
		}
		ts, err := parseSuuntoTime(sample.string("TimeISO8601"))
		if err != nil {
			skipped = append(skipped, Skip{Index: i, Field: "TimeISO8601", Reason: err})
			continue
		}

		point := models.NewPoint(ts)
		values, errs := suuntoSampleFields.Decode(sample)
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

// suuntoMarkers reads DeviceLog.Windows. Windows whose end time cannot be read
// cannot bound a lap and are left out.
func suuntoMarkers(deviceLog object) []laps.Marker {
	windows, _ := deviceLog.array("Windows")
	markers := make([]laps.Marker, 0, len(windows))
	for _, raw := range windows {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		window, ok := object(entry).object("Window")
		if !ok {
			continue
		}
		end, err := parseSuuntoTime(window.string("TimeISO8601"))
		if err != nil {
			continue
		}
		kind := laps.KindOther
		if window.string("Type") == suuntoAutoLapWindow {
			kind = laps.KindAutoLap
		}
		markers = append(markers, laps.Marker{
			Kind:    kind,
			LapType: models.LapTypeAutoLap,
			End:     end,
			Summary: suuntoSummary(window),
		})
	}
	return markers
}

// suuntoIBI reads the R-R block. Entries that are not numbers are ignored.
func suuntoIBI(deviceLog object) ibi.Series {
	rr, ok := deviceLog.object("R-R")
	if !ok {
		return nil
	}
	values, ok := rr.array("Data")
	if !ok {
		return nil
	}
	intervals := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := data.ToFloat(v)
		if err != nil {
			continue
		}
		intervals = append(intervals, f)
	}
	if len(intervals) == 0 {
		return nil
	}
	return ibi.FromIntervals(intervals)
}

var suuntoTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// parseSuuntoTime accepts RFC 3339 timestamps; a timestamp without zone is UTC.
func parseSuuntoTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	var err error
	for _, layout := range suuntoTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// object is a decoded JSON object with numbers kept as json.Number.
type object map[string]any

func (o object) Lookup(name string) (any, bool) {
	v, ok := o[name]
	return v, ok
}

func (o object) object(name string) (object, bool) {
	m, ok := o[name].(map[string]any)
	return object(m), ok
}

func (o object) array(name string) ([]any, bool) {
	a, ok := o[name].([]any)
	return a, ok
}

func (o object) number(name string) (float64, bool) {
	v, ok := o[name]
	if !ok || v == nil {
		return 0, false
	}
	f, err := data.ToFloat(v)
	return f, err == nil
}

func (o object) string(name string) string {
	switch v := o[name].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func (o object) excluded() (string, bool) {
	for _, name := range suuntoExclusionMarkers {
		if truthy(o[name]) {
			return name, true
		}
	}
	return "", false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}
