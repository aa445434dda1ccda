package parser

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/tormoder/fit"

	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/ibi"
	"github.com/sstent/tracksync-go/internal/laps"
	"github.com/sstent/tracksync-go/internal/models"
)

// fitRecordFields decodes the values fitRecordSource extracts from a record message.
// Record values are already in display units.
var fitRecordFields = data.Table{
	{Name: "position_lat", Type: data.Latitude},
	{Name: "position_long", Type: data.Longitude},
	{Name: "altitude", Type: data.Altitude},
	{Name: "heart_rate", Type: data.HeartRate},
	{Name: "cadence", Type: data.Cadence},
	{Name: "power", Type: data.Power},
	{Name: "speed", Type: data.Speed},
	{Name: "temperature", Type: data.Temperature},
	{Name: "distance", Type: data.Distance},
}

var fitLapTypes = map[fit.LapTrigger]models.LapType{
	fit.LapTriggerManual:        models.LapTypeManual,
	fit.LapTriggerDistance:      models.LapTypeDistance,
	fit.LapTriggerPositionLap:   models.LapTypeDistance,
	fit.LapTriggerTime:          models.LapTypeAutoLap,
	fit.LapTriggerPositionStart: models.LapTypeAutoLap,
}

type FITParser struct {
	opts options
}

func NewFITParser(opts ...Option) *FITParser {
	return &FITParser{opts: newOptions(opts)}
}

func (p *FITParser) ParseData(raw []byte) (*Result, error) {
	file, err := fit.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, malformed("", fmt.Errorf("failed to decode FIT file: %w", err))
	}

	activityFile, err := file.Activity()
	if err != nil {
		return nil, malformed("activity", err)
	}
	if len(activityFile.Sessions) == 0 {
		return nil, malformed("session", nil)
	}
	session := activityFile.Sessions[0]

	points, skipped := fitPoints(activityFile.Records)

	start := validTime(session.StartTime)
	if start.IsZero() && len(points) > 0 {
		start = points[0].Date
	}
	if start.IsZero() {
		return nil, malformed("session.start_time", nil)
	}

	activity := models.NewActivity(start, fmt.Sprint(session.Sport))
	activity.Summary = fitSessionSummary(session)
	activity.Creator = fitCreator(file.FileId)
	for _, pt := range points {
		activity.AddPoint(pt)
	}

	event := p.opts.assemble(activity, fitMarkers(activityFile.Laps), fitIBI(activityFile.Hrvs))
	return &Result{Event: event, Skipped: skipped}, nil
}

func fitPoints(records []*fit.RecordMsg) ([]*models.Point, []Skip) {
	var (
		points  = make([]*models.Point, 0, len(records))
		skipped []Skip
	)
	for i, rec := range records {
		if rec == nil {
			continue
		}
		ts := validTime(rec.Timestamp)
		if ts.IsZero() {
			skipped = append(skipped, Skip{Index: i, Field: "timestamp", Reason: fmt.Errorf("invalid timestamp")})
			continue
		}
		point := models.NewPoint(ts)
		values, errs := fitRecordFields.Decode(fitRecordSource(rec))
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

// fitRecordSource collects the valid values of rec. Invalid sentinels are left out
// so the decoding table sees them as absent.
func fitRecordSource(rec *fit.RecordMsg) object {
	src := object{}
	if !rec.PositionLat.Invalid() && !rec.PositionLong.Invalid() {
		src["position_lat"] = rec.PositionLat.Degrees()
		src["position_long"] = rec.PositionLong.Degrees()
	}
	if alt := rec.GetEnhancedAltitudeScaled(); isFinite(alt) {
		src["altitude"] = alt
	} else if alt := rec.GetAltitudeScaled(); isFinite(alt) {
		src["altitude"] = alt
	}
	if rec.HeartRate != math.MaxUint8 {
		src["heart_rate"] = rec.HeartRate
	}
	if rec.Cadence != math.MaxUint8 {
		src["cadence"] = rec.Cadence
	}
	if rec.Power != math.MaxUint16 {
		src["power"] = rec.Power
	}
	if speed := rec.GetEnhancedSpeedScaled(); isFinite(speed) {
		src["speed"] = speed
	} else if speed := rec.GetSpeedScaled(); isFinite(speed) {
		src["speed"] = speed
	}
	if rec.Temperature != math.MaxInt8 {
		src["temperature"] = rec.Temperature
	}
	if dist := rec.GetDistanceScaled(); isFinite(dist) {
		src["distance"] = dist
	}
	return src
}

// fitMarkers turns every FIT lap into a qualifying boundary; the trigger picks the
// lap type.
func fitMarkers(fitLaps []*fit.LapMsg) []laps.Marker {
	markers := make([]laps.Marker, 0, len(fitLaps))
	for _, lap := range fitLaps {
		if lap == nil {
			continue
		}
		end := validTime(lap.Timestamp)
		if end.IsZero() {
			continue
		}
		lapType, ok := fitLapTypes[lap.LapTrigger]
		if !ok {
			lapType = models.LapTypeAutoLap
		}
		markers = append(markers, laps.Marker{
			Kind:    laps.KindAutoLap,
			LapType: lapType,
			End:     end,
			Summary: fitLapSummary(lap),
		})
	}
	return markers
}

// fitIBI flattens the HRV messages; each holds up to five intervals in
// milliseconds.
func fitIBI(hrvs []*fit.HrvMsg) ibi.Series {
	var intervals []float64
	for _, msg := range hrvs {
		if msg == nil {
			continue
		}
		for _, v := range msg.Time {
			if v == math.MaxUint16 {
				continue
			}
			intervals = append(intervals, float64(v))
		}
	}
	if len(intervals) == 0 {
		return nil
	}
	return ibi.FromIntervals(intervals)
}

func fitCreator(id fit.FileIdMsg) models.Creator {
	creator := models.Creator{Name: id.ProductName}
	if creator.Name == "" {
		creator.Name = fmt.Sprint(id.Manufacturer)
	}
	if id.SerialNumber != 0 && id.SerialNumber != math.MaxUint32 {
		creator.SerialNumber = strconv.FormatUint(uint64(id.SerialNumber), 10)
	}
	return creator
}

// fitTotals is the subset of session and lap fields both summaries read.
type fitTotals struct {
	distance, timer, elapsed       float64
	ascent, descent, calories      uint16
	avgHR, maxHR                   uint8
	avgCadence, maxCadence         uint8
	avgPower, maxPower             uint16
	avgSpeed, maxSpeed             float64
	avgTemperature, maxTemperature int8
}

func fitSessionSummary(s *fit.SessionMsg) *models.Summary {
	return fitTotals{
		distance: s.GetTotalDistanceScaled(), timer: s.GetTotalTimerTimeScaled(), elapsed: s.GetTotalElapsedTimeScaled(),
		ascent: s.TotalAscent, descent: s.TotalDescent, calories: s.TotalCalories,
		avgHR: s.AvgHeartRate, maxHR: s.MaxHeartRate,
		avgCadence: s.AvgCadence, maxCadence: s.MaxCadence,
		avgPower: s.AvgPower, maxPower: s.MaxPower,
		avgSpeed: s.GetAvgSpeedScaled(), maxSpeed: s.GetMaxSpeedScaled(),
		avgTemperature: s.AvgTemperature, maxTemperature: s.MaxTemperature,
	}.summary()
}

func fitLapSummary(l *fit.LapMsg) *models.Summary {
	return fitTotals{
		distance: l.GetTotalDistanceScaled(), timer: l.GetTotalTimerTimeScaled(), elapsed: l.GetTotalElapsedTimeScaled(),
		ascent: l.TotalAscent, descent: l.TotalDescent, calories: l.TotalCalories,
		avgHR: l.AvgHeartRate, maxHR: l.MaxHeartRate,
		avgCadence: l.AvgCadence, maxCadence: l.MaxCadence,
		avgPower: l.AvgPower, maxPower: l.MaxPower,
		avgSpeed: l.GetAvgSpeedScaled(), maxSpeed: l.GetMaxSpeedScaled(),
		avgTemperature: l.AvgTemperature, maxTemperature: l.MaxTemperature,
	}.summary()
}

func (t fitTotals) summary() *models.Summary {
	s := models.NewSummary()
	if isFinite(t.distance) {
		s.TotalDistanceInMeters = t.distance
	}
	switch {
	case isFinite(t.elapsed):
		s.TotalDurationInSeconds = t.elapsed
	case isFinite(t.timer):
		s.TotalDurationInSeconds = t.timer
	}
	if isFinite(t.elapsed) && isFinite(t.timer) && t.elapsed > t.timer {
		s.PauseDurationInSeconds = models.Float(t.elapsed - t.timer)
	}
	if t.ascent != math.MaxUint16 {
		s.AscentInMeters = models.Float(float64(t.ascent))
	}
	if t.descent != math.MaxUint16 {
		s.DescentInMeters = models.Float(float64(t.descent))
	}
	if t.calories != math.MaxUint16 {
		s.EnergyInCal = models.Float(float64(t.calories))
	}

	setExtremes(s, data.HeartRate, nil, u8(t.avgHR), u8(t.maxHR))
	setExtremes(s, data.Cadence, nil, u8(t.avgCadence), u8(t.maxCadence))
	setExtremes(s, data.Power, nil, u16(t.avgPower), u16(t.maxPower))
	setExtremes(s, data.Speed, nil, finite(t.avgSpeed), finite(t.maxSpeed))
	setExtremes(s, data.Temperature, nil, i8(t.avgTemperature), i8(t.maxTemperature))
	return s
}

func setExtremes(s *models.Summary, t data.Type, min, avg, max *float64) {
	ext := models.Extremes{Min: min, Avg: avg, Max: max}
	if ext != (models.Extremes{}) {
		s.Extremes[t] = ext
	}
}

func u8(v uint8) *float64 {
	if v == math.MaxUint8 {
		return nil
	}
	return models.Float(float64(v))
}

func u16(v uint16) *float64 {
	if v == math.MaxUint16 {
		return nil
	}
	return models.Float(float64(v))
}

func i8(v int8) *float64 {
	if v == math.MaxInt8 {
		return nil
	}
	return models.Float(float64(v))
}

func finite(v float64) *float64 {
	if !isFinite(v) {
		return nil
	}
	return models.Float(v)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validTime(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}
