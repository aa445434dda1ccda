package parser

import (
	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/models"
)

type summaryField struct {
	name    string
	convert data.Converter
	set     func(s *models.Summary, v float64)
}

var suuntoSummaryFields = []summaryField{
	{"Distance", nil, func(s *models.Summary, v float64) { s.TotalDistanceInMeters = v }},
	{"Duration", nil, func(s *models.Summary, v float64) { s.TotalDurationInSeconds = v }},
	{"AscentTime", nil, func(s *models.Summary, v float64) { s.AscentTimeInSeconds = models.Float(v) }},
	{"DescentTime", nil, func(s *models.Summary, v float64) { s.DescentTimeInSeconds = models.Float(v) }},
	{"Ascent", nil, func(s *models.Summary, v float64) { s.AscentInMeters = models.Float(v) }},
	{"Descent", nil, func(s *models.Summary, v float64) { s.DescentInMeters = models.Float(v) }},
	{"EPOC", nil, func(s *models.Summary, v float64) { s.EPOC = models.Float(v) }},
	{"Energy", data.JoulesToKilocalories, func(s *models.Summary, v float64) { s.EnergyInCal = models.Float(v) }},
	{"Feeling", nil, func(s *models.Summary, v float64) { s.Feeling = models.Float(v) }},
	{"PeakTrainingEffect", nil, func(s *models.Summary, v float64) { s.PeakTrainingEffect = models.Float(v) }},
	{"PauseDuration", nil, func(s *models.Summary, v float64) { s.PauseDurationInSeconds = models.Float(v) }},
	{"RecoveryTime", nil, func(s *models.Summary, v float64) { s.RecoveryTimeInSeconds = models.Float(v) }},
	{"MAXVO2", nil, func(s *models.Summary, v float64) { s.MaxVO2 = models.Float(v) }},
}

// suuntoExtremeBlocks are the {Avg, Max, Min} blocks, each wrapped in a one
// element array in the export.
var suuntoExtremeBlocks = []struct {
	name    string
	typ     data.Type
	convert data.Converter
}{
	{"HR", data.HeartRate, data.RawToBPM},
	{"Cadence", data.Cadence, data.HzToRPM},
	{"Power", data.Power, nil},
	{"Speed", data.Speed, nil},
	{"Temperature", data.Temperature, data.KelvinToCelsius},
	{"VerticalSpeed", data.VerticalSpeed, nil},
}

var suuntoZoneBlocks = []struct {
	name string
	typ  data.Type
}{
	{"HrZones", data.HeartRate},
	{"PowerZones", data.Power},
	{"SpeedZones", data.Speed},
}

// suuntoSummary reads the statistics shared by the Header and by each Window.
// Absent or non-numeric values leave the field unset.
func suuntoSummary(src object) *models.Summary {
	s := models.NewSummary()
	for _, f := range suuntoSummaryFields {
		if v, ok := src.number(f.name); ok {
			f.set(s, convert(f.convert, v))
		}
	}

	if altitude, ok := src.object("Altitude"); ok {
		if v, ok := altitude.number("Max"); ok {
			s.MaxAltitudeInMeters = models.Float(v)
		}
		if v, ok := altitude.number("Min"); ok {
			s.MinAltitudeInMeters = models.Float(v)
		}
	}

	for _, b := range suuntoExtremeBlocks {
		block, ok := src.firstObject(b.name)
		if !ok {
			continue
		}
		var ext models.Extremes
		if v, ok := block.number("Min"); ok {
			ext.Min = models.Float(convert(b.convert, v))
		}
		if v, ok := block.number("Avg"); ok {
			ext.Avg = models.Float(convert(b.convert, v))
		}
		if v, ok := block.number("Max"); ok {
			ext.Max = models.Float(convert(b.convert, v))
		}
		if ext != (models.Extremes{}) {
			s.Extremes[b.typ] = ext
		}
	}

	for _, b := range suuntoZoneBlocks {
		if zones, ok := src.firstObject(b.name); ok {
			s.IntensityZones[b.typ] = suuntoZones(zones)
		}
	}
	return s
}

func suuntoZones(o object) models.IntensityZones {
	get := func(name string) float64 {
		v, _ := o.number(name)
		return v
	}
	return models.IntensityZones{
		Zone1Duration:   get("Zone1Duration"),
		Zone2Duration:   get("Zone2Duration"),
		Zone2LowerLimit: get("Zone2LowerLimit"),
		Zone3Duration:   get("Zone3Duration"),
		Zone3LowerLimit: get("Zone3LowerLimit"),
		Zone4Duration:   get("Zone4Duration"),
		Zone4LowerLimit: get("Zone4LowerLimit"),
		Zone5Duration:   get("Zone5Duration"),
		Zone5LowerLimit: get("Zone5LowerLimit"),
	}
}

// firstObject accepts both a bare object and an array holding one.
func (o object) firstObject(name string) (object, bool) {
	switch v := o[name].(type) {
	case map[string]any:
		return object(v), true
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		m, ok := v[0].(map[string]any)
		return object(m), ok
	default:
		return nil, false
	}
}

func convert(c data.Converter, v float64) float64 {
	if c == nil {
		return v
	}
	return c(v)
}
