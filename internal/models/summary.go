package models

import "github.com/sstent/tracksync-go/internal/data"

// Summary holds aggregate statistics for a lap, an activity or an event.
// Distance and duration are always set; every other field is nil unless the
// source supplied it.
type Summary struct {
	TotalDistanceInMeters  float64 `json:"totalDistanceInMeters"`
	TotalDurationInSeconds float64 `json:"totalDurationInSeconds"`

	MaxAltitudeInMeters    *float64 `json:"maxAltitudeInMeters,omitempty"`
	MinAltitudeInMeters    *float64 `json:"minAltitudeInMeters,omitempty"`
	AscentTimeInSeconds    *float64 `json:"ascentTimeInSeconds,omitempty"`
	DescentTimeInSeconds   *float64 `json:"descentTimeInSeconds,omitempty"`
	AscentInMeters         *float64 `json:"ascentInMeters,omitempty"`
	DescentInMeters        *float64 `json:"descentInMeters,omitempty"`
	EPOC                   *float64 `json:"epoc,omitempty"`
	EnergyInCal            *float64 `json:"energyInCal,omitempty"`
	Feeling                *float64 `json:"feeling,omitempty"`
	PeakTrainingEffect     *float64 `json:"peakTrainingEffect,omitempty"`
	PauseDurationInSeconds *float64 `json:"pauseDurationInSeconds,omitempty"`
	RecoveryTimeInSeconds  *float64 `json:"recoveryTimeInSeconds,omitempty"`
	MaxVO2                 *float64 `json:"maxVO2,omitempty"`

	Extremes       map[data.Type]Extremes       `json:"extremes,omitempty"`
	IntensityZones map[data.Type]IntensityZones `json:"intensityZones,omitempty"`
}

// Extremes is the min/avg/max triple reported for one channel.
type Extremes struct {
	Min *float64 `json:"min,omitempty"`
	Avg *float64 `json:"avg,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IntensityZones is the time spent in five effort bands. Zone 1 runs from zero to
// the zone 2 lower limit.
type IntensityZones struct {
	Zone1Duration   float64 `json:"zone1Duration"`
	Zone2Duration   float64 `json:"zone2Duration"`
	Zone2LowerLimit float64 `json:"zone2LowerLimit"`
	Zone3Duration   float64 `json:"zone3Duration"`
	Zone3LowerLimit float64 `json:"zone3LowerLimit"`
	Zone4Duration   float64 `json:"zone4Duration"`
	Zone4LowerLimit float64 `json:"zone4LowerLimit"`
	Zone5Duration   float64 `json:"zone5Duration"`
	Zone5LowerLimit float64 `json:"zone5LowerLimit"`
}

func NewSummary() *Summary {
	return &Summary{
		Extremes:       make(map[data.Type]Extremes),
		IntensityZones: make(map[data.Type]IntensityZones),
	}
}

// Avg returns the average for channel t, if the source reported one.
func (s *Summary) Avg(t data.Type) (float64, bool) {
	return deref(s.Extremes[t].Avg)
}

func (s *Summary) Min(t data.Type) (float64, bool) {
	return deref(s.Extremes[t].Min)
}

func (s *Summary) Max(t data.Type) (float64, bool) {
	return deref(s.Extremes[t].Max)
}

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 {
	return &v
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
