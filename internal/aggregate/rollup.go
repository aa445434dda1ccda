// Package aggregate rolls activity summaries up into the event summary.
//
// The event summary is composed from the activity summaries only, never
// recomputed from samples:
//   - distance, duration, ascent/descent, ascent/descent time, energy and pause
//     duration are summed
//   - per channel, the event min is the smallest activity min and the event max
//     the largest activity max
//   - per channel, the event avg is the duration-weighted mean of the activity
//     avgs, or their plain mean when only one activity reports it or none of the
//     reporting activities has a duration
//   - EPOC, peak training effect, recovery time and max VO2 take the maximum;
//     feeling keeps the first reported value
//   - intensity zone durations are summed per channel; zone limits come from the
//     first activity reporting that channel
//
// Fields no activity reported stay unset. For a single activity the event
// summary equals the activity summary on every rolled-up field.
package aggregate

import (
	"sort"

	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/models"
)

// RollUp replaces event.Summary with the roll-up of its activities' summaries.
func RollUp(event *models.Event) *models.Summary {
	summaries := make([]*models.Summary, 0, len(event.Activities))
	for _, a := range event.Activities {
		if a.Summary != nil {
			summaries = append(summaries, a.Summary)
		}
	}
	event.Summary = Combine(summaries...)
	return event.Summary
}

// Combine merges summaries with the policy described in the package doc.
func Combine(summaries ...*models.Summary) *models.Summary {
	out := models.NewSummary()
	for _, s := range summaries {
		out.TotalDistanceInMeters += s.TotalDistanceInMeters
		out.TotalDurationInSeconds += s.TotalDurationInSeconds
		out.AscentInMeters = sum(out.AscentInMeters, s.AscentInMeters)
		out.DescentInMeters = sum(out.DescentInMeters, s.DescentInMeters)
		out.AscentTimeInSeconds = sum(out.AscentTimeInSeconds, s.AscentTimeInSeconds)
		out.DescentTimeInSeconds = sum(out.DescentTimeInSeconds, s.DescentTimeInSeconds)
		out.EnergyInCal = sum(out.EnergyInCal, s.EnergyInCal)
		out.PauseDurationInSeconds = sum(out.PauseDurationInSeconds, s.PauseDurationInSeconds)
		out.MaxAltitudeInMeters = pick(out.MaxAltitudeInMeters, s.MaxAltitudeInMeters, greater)
		out.MinAltitudeInMeters = pick(out.MinAltitudeInMeters, s.MinAltitudeInMeters, less)
		out.EPOC = pick(out.EPOC, s.EPOC, greater)
		out.PeakTrainingEffect = pick(out.PeakTrainingEffect, s.PeakTrainingEffect, greater)
		out.RecoveryTimeInSeconds = pick(out.RecoveryTimeInSeconds, s.RecoveryTimeInSeconds, greater)
		out.MaxVO2 = pick(out.MaxVO2, s.MaxVO2, greater)
		if out.Feeling == nil && s.Feeling != nil {
			out.Feeling = models.Float(*s.Feeling)
		}
		for t, z := range s.IntensityZones {
			acc, ok := out.IntensityZones[t]
			if !ok {
				out.IntensityZones[t] = z
				continue
			}
			acc.Zone1Duration += z.Zone1Duration
			acc.Zone2Duration += z.Zone2Duration
			acc.Zone3Duration += z.Zone3Duration
			acc.Zone4Duration += z.Zone4Duration
			acc.Zone5Duration += z.Zone5Duration
			out.IntensityZones[t] = acc
		}
	}

	for _, t := range channelsOf(summaries) {
		var (
			ext      models.Extremes
			weighted float64
			weights  float64
			plain    float64
			avgCount int
		)
		for _, s := range summaries {
			e, ok := s.Extremes[t]
			if !ok {
				continue
			}
			ext.Min = pick(ext.Min, e.Min, less)
			ext.Max = pick(ext.Max, e.Max, greater)
			if e.Avg != nil {
				weighted += *e.Avg * s.TotalDurationInSeconds
				weights += s.TotalDurationInSeconds
				plain += *e.Avg
				avgCount++
			}
		}
		switch {
		case avgCount > 1 && weights > 0:
			ext.Avg = models.Float(weighted / weights)
		case avgCount > 0:
			ext.Avg = models.Float(plain / float64(avgCount))
		}
		out.Extremes[t] = ext
	}
	return out
}

// channelsOf lists the channels with extremes, ordered by tag.
func channelsOf(summaries []*models.Summary) []data.Type {
	seen := make(map[data.Type]bool)
	var out []data.Type
	for _, s := range summaries {
		for t := range s.Extremes {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sum(acc, v *float64) *float64 {
	if v == nil {
		return acc
	}
	if acc == nil {
		return models.Float(*v)
	}
	return models.Float(*acc + *v)
}

func less(a, b float64) bool    { return a < b }
func greater(a, b float64) bool { return a > b }

func pick(acc, v *float64, better func(a, b float64) bool) *float64 {
	if v == nil {
		return acc
	}
	if acc == nil || better(*v, *acc) {
		return models.Float(*v)
	}
	return acc
}
