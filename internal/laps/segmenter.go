// Package laps rebuilds contiguous lap ranges from device boundary markers.
package laps

import (
	"time"

	"github.com/sstent/tracksync-go/internal/models"
)

// MarkerKind classifies a raw boundary marker as reported by the device.
type MarkerKind string

const (
	KindAutoLap MarkerKind = "Autolap"
	KindOther   MarkerKind = "Other"
)

// Marker is one device-reported boundary candidate.
type Marker struct {
	Kind    MarkerKind
	LapType models.LapType
	End     time.Time
	Summary *models.Summary
}

func (m Marker) qualifies() bool {
	return m.Kind == KindAutoLap
}

// Segment turns the auto-lap markers into laps [cursor, marker.End), with the
// cursor starting at start and advancing to each marker's end. Other markers are
// ignored. The result is contiguous by construction.
func Segment(start time.Time, markers []Marker) []*models.Lap {
	var out []*models.Lap
	cursor := start
	for _, m := range markers {
		if !m.qualifies() {
			continue
		}
		lapType := m.LapType
		if lapType == "" {
			lapType = models.LapTypeAutoLap
		}
		summary := m.Summary
		if summary == nil {
			summary = models.NewSummary()
		}
		out = append(out, &models.Lap{
			StartDate: cursor,
			EndDate:   m.End,
			Type:      lapType,
			Summary:   summary,
		})
		cursor = m.End
	}
	return out
}
