package laps

import (
	"github.com/golang/geo/s2"

	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/models"
)

const earthRadiusMeters = 6371000.0

// Track is the position stream recorded inside one lap.
type Track struct {
	Lap        *models.Lap
	Latitudes  []float64
	Longitudes []float64
}

// Distance is the great-circle length of the track in meters.
func (t Track) Distance() float64 {
	var total float64
	for i := 1; i < len(t.Latitudes); i++ {
		p1 := s2.LatLngFromDegrees(t.Latitudes[i-1], t.Longitudes[i-1])
		p2 := s2.LatLngFromDegrees(t.Latitudes[i], t.Longitudes[i])
		total += p1.Distance(p2).Radians() * earthRadiusMeters
	}
	return total
}

// Project splits the positions of points into one track per lap. Points and laps
// must both be ordered by time; the points are walked once, so the cost is linear
// in points plus laps. Points carrying only one coordinate are skipped.
func Project(points []*models.Point, laps []*models.Lap) []Track {
	tracks := make([]Track, len(laps))
	for i, l := range laps {
		tracks[i].Lap = l
	}
	li := 0
	for _, p := range points {
		for li < len(laps) && !p.Date.Before(laps[li].EndDate) {
			li++
		}
		if li == len(laps) {
			break
		}
		if p.Date.Before(laps[li].StartDate) {
			continue
		}
		lat, okLat := p.Value(data.Latitude)
		lng, okLng := p.Value(data.Longitude)
		if !okLat || !okLng {
			continue
		}
		tracks[li].Latitudes = append(tracks[li].Latitudes, lat)
		tracks[li].Longitudes = append(tracks[li].Longitudes, lng)
	}
	return tracks
}

// FillDistances sets the distance of laps whose summary reports none from the
// positions recorded inside them. Device-reported distances are kept.
func FillDistances(points []*models.Point, laps []*models.Lap) {
	for _, tr := range Project(points, laps) {
		if tr.Lap.Summary == nil {
			tr.Lap.Summary = models.NewSummary()
		}
		if tr.Lap.Summary.TotalDistanceInMeters == 0 && len(tr.Latitudes) > 1 {
			tr.Lap.Summary.TotalDistanceInMeters = tr.Distance()
		}
	}
}
