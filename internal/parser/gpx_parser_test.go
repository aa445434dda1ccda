package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/tracksync-go/internal/data"
)

const testGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="Suunto app" xmlns="http://www.topografix.com/GPX/1/1"
     xmlns:gpxtpx="http://www.garmin.com/xmlschemas/TrackPointExtension/v1">
  <trk>
    <name>Morning run</name>
    <type>Running</type>
    <trkseg>
      <trkpt lat="60.0000" lon="24.0020">
        <ele>15</ele>
        <time>2024-05-01T07:30:20Z</time>
        <extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>150</gpxtpx:hr></gpxtpx:TrackPointExtension></extensions>
      </trkpt>
      <trkpt lat="60.0000" lon="24.0000">
        <ele>10</ele>
        <time>2024-05-01T07:30:00Z</time>
        <extensions><gpxtpx:TrackPointExtension><gpxtpx:hr>130</gpxtpx:hr><gpxtpx:cad>85</gpxtpx:cad></gpxtpx:TrackPointExtension></extensions>
      </trkpt>
      <trkpt lat="60.0000" lon="24.0010">
        <ele>12</ele>
        <time>2024-05-01T07:30:10Z</time>
      </trkpt>
      <trkpt lat="60.0000" lon="24.0030">
        <ele>13</ele>
      </trkpt>
      <trkpt lat="north" lon="24.0040">
        <time>2024-05-01T07:30:30Z</time>
      </trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestGPXParser(t *testing.T) {
	res, err := NewGPXParser().ParseData([]byte(testGPX))
	require.NoError(t, err)
	a := res.Event.FirstActivity()
	require.NotNil(t, a)

	start := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	assert.True(t, a.StartDate.Equal(start))
	assert.True(t, a.EndDate.Equal(start.Add(30*time.Second)))
	assert.Equal(t, "Running", a.Type)
	assert.Equal(t, "Suunto app", a.Creator.Name)
	assert.Empty(t, a.Laps)
	require.Len(t, a.Points, 4)

	first := a.Points[0]
	hr, ok := first.Value(data.HeartRate)
	require.True(t, ok)
	assert.Equal(t, 130.0, hr)
	cad, ok := first.Value(data.Cadence)
	require.True(t, ok)
	assert.Equal(t, 85.0, cad)

	// the last point has no latitude so it adds no distance
	s := a.Summary
	assert.InDelta(t, 111.2, s.TotalDistanceInMeters, 1.0)
	assert.Equal(t, 30.0, s.TotalDurationInSeconds)
	assert.Equal(t, 15.0, *s.MaxAltitudeInMeters)
	assert.Equal(t, 10.0, *s.MinAltitudeInMeters)
	assert.Equal(t, 140.0, *s.Extremes[data.HeartRate].Avg)
	assert.Equal(t, s, res.Event.Summary)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 3, res.Skipped[0].Index)
	assert.Equal(t, "time", res.Skipped[0].Field)
	assert.Equal(t, "lat", res.Skipped[1].Field)
	assert.ErrorIs(t, res.Skipped[1], data.ErrNotNumeric)
}

func TestGPXParserMalformed(t *testing.T) {
	tests := map[string]string{
		"not xml":    "<gpx",
		"wrong root": `<?xml version="1.0"?><kml></kml>`,
		"no trkpt":   `<?xml version="1.0"?><gpx><trk><trkseg></trkseg></trk></gpx>`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewGPXParser().ParseData([]byte(doc))
			var malformedErr *MalformedInputError
			assert.True(t, errors.As(err, &malformedErr))
		})
	}
}
