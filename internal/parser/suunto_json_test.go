package parser

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/tracksync-go/internal/data"
	"github.com/sstent/tracksync-go/internal/ibi"
	"github.com/sstent/tracksync-go/internal/models"
)

var suuntoStart = time.Date(2018, 3, 4, 9, 0, 0, 0, time.UTC)

func suuntoTime(offset time.Duration) string {
	return suuntoStart.Add(offset).Format("2006-01-02T15:04:05.000Z07:00")
}

// suuntoDoc builds a minimal valid export; edit adjusts the DeviceLog before encoding.
func suuntoDoc(t *testing.T, edit func(log map[string]any)) []byte {
	t.Helper()
	log := map[string]any{
		"Header": map[string]any{
			"DateTime":     suuntoTime(0),
			"ActivityType": 3,
			"Distance":     1000,
			"Duration":     300,
		},
		"Device": map[string]any{
			"Name":         "Amsterdam",
			"SerialNumber": "1234567",
			"Info":         map[string]any{"HW": "A", "SW": "2.0.12"},
		},
		"Samples": []any{},
	}
	if edit != nil {
		edit(log)
	}
	raw, err := json.Marshal(map[string]any{"DeviceLog": log})
	require.NoError(t, err)
	return raw
}

func parseSuunto(t *testing.T, raw []byte, opts ...Option) *Result {
	t.Helper()
	res, err := NewSuuntoJSONParser(opts...).ParseData(raw)
	require.NoError(t, err)
	require.Len(t, res.Event.Activities, 1)
	return res
}

func TestSuuntoHeaderOnly(t *testing.T) {
	res := parseSuunto(t, suuntoDoc(t, nil))
	a := res.Event.FirstActivity()

	assert.Equal(t, 1000.0, res.Event.Summary.TotalDistanceInMeters)
	assert.Equal(t, 300.0, res.Event.Summary.TotalDurationInSeconds)
	_, ok := res.Event.Summary.Avg(data.HeartRate)
	assert.False(t, ok)

	assert.True(t, a.StartDate.Equal(suuntoStart))
	assert.True(t, a.EndDate.Equal(suuntoStart.Add(300*time.Second)))
	assert.Empty(t, a.Points)
	assert.Empty(t, a.Laps)
	assert.Empty(t, res.Skipped)
	assert.NotEmpty(t, res.Event.ID)
}

func TestSuuntoLookups(t *testing.T) {
	a := parseSuunto(t, suuntoDoc(t, nil)).Event.FirstActivity()
	assert.Equal(t, "Running", a.Type)
	assert.Equal(t, models.Creator{Name: "Spartan Ultra", SerialNumber: "1234567", HWInfo: "A", SWInfo: "2.0.12"}, a.Creator)

	a = parseSuunto(t, suuntoDoc(t, func(log map[string]any) {
		log["Header"].(map[string]any)["ActivityType"] = 999
		log["Device"].(map[string]any)["Name"] = "Tokyo"
	})).Event.FirstActivity()
	assert.Equal(t, "Unknown", a.Type)
	assert.Equal(t, "Tokyo", a.Creator.Name)
}

func TestSuuntoSamplesConvertUnits(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		log["Samples"] = []any{
			map[string]any{
				"TimeISO8601": suuntoTime(2 * time.Second),
				"HR":          2.5,
				"Latitude":    1.0,
				"Temperature": 300,
				"AbsPressure": 101325,
				"Cadence":     1.5,
				"Speed":       3.25,
			},
			map[string]any{"TimeISO8601": suuntoTime(time.Second), "Altitude": 12},
		}
	})
	a := parseSuunto(t, raw).Event.FirstActivity()
	require.Len(t, a.Points, 2)

	// sorted by date
	first, second := a.Points[0], a.Points[1]
	assert.True(t, first.Date.Equal(suuntoStart.Add(time.Second)))
	alt, ok := first.Value(data.Altitude)
	require.True(t, ok)
	assert.Equal(t, 12.0, alt)

	expect := map[data.Type]float64{
		data.HeartRate:        150,
		data.Temperature:      26.85,
		data.AbsolutePressure: 101.325,
		data.Cadence:          180,
		data.Speed:            3.25,
	}
	for typ, want := range expect {
		got, ok := second.Value(typ)
		require.True(t, ok, typ)
		assert.InDelta(t, want, got, 1e-9, typ)
	}
	lat, _ := second.Value(data.Latitude)
	assert.InDelta(t, 57.29577951, lat, 1e-6)
	assert.Equal(t, 6, second.Len())
	assert.True(t, a.EndDate.Equal(second.Date))
}

func TestSuuntoExclusionMarkers(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		log["Samples"] = []any{
			map[string]any{"TimeISO8601": suuntoTime(time.Second), "HR": 2},
			map[string]any{"TimeISO8601": suuntoTime(2 * time.Second), "Events": []any{map[string]any{"Lap": 1}}},
			map[string]any{"TimeISO8601": suuntoTime(3 * time.Second), "Debug": "battery"},
			map[string]any{"TimeISO8601": suuntoTime(4 * time.Second), "Debug": nil, "HR": 2},
		}
	})
	res := parseSuunto(t, raw)
	assert.Len(t, res.Event.FirstActivity().Points, 2)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 1, res.Skipped[0].Index)
	assert.Equal(t, 2, res.Skipped[1].Index)
	for _, s := range res.Skipped {
		assert.ErrorIs(t, s, ErrExcludedSample)
		assert.ErrorIs(t, s, ErrSampleSkipped)
	}
}

func TestSuuntoFieldFailureKeepsSample(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		log["Samples"] = []any{
			map[string]any{"TimeISO8601": suuntoTime(time.Second), "HR": "n/a", "Altitude": 40},
			map[string]any{"TimeISO8601": "yesterday", "HR": 2},
		}
	})
	res := parseSuunto(t, raw)
	points := res.Event.FirstActivity().Points
	require.Len(t, points, 1)
	_, hasHR := points[0].Value(data.HeartRate)
	assert.False(t, hasHR)
	_, hasAlt := points[0].Value(data.Altitude)
	assert.True(t, hasAlt)

	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "HR", res.Skipped[0].Field)
	assert.ErrorIs(t, res.Skipped[0], data.ErrNotNumeric)
	assert.Equal(t, "TimeISO8601", res.Skipped[1].Field)
	assert.Equal(t, 1, res.Skipped[1].Index)
}

func TestSuuntoAutoLaps(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		log["Windows"] = []any{
			map[string]any{"Window": map[string]any{"Type": "Autolap", "TimeISO8601": suuntoTime(60 * time.Second), "Distance": 250}},
			map[string]any{"Window": map[string]any{"Type": "Move", "TimeISO8601": suuntoTime(90 * time.Second)}},
			map[string]any{"Window": map[string]any{"Type": "Autolap", "TimeISO8601": suuntoTime(120 * time.Second), "Distance": 260}},
		}
	})
	laps := parseSuunto(t, raw).Event.FirstActivity().Laps
	require.Len(t, laps, 2)

	assert.True(t, laps[0].StartDate.Equal(suuntoStart))
	assert.True(t, laps[0].EndDate.Equal(suuntoStart.Add(60*time.Second)))
	assert.True(t, laps[1].StartDate.Equal(laps[0].EndDate))
	assert.True(t, laps[1].EndDate.Equal(suuntoStart.Add(120*time.Second)))
	assert.Equal(t, models.LapTypeAutoLap, laps[0].Type)
	assert.Equal(t, 250.0, laps[0].Summary.TotalDistanceInMeters)
	assert.Equal(t, 260.0, laps[1].Summary.TotalDistanceInMeters)
}

func TestSuuntoLapDistanceFromPositions(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		log["Samples"] = []any{
			map[string]any{"TimeISO8601": suuntoTime(10 * time.Second), "Latitude": 0, "Longitude": 0},
			map[string]any{"TimeISO8601": suuntoTime(20 * time.Second), "Latitude": 0, "Longitude": 0.0001},
		}
		log["Windows"] = []any{
			map[string]any{"Window": map[string]any{"Type": "Autolap", "TimeISO8601": suuntoTime(60 * time.Second)}},
		}
	})
	laps := parseSuunto(t, raw).Event.FirstActivity().Laps
	require.Len(t, laps, 1)
	// 0.0001 rad along the equator
	assert.InDelta(t, 637.1, laps[0].Summary.TotalDistanceInMeters, 1e-3)
}

func TestSuuntoHeaderSummary(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		h := log["Header"].(map[string]any)
		h["Energy"] = 1000000
		h["Altitude"] = map[string]any{"Max": 210, "Min": 180}
		h["Ascent"] = 55
		h["Feeling"] = 4
		h["MAXVO2"] = 48.5
		h["HR"] = []any{map[string]any{"Avg": 2.5, "Max": 3, "Min": 1.5}}
		h["Temperature"] = []any{map[string]any{"Avg": 293.15}}
		h["HrZones"] = map[string]any{"Zone1Duration": 10, "Zone2Duration": 20, "Zone2LowerLimit": 2}
	})
	res := parseSuunto(t, raw)
	s := res.Event.FirstActivity().Summary

	assert.InDelta(t, 239.0, *s.EnergyInCal, 1e-9)
	assert.Equal(t, 210.0, *s.MaxAltitudeInMeters)
	assert.Equal(t, 180.0, *s.MinAltitudeInMeters)
	assert.Equal(t, 55.0, *s.AscentInMeters)
	assert.Equal(t, 4.0, *s.Feeling)
	assert.Equal(t, 48.5, *s.MaxVO2)
	assert.Nil(t, s.DescentInMeters)

	hr := s.Extremes[data.HeartRate]
	assert.Equal(t, 150.0, *hr.Avg)
	assert.Equal(t, 180.0, *hr.Max)
	assert.Equal(t, 90.0, *hr.Min)
	temp := s.Extremes[data.Temperature]
	assert.InDelta(t, 20.0, *temp.Avg, 1e-9)
	assert.Nil(t, temp.Max)

	zones := s.IntensityZones[data.HeartRate]
	assert.Equal(t, 20.0, zones.Zone2Duration)
	assert.Equal(t, 2.0, zones.Zone2LowerLimit)

	assert.Equal(t, s, res.Event.Summary)
}

func TestSuuntoBeatIntervals(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		log["Header"].(map[string]any)["Duration"] = 0
		log["R-R"] = map[string]any{"Data": []any{1000, 1000, 500}}
	})
	a := parseSuunto(t, raw, WithIBIPipeline(ibi.Pipeline{})).Event.FirstActivity()

	assert.Equal(t, []float64{1000, 1000, 500}, a.IBI.Intervals())
	require.Len(t, a.Points, 3)
	wantOffsets := []time.Duration{time.Second, 2 * time.Second, 2500 * time.Millisecond}
	wantBPM := []float64{60, 60, 120}
	for i, p := range a.Points {
		assert.True(t, p.Date.Equal(suuntoStart.Add(wantOffsets[i])))
		bpm, ok := p.Value(data.HeartRate)
		require.True(t, ok)
		assert.Equal(t, wantBPM[i], bpm)
	}
	assert.True(t, a.EndDate.Equal(suuntoStart.Add(2500*time.Millisecond)))
}

func TestSuuntoBeatIntervalsKeepRecordedSeries(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		log["R-R"] = map[string]any{"Data": []any{800, 3000, 810, 100, 790}}
	})
	a := parseSuunto(t, raw).Event.FirstActivity()
	assert.Equal(t, []float64{800, 3000, 810, 100, 790}, a.IBI.Intervals())

	// 3000 ms (20 bpm) and 100 ms (600 bpm) fall outside the limits; the rest is
	// smoothed to 800, 805, 797.5 and the clipped median is 800 ms for every beat
	require.Len(t, a.Points, 3)
	wantOffsets := []time.Duration{800 * time.Millisecond, 4610 * time.Millisecond, 5500 * time.Millisecond}
	for i, p := range a.Points {
		assert.True(t, p.Date.Equal(suuntoStart.Add(wantOffsets[i])), p.Date)
		bpm, ok := p.Value(data.HeartRate)
		require.True(t, ok)
		assert.Equal(t, 75.0, bpm)
	}
	assert.True(t, a.EndDate.Equal(suuntoStart.Add(5500*time.Millisecond)))
}

func TestSuuntoBeatOnSampleInstantIsSeparatePoint(t *testing.T) {
	raw := suuntoDoc(t, func(log map[string]any) {
		log["Samples"] = []any{
			map[string]any{"TimeISO8601": suuntoTime(time.Second), "HR": 2.5},
		}
		log["R-R"] = map[string]any{"Data": []any{1000}}
	})
	a := parseSuunto(t, raw, WithIBIPipeline(ibi.Pipeline{})).Event.FirstActivity()

	require.Len(t, a.Points, 2)
	var rates []float64
	for _, p := range a.Points {
		assert.True(t, p.Date.Equal(suuntoStart.Add(time.Second)))
		assert.Equal(t, 1, p.Len())
		bpm, _ := p.Value(data.HeartRate)
		rates = append(rates, bpm)
	}
	assert.Equal(t, []float64{150, 60}, rates)
}

func TestSuuntoWithEventID(t *testing.T) {
	res := parseSuunto(t, suuntoDoc(t, nil), WithEventID("evt-1"))
	assert.Equal(t, "evt-1", res.Event.ID)
}

func TestSuuntoMalformedInput(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		section string
	}{
		{name: "not json", raw: []byte("{not json"), section: ""},
		{name: "no device log", raw: []byte(`{"Other": {}}`), section: "DeviceLog"},
		{name: "no header", raw: suuntoDoc(t, func(log map[string]any) { delete(log, "Header") }), section: "Header"},
		{name: "no device", raw: suuntoDoc(t, func(log map[string]any) { delete(log, "Device") }), section: "Device"},
		{name: "no samples", raw: suuntoDoc(t, func(log map[string]any) { delete(log, "Samples") }), section: "Samples"},
		{
			name: "bad start",
			raw: suuntoDoc(t, func(log map[string]any) {
				log["Header"].(map[string]any)["DateTime"] = "tomorrow"
			}),
			section: "Header.DateTime",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewSuuntoJSONParser().ParseData(tt.raw)
			require.Error(t, err)
			assert.Nil(t, res)
			var malformedErr *MalformedInputError
			require.True(t, errors.As(err, &malformedErr))
			assert.Equal(t, tt.section, malformedErr.Section)
		})
	}
}
