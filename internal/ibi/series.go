// Package ibi cleans inter-beat interval series and derives heart rate from them.
//
// A Series is ordered by Offset. Every filter is a pure function: it reads its
// input and returns a new Series, so the recorded series kept on an activity is
// never modified by filtering.
package ibi

import "math"

// Sample is one beat: Offset is the elapsed time in milliseconds at which the beat
// closed, Interval the time since the previous beat in milliseconds.
type Sample struct {
	Offset   int64   `json:"offset"`
	Interval float64 `json:"interval"`
}

type Series []Sample

// FromIntervals builds a series from consecutive beat intervals. The offset of each
// beat is the running sum of intervals up to and including it.
func FromIntervals(intervals []float64) Series {
	out := make(Series, 0, len(intervals))
	var total float64
	for _, v := range intervals {
		total += v
		out = append(out, Sample{Offset: int64(math.Round(total)), Interval: v})
	}
	return out
}

// Clone returns an independent copy of s.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

func (s Series) Intervals() []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v.Interval
	}
	return out
}

// BPMSample is the instantaneous heart rate at Offset.
type BPMSample struct {
	Offset int64
	BPM    float64
}

// BPM converts every interval into beats per minute rounded to the nearest beat.
// Non-positive intervals carry no rate and are dropped.
func BPM(s Series) []BPMSample {
	out := make([]BPMSample, 0, len(s))
	for _, v := range s {
		if v.Interval <= 0 {
			continue
		}
		out = append(out, BPMSample{Offset: v.Offset, BPM: math.Round(60000 / v.Interval)})
	}
	return out
}
