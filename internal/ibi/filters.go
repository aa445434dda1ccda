package ibi

import "sort"

const (
	DefaultLowLimitBPM  = 40
	DefaultHighLimitBPM = 220
	DefaultLowPassAlpha = 0.5
	DefaultMedianWindow = 5
)

// Filter maps one series to a new one without touching its input.
type Filter func(Series) Series

// LowLimitBPM drops beats whose instantaneous rate is below limit.
func LowLimitBPM(limit float64) Filter {
	return func(s Series) Series {
		out := make(Series, 0, len(s))
		for _, v := range s {
			if v.Interval <= 0 || 60000/v.Interval < limit {
				continue
			}
			out = append(out, v)
		}
		return out
	}
}

// HighLimitBPM drops beats whose instantaneous rate is above limit.
func HighLimitBPM(limit float64) Filter {
	return func(s Series) Series {
		out := make(Series, 0, len(s))
		for _, v := range s {
			if v.Interval <= 0 || 60000/v.Interval > limit {
				continue
			}
			out = append(out, v)
		}
		return out
	}
}

// LowPass is a single-pole exponential smoother seeded with the first interval:
// y[i] = y[i-1] + alpha*(x[i]-y[i-1]). Alpha must lie in (0, 1].
func LowPass(alpha float64) Filter {
	return func(s Series) Series {
		out := make(Series, len(s))
		var prev float64
		for i, v := range s {
			if i == 0 {
				prev = v.Interval
			} else {
				prev += alpha * (v.Interval - prev)
			}
			out[i] = Sample{Offset: v.Offset, Interval: prev}
		}
		return out
	}
}

// MovingMedian replaces each interval with the median of the window centred on it.
// The window is clipped at both ends of the series.
func MovingMedian(window int) Filter {
	if window < 1 {
		window = 1
	}
	half := window / 2
	return func(s Series) Series {
		out := make(Series, len(s))
		buf := make([]float64, 0, window)
		for i, v := range s {
			lo, hi := i-half, i+half
			if window%2 == 0 {
				hi--
			}
			if lo < 0 {
				lo = 0
			}
			if hi > len(s)-1 {
				hi = len(s) - 1
			}
			buf = buf[:0]
			for j := lo; j <= hi; j++ {
				buf = append(buf, s[j].Interval)
			}
			out[i] = Sample{Offset: v.Offset, Interval: median(buf)}
		}
		return out
	}
}

func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// Pipeline applies its filters in order.
type Pipeline []Filter

// DefaultPipeline is low limit, high limit, low pass, moving median.
func DefaultPipeline() Pipeline {
	return Pipeline{
		LowLimitBPM(DefaultLowLimitBPM),
		HighLimitBPM(DefaultHighLimitBPM),
		LowPass(DefaultLowPassAlpha),
		MovingMedian(DefaultMedianWindow),
	}
}

func (p Pipeline) Apply(s Series) Series {
	out := s.Clone()
	for _, f := range p {
		out = f(out)
	}
	return out
}

// Trace returns the input followed by the output of every stage.
func (p Pipeline) Trace(s Series) []Series {
	stages := make([]Series, 0, len(p)+1)
	cur := s.Clone()
	stages = append(stages, cur)
	for _, f := range p {
		cur = f(cur)
		stages = append(stages, cur)
	}
	return stages
}
