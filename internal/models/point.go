package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sstent/tracksync-go/internal/data"
)

// Point is one timestamped sample holding at most one reading per channel.
type Point struct {
	Date   time.Time
	values map[data.Type]data.Data
}

func NewPoint(date time.Time) *Point {
	return &Point{Date: date, values: make(map[data.Type]data.Data)}
}

// AddData attaches d to the point. A second reading of the same type belongs to a
// separate point and is rejected.
func (p *Point) AddData(d data.Data) error {
	if _, ok := p.values[d.Type()]; ok {
		return fmt.Errorf("point %s already has %s", p.Date.Format(time.RFC3339Nano), d.Type())
	}
	p.values[d.Type()] = d
	return nil
}

func (p *Point) Data(t data.Type) (data.Data, bool) {
	d, ok := p.values[t]
	return d, ok
}

// Value returns the raw value of channel t.
func (p *Point) Value(t data.Type) (float64, bool) {
	d, ok := p.values[t]
	if !ok {
		return 0, false
	}
	return d.Value(), true
}

func (p *Point) Len() int {
	return len(p.values)
}

// All returns the point's readings ordered by type tag.
func (p *Point) All() []data.Data {
	out := make([]data.Data, 0, len(p.values))
	for _, d := range p.values {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type() < out[j].Type() })
	return out
}

// MarshalJSON renders the point as {"date": ..., "<type>": value, ...}.
func (p *Point) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.values)+1)
	m["date"] = p.Date.UTC().Format(time.RFC3339Nano)
	for t, d := range p.values {
		m[string(t)] = d.Value()
	}
	return json.Marshal(m)
}
