// internal/data/data.go
package data

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Type tags a channel reading. It is the discriminator used by points and summaries.
type Type string

const (
	HeartRate          Type = "HeartRate"
	GPSAltitude        Type = "GPSAltitude"
	Latitude           Type = "Latitude"
	Longitude          Type = "Longitude"
	AbsolutePressure   Type = "AbsolutePressure"
	SeaLevelPressure   Type = "SeaLevelPressure"
	Altitude           Type = "Altitude"
	Cadence            Type = "Cadence"
	Power              Type = "Power"
	Speed              Type = "Speed"
	Temperature        Type = "Temperature"
	VerticalSpeed      Type = "VerticalSpeed"
	EHPE               Type = "EHPE"
	EVPE               Type = "EVPE"
	NumberOfSatellites Type = "NumberOfSatellites"
	Satellite5BestSNR  Type = "Satellite5BestSNR"
	Distance           Type = "Distance"
)

var ErrUnknownType = errors.New("unknown data type")

// Channel describes how values of one type are measured and displayed.
type Channel struct {
	Type      Type
	Unit      string
	Precision int // decimal places kept by DisplayValue; 0 rounds to the nearest integer
}

var channels = map[Type]Channel{
	HeartRate:          {Type: HeartRate, Unit: "bpm", Precision: 0},
	GPSAltitude:        {Type: GPSAltitude, Unit: "m", Precision: 0},
	Latitude:           {Type: Latitude, Unit: "°", Precision: 6},
	Longitude:          {Type: Longitude, Unit: "°", Precision: 6},
	AbsolutePressure:   {Type: AbsolutePressure, Unit: "kPa", Precision: 1},
	SeaLevelPressure:   {Type: SeaLevelPressure, Unit: "kPa", Precision: 1},
	Altitude:           {Type: Altitude, Unit: "m", Precision: 0},
	Cadence:            {Type: Cadence, Unit: "rpm", Precision: 0},
	Power:              {Type: Power, Unit: "W", Precision: 0},
	Speed:              {Type: Speed, Unit: "m/s", Precision: 2},
	Temperature:        {Type: Temperature, Unit: "°C", Precision: 0},
	VerticalSpeed:      {Type: VerticalSpeed, Unit: "m/s", Precision: 2},
	EHPE:               {Type: EHPE, Unit: "m", Precision: 0},
	EVPE:               {Type: EVPE, Unit: "m", Precision: 0},
	NumberOfSatellites: {Type: NumberOfSatellites, Unit: "", Precision: 0},
	Satellite5BestSNR:  {Type: Satellite5BestSNR, Unit: "dB", Precision: 0},
	Distance:           {Type: Distance, Unit: "m", Precision: 0},
}

// Lookup returns the registered channel for t.
func Lookup(t Type) (Channel, bool) {
	c, ok := channels[t]
	return c, ok
}

// Types lists every registered channel type, ordered by tag.
func Types() []Type {
	out := make([]Type, 0, len(channels))
	for t := range channels {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Data is one immutable channel reading.
type Data struct {
	channel Channel
	value   float64
}

// New builds a reading of type t through the registry.
func New(t Type, value float64) (Data, error) {
	c, ok := channels[t]
	if !ok {
		return Data{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	return Data{channel: c, value: value}, nil
}

// MustNew is New for types known at compile time.
func MustNew(t Type, value float64) Data {
	d, err := New(t, value)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Data) Type() Type { return d.channel.Type }
func (d Data) Unit() string { return d.channel.Unit }
func (d Data) Value() float64 { return d.value }
func (d Data) Precision() int { return d.channel.Precision }
func (d Data) IsZero() bool { return d.channel.Type == "" }
func (d Data) String() string { return fmt.Sprintf("%s=%v%s", d.channel.Type, d.value, d.channel.Unit) }

// DisplayValue rounds the value with the channel's display rule. It is meant for
// presentation only.
func (d Data) DisplayValue() float64 {
	return Round(d.value, d.channel.Precision)
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	if places <= 0 {
		return math.Round(v)
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
