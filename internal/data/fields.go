package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrNotNumeric = errors.New("value is not numeric")

// Converter maps a raw source number onto the unit of its target channel.
type Converter func(float64) float64

var (
	Identity             = Converter(func(v float64) float64 { return v })
	RawToBPM             = Scale(60)
	HzToRPM              = Scale(120)
	RadiansToDegrees     = Scale(180 / math.Pi)
	KelvinToCelsius      = Shift(-273.15)
	PascalToKilopascal   = Divide(1000)
	JoulesToKilocalories = Converter(func(v float64) float64 { return v * 0.239 / 1000 })
)

func Scale(k float64) Converter {
	return func(v float64) float64 { return v * k }
}

func Shift(d float64) Converter {
	return func(v float64) float64 { return v + d }
}

func Divide(d float64) Converter {
	return func(v float64) float64 { return v / d }
}

// Source exposes the named fields of one raw record. A field that exists with a null
// value reports present=true and raw=nil.
type Source interface {
	Lookup(name string) (raw any, present bool)
}

// Field is one row of a decoding table.
type Field struct {
	Name    string
	Type    Type
	Convert Converter
	// Present overrides the default presence rule (field exists and is not null).
	Present func(raw any, present bool) bool
}

func (f Field) present(raw any, ok bool) bool {
	if f.Present != nil {
		return f.Present(raw, ok)
	}
	return ok && raw != nil
}

// FieldError reports a field dropped from a record because it could not be converted.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("field %s: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

// Table is an ordered decoding table applied uniformly to every raw record.
type Table []Field

// Decode returns one reading per present, convertible field in table order. Fields
// that fail coercion are reported and omitted; they never abort the record.
func (t Table) Decode(src Source) ([]Data, []*FieldError) {
	var (
		out  []Data
		errs []*FieldError
	)
	for _, f := range t {
		raw, ok := src.Lookup(f.Name)
		if !f.present(raw, ok) {
			continue
		}
		v, err := ToFloat(raw)
		if err != nil {
			errs = append(errs, &FieldError{Field: f.Name, Err: err})
			continue
		}
		convert := f.Convert
		if convert == nil {
			convert = Identity
		}
		d, err := New(f.Type, convert(v))
		if err != nil {
			errs = append(errs, &FieldError{Field: f.Name, Err: err})
			continue
		}
		out = append(out, d)
	}
	return out, errs
}

// ToFloat coerces a decoded raw value to a finite float64.
func ToFloat(raw any) (float64, error) {
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int8:
		v = float64(x)
	case int16:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case uint:
		v = float64(x)
	case uint8:
		v = float64(x)
	case uint16:
		v = float64(x)
	case uint32:
		v = float64(x)
	case uint64:
		v = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x.String())
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		v = f
	default:
		return 0, fmt.Errorf("%w: %T", ErrNotNumeric, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNotNumeric, v)
	}
	return v, nil
}
