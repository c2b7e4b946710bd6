package operand

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Data is a fixture value: either one number or a sequence of numbers.
type Data struct {
	values []float64
	scalar bool
}

// Scalar wraps a single number.
func Scalar(v float64) Data {
	return Data{values: []float64{v}, scalar: true}
}

// Values wraps a sequence of numbers. The slice is copied.
func Values(vs ...float64) Data {
	return Data{values: append([]float64{}, vs...)}
}

// IsScalar reports whether the fixture held a bare number.
func (d Data) IsScalar() bool { return d.scalar }

// IsZero reports whether no value was decoded at all.
func (d Data) IsZero() bool { return !d.scalar && d.values == nil }

// Scalar returns the single number of a scalar value.
func (d Data) Scalar() float64 {
	if len(d.values) == 0 {
		return 0
	}

	return d.values[0]
}

// Len is the number of stored numbers (1 for a scalar).
func (d Data) Len() int { return len(d.values) }

// Values returns a copy of the stored numbers.
func (d Data) Values() []float64 {
	return append([]float64(nil), d.values...)
}

// Expand broadcasts a scalar to n elements. Sequences are returned unchanged.
func (d Data) Expand(n int) []float64 {
	if !d.scalar || n <= 1 {
		return d.Values()
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = d.values[0]
	}

	return out
}

func (d *Data) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = Data{}
		return nil
	}

	switch b[0] {
	case '[':
		var vs []float64
		if err := json.Unmarshal(b, &vs); err != nil {
			return fmt.Errorf("operand: decode data sequence: %w", err)
		}

		if vs == nil {
			vs = []float64{}
		}

		*d = Data{values: vs}
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("operand: decode data: %w", err)
		}

		*d = Scalar(boolToFloat(v))
	default:
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("operand: decode data: %w", err)
		}

		*d = Scalar(v)
	}

	return nil
}

func (d Data) MarshalJSON() ([]byte, error) {
	if d.scalar {
		return json.Marshal(d.Scalar())
	}

	if d.values == nil {
		return []byte("null"), nil
	}

	return json.Marshal(d.values)
}

func boolToFloat(v bool) float64 {
	if v {
		return 1
	}

	return 0
}
