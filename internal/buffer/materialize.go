package buffer

import (
	"fmt"
	"math"

	"github.com/example/go-webnn-conformance/internal/numeric"
	"github.com/example/go-webnn-conformance/internal/operand"
)

// Materialize builds a buffer of dt from fixture data. A scalar with
// count > 1 is broadcast to count elements; otherwise every value is
// converted in order.
func Materialize(dt operand.DataType, count int, data operand.Data) (*Buffer, error) {
	values := data.Values()
	if data.IsScalar() && count > 1 {
		values = data.Expand(count)
	}

	b, err := New(dt, len(values))
	if err != nil {
		return nil, err
	}

	switch out := b.data.(type) {
	case []float32:
		for i, v := range values {
			out[i] = float32(v)
		}
	case []uint16:
		for i, v := range values {
			out[i] = numeric.ToHalf(float32(v))
		}
	case []int64:
		for i, v := range values {
			n, err := toInt64(v)
			if err != nil {
				return nil, fmt.Errorf("buffer: element %d: %w", i, err)
			}
			out[i] = n
		}
	case []int32:
		for i, v := range values {
			out[i] = int32(wrap(v, 32))
		}
	case []uint32:
		for i, v := range values {
			out[i] = uint32(wrap(v, 32))
		}
	case []int8:
		for i, v := range values {
			out[i] = int8(wrap(v, 8))
		}
	case []uint8:
		for i, v := range values {
			out[i] = uint8(wrap(v, 8))
		}
	}

	return b, nil
}

// MaterializeDescriptor materializes data for the shape and type of d.
func MaterializeDescriptor(d operand.Descriptor, data operand.Data) (*Buffer, error) {
	b, err := Materialize(d.DataType, d.ElementCount(), data)
	if err != nil {
		return nil, fmt.Errorf("operand %q: %w", d.Name, err)
	}

	return b, nil
}

// toInt64 accepts only integral values, like a BigInt conversion.
func toInt64(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("%v is not an integer", v)
	}

	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("%v overflows int64", v)
	}

	return int64(v), nil
}

// wrap truncates toward zero and reduces modulo 2^bits, the conversion a
// typed array applies on store. NaN and infinities become 0.
func wrap(v float64, bits uint) uint64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	mod := math.Ldexp(1, int(bits))

	r := math.Mod(math.Trunc(v), mod)
	if r < 0 {
		r += mod
	}

	return uint64(r)
}
