package numeric

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/go-webnn-conformance/internal/operand"
)

// ErrUnsupportedDataType is returned when a bit view is requested for a
// type that has no floating-point reinterpretation.
var ErrUnsupportedDataType = errors.New("numeric: unsupported data type")

const highWord = uint64(0xffffffff00000000)

// Bitwise reinterprets value, rounded to float32, as a 64-bit integer.
//
// The float32 bits occupy the low word. The high word is all ones when
// value is negative and zero otherwise, so negative values order among
// themselves by magnitude and -0 sits at 1<<31 rather than at zero.
func Bitwise(value float64, dt operand.DataType) (int64, error) {
	if dt != operand.Float32 {
		return 0, fmt.Errorf("%w: data type %s is not supported", ErrUnsupportedDataType, dt)
	}

	bits := uint64(math.Float32bits(float32(value)))
	if value < 0 {
		bits |= highWord
	}

	return int64(bits), nil
}

// Distance is the absolute difference of two bit views.
func Distance(a, b int64) uint64 {
	if a >= b {
		return uint64(a) - uint64(b)
	}

	return uint64(b) - uint64(a)
}
