// Package check compares operator outputs with expected fixture data under
// the tolerance the precision table assigns.
package check

import (
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/numeric"
	"github.com/example/go-webnn-conformance/internal/operand"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// MaxIndexToValidate bounds how many leading elements of an output are
// compared.
const MaxIndexToValidate = 1000

// Checker compares buffers. The zero value stops at the first mismatching
// element; CollectAll reports every mismatch as one combined error.
type Checker struct {
	CollectAll bool
}

// Description is the label failures carry: "test <op> <type>".
func Description(op tolerance.Operator, dt operand.DataType) string {
	return fmt.Sprintf("test %s %s", op, dt)
}

// ApproxEqualULP checks that every element of actual is within nulp units
// in the last place of expected.
func ApproxEqualULP(actual *buffer.Buffer, expected []float64, nulp float64, dt operand.DataType, desc string) error {
	return Checker{}.ApproxEqualULP(actual, expected, nulp, dt, desc)
}

// ApproxEqualAbs checks that every element of actual is within tol of
// expected.
func ApproxEqualAbs(actual *buffer.Buffer, expected []float64, tol float64, desc string) error {
	return Checker{}.ApproxEqualAbs(actual, expected, tol, desc)
}

// Check compares one output under metric.
func Check(op tolerance.Operator, actual *buffer.Buffer, expected operand.Data, tol float64, dt operand.DataType, metric tolerance.Metric) error {
	return Checker{}.Check(op, actual, expected, tol, dt, metric)
}

func (c Checker) ApproxEqualULP(actual *buffer.Buffer, expected []float64, nulp float64, dt operand.DataType, desc string) error {
	if err := checkLength(actual, expected, desc); err != nil {
		return err
	}

	var errs error

	for i, want := range expected {
		got := actual.Float(i)
		if got == want {
			continue
		}

		dist, err := ulpDistance(actual, i, want, dt)
		if err != nil {
			return fmt.Errorf("check: %s element %d: %w", desc, i, err)
		}

		if float64(dist) <= nulp {
			continue
		}

		mismatch := &ToleranceError{
			Description: desc,
			Metric:      tolerance.ULP,
			DataType:    dt,
			Index:       i,
			Actual:      got,
			Expected:    want,
			Distance:    float64(dist),
			Tolerance:   nulp,
		}
		if !c.CollectAll {
			return mismatch
		}

		errs = multierr.Append(errs, mismatch)
	}

	return errs
}

func (c Checker) ApproxEqualAbs(actual *buffer.Buffer, expected []float64, tol float64, desc string) error {
	if err := checkLength(actual, expected, desc); err != nil {
		return err
	}

	var errs error

	for i, want := range expected {
		got := actual.Float(i)
		if got == want || (math.IsNaN(got) && math.IsNaN(want)) {
			continue
		}

		diff := math.Abs(got - want)
		if diff <= tol {
			continue
		}

		mismatch := &ToleranceError{
			Description: desc,
			Metric:      tolerance.ATOL,
			DataType:    actual.DataType(),
			Index:       i,
			Actual:      got,
			Expected:    want,
			Distance:    diff,
			Tolerance:   tol,
		}
		if !c.CollectAll {
			return mismatch
		}

		errs = multierr.Append(errs, mismatch)
	}

	return errs
}

// Check compares one output under metric. A scalar expected value is a
// one-element array.
func (c Checker) Check(op tolerance.Operator, actual *buffer.Buffer, expected operand.Data, tol float64, dt operand.DataType, metric tolerance.Metric) error {
	desc := Description(op, dt)

	if actual == nil {
		return fmt.Errorf("check: %s: no output buffer", desc)
	}

	if actual.DataType() != dt {
		return fmt.Errorf("check: %s: output buffer holds %s", desc, actual.DataType())
	}

	switch metric {
	case tolerance.ULP:
		return c.ApproxEqualULP(actual, expected.Values(), tol, dt, desc)
	case tolerance.ATOL:
		return c.ApproxEqualAbs(actual, expected.Values(), tol, desc)
	default:
		return fmt.Errorf("check: %s: %w %q", desc, tolerance.ErrUnknownMetric, metric)
	}
}

func checkLength(actual *buffer.Buffer, expected []float64, desc string) error {
	if actual.Len() != len(expected) {
		return &LengthError{Description: desc, Expected: len(expected), Actual: actual.Len()}
	}

	return nil
}

// ulpDistance measures element i of actual against want in the bit space
// of dt.
func ulpDistance(actual *buffer.Buffer, i int, want float64, dt operand.DataType) (uint64, error) {
	switch dt {
	case operand.Float32:
		a, err := numeric.Bitwise(actual.Float(i), dt)
		if err != nil {
			return 0, err
		}

		e, err := numeric.Bitwise(want, dt)
		if err != nil {
			return 0, err
		}

		return numeric.Distance(a, e), nil
	case operand.Float16:
		return numeric.Distance(actual.Bits(i), int64(numeric.ToHalf(float32(want)))), nil
	case operand.Int64, operand.Int32, operand.Uint32, operand.Int8, operand.Uint8:
		if want != math.Trunc(want) || math.IsInf(want, 0) {
			return 0, fmt.Errorf("expected %v is not an integer", want)
		}

		return numeric.Distance(actual.Bits(i), int64(want)), nil
	default:
		return 0, fmt.Errorf("%w: data type %s is not supported", numeric.ErrUnsupportedDataType, dt)
	}
}
