package check

import (
	"fmt"

	"github.com/example/go-webnn-conformance/internal/operand"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// LengthError reports an output whose element count differs from the
// expected data.
type LengthError struct {
	Description string
	Expected    int
	Actual      int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("check: %s lengths differ, expected %d but got %d", e.Description, e.Expected, e.Actual)
}

// ToleranceError reports the element that exceeded its tolerance.
type ToleranceError struct {
	Description string
	Metric      tolerance.Metric
	DataType    operand.DataType
	Index       int
	Actual      float64
	Expected    float64
	Distance    float64
	Tolerance   float64
}

func (e *ToleranceError) Error() string {
	if e.Metric == tolerance.ATOL {
		return fmt.Sprintf(
			"check: %s element %d: actual %v should be within %v of expected %v, but they differ by %v",
			e.Description, e.Index, e.Actual, e.Tolerance, e.Expected, e.Distance,
		)
	}

	return fmt.Sprintf(
		"check: %s element %d: actual %v should be close enough to expected %v by the acceptable %v ULP distance, but they have %v ULP distance",
		e.Description, e.Index, e.Actual, e.Expected, e.Tolerance, e.Distance,
	)
}
