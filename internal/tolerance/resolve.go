package tolerance

import (
	"errors"
	"fmt"

	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/operand"
)

var (
	ErrUnknownOperator = errors.New("tolerance: unknown operator")
	ErrUnknownMetric   = errors.New("tolerance: unknown metric")
	ErrUnknownDataType = errors.New("tolerance: no tolerance for data type")
)

// Lookup returns the table entry for op.
func Lookup(op Operator) (Spec, error) {
	spec, ok := Table[op]
	if !ok {
		return Spec{}, fmt.Errorf("%w %q", ErrUnknownOperator, op)
	}

	return spec, nil
}

// MetricFor returns the metric op is checked with.
func MetricFor(op Operator) (Metric, error) {
	spec, err := Lookup(op)
	if err != nil {
		return "", err
	}

	return spec.Metric, nil
}

// Resolve returns the tolerance for op under metric, keyed by the type of
// the case's first expected output.
func Resolve(op Operator, metric Metric, c *fixture.Case) (float64, error) {
	return ResolveType(op, metric, c, c.Expected.PrecisionType())
}

// ResolveType returns the tolerance for op under metric for outputs of dt.
func ResolveType(op Operator, metric Metric, c *fixture.Case, dt operand.DataType) (float64, error) {
	spec, err := Lookup(op)
	if err != nil {
		return 0, err
	}

	if metric != spec.Metric {
		return 0, fmt.Errorf("%w %q for operator %s (want %s)", ErrUnknownMetric, metric, op, spec.Metric)
	}

	t, ok := spec.ByType[dt]
	if !ok {
		return 0, fmt.Errorf("%w %q: operator %s metric %s", ErrUnknownDataType, dt, op, metric)
	}

	v, err := t.Value(c, op)
	if err != nil {
		return 0, fmt.Errorf("tolerance: %s %s: %w", op, dt, err)
	}

	return v, nil
}
