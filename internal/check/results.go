package check

import (
	"fmt"
	"slices"

	"go.uber.org/multierr"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/operand"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// Outcome describes one compared output.
type Outcome struct {
	Output    string
	DataType  operand.DataType
	Metric    tolerance.Metric
	Tolerance float64
	Err       error
}

// ExpectedValues returns the data an output is compared against. A scalar
// with a declared shape of more than one element is broadcast, and the
// result never exceeds MaxIndexToValidate elements.
func ExpectedValues(rec fixture.Operand) operand.Data {
	if rec.Data.IsScalar() && rec.HasShape() {
		if n := operand.SizeOfShape(rec.Shape); n > 1 {
			return operand.Values(rec.Data.Expand(min(n, MaxIndexToValidate))...)
		}
	}

	if rec.Data.Len() > MaxIndexToValidate {
		return operand.Values(rec.Data.Values()[:MaxIndexToValidate]...)
	}

	return rec.Data
}

// Results checks every output of a computed case. Single-output cases
// compare the output named by the expected record; multi-output cases match
// each output to the expected record of the same name.
func Results(op tolerance.Operator, outputs map[string]*buffer.Buffer, c *fixture.Case) error {
	return Checker{}.Results(op, outputs, c)
}

func (ck Checker) Results(op tolerance.Operator, outputs map[string]*buffer.Buffer, c *fixture.Case) error {
	outcomes, err := ck.Outcomes(op, outputs, c)
	if err != nil {
		return err
	}

	var errs error

	for _, o := range outcomes {
		if o.Err == nil {
			continue
		}

		if !ck.CollectAll {
			return o.Err
		}

		errs = multierr.Append(errs, o.Err)
	}

	return errs
}

// Outcomes checks every output and returns one Outcome per output. The
// error is set only when the case cannot be checked at all.
func (ck Checker) Outcomes(op tolerance.Operator, outputs map[string]*buffer.Buffer, c *fixture.Case) ([]Outcome, error) {
	metric, err := tolerance.MetricFor(op)
	if err != nil {
		return nil, err
	}

	if !c.Expected.IsSequence() {
		records := c.Expected.Records()
		if len(records) == 0 {
			return nil, fmt.Errorf("check: %s: case %q has no expected output", op, c.Name)
		}

		o, err := ck.outcome(op, metric, c, records[0], outputs[records[0].Name])
		if err != nil {
			return nil, err
		}

		return []Outcome{o}, nil
	}

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}

	slices.Sort(names)

	outcomes := make([]Outcome, 0, len(names))

	for _, name := range names {
		rec, err := c.Expected.Find(name)
		if err != nil {
			return nil, err
		}

		o, err := ck.outcome(op, metric, c, rec, outputs[name])
		if err != nil {
			return nil, err
		}

		outcomes = append(outcomes, o)
	}

	return outcomes, nil
}

func (ck Checker) outcome(op tolerance.Operator, metric tolerance.Metric, c *fixture.Case, rec fixture.Operand, actual *buffer.Buffer) (Outcome, error) {
	tol, err := tolerance.ResolveType(op, metric, c, rec.Type)
	if err != nil {
		return Outcome{}, err
	}

	o := Outcome{Output: rec.Name, DataType: rec.Type, Metric: metric, Tolerance: tol}

	if actual == nil {
		o.Err = fmt.Errorf("check: %s: missing output %q", Description(op, rec.Type), rec.Name)
		return o, nil
	}

	o.Err = ck.Check(op, actual.Truncate(MaxIndexToValidate), ExpectedValues(rec), tol, rec.Type, metric)

	return o, nil
}

// Reporter receives assertion failures. testing.TB satisfies it.
type Reporter interface {
	Helper()
	Errorf(format string, args ...any)
}

// Assert reports err as one failed assertion. A nil err passes; combined
// mismatches are reported together.
func Assert(r Reporter, err error) bool {
	r.Helper()

	if err == nil {
		return true
	}

	r.Errorf("%v", err)

	return false
}
