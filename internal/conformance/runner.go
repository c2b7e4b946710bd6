// Package conformance drives a backend through the operator fixtures:
// load, build, compute and check, one case at a time.
package conformance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/example/go-webnn-conformance/internal/check"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/host"
	"github.com/example/go-webnn-conformance/internal/metrics"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// Runner executes cases sequentially. Metrics and Logger are optional.
type Runner struct {
	Backend    host.Backend
	Loader     *fixture.Loader
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
	CollectAll bool
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}

	return r.Logger
}

// Operators returns every operator in the tolerance table that has a
// fixture file.
func (r *Runner) Operators() []tolerance.Operator {
	var ops []tolerance.Operator

	for _, op := range tolerance.Operators() {
		if r.Loader.Available(op.String()) {
			ops = append(ops, op)
		}
	}

	return ops
}

// Run executes every case of ops. Operators whose fixtures cannot be loaded
// are reported in the returned error; the other results are still returned.
func (r *Runner) Run(ctx context.Context, ops []tolerance.Operator) ([]Result, error) {
	var (
		results []Result
		errs    error
	)

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return results, multierr.Append(errs, err)
		}

		res, err := r.RunOperator(ctx, op)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}

		results = append(results, res...)
	}

	return results, errs
}

// RunOperator loads the fixtures of op and runs each case.
func (r *Runner) RunOperator(ctx context.Context, op tolerance.Operator) ([]Result, error) {
	cases, err := r.Loader.Load(op.String())
	if err != nil {
		return nil, fmt.Errorf("conformance: %s: %w", op, err)
	}

	results := make([]Result, 0, len(cases))

	for i := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, r.RunCase(ctx, op, &cases[i]))
	}

	return results, nil
}

// RunCase builds, computes and checks one case. It never returns an error:
// every failure is folded into the result status.
func (r *Runner) RunCase(ctx context.Context, op tolerance.Operator, c *fixture.Case) Result {
	start := time.Now()
	res := r.runCase(ctx, op, c)
	res.Duration = time.Since(start)

	r.Metrics.Case(res.Operator, res.Backend, res.Status, res.Duration)

	log := r.logger().With("operator", op, "case", c.Name, "backend", res.Backend)

	switch res.Status {
	case StatusOK:
		log.Debug("case passed", "metric", res.Metric, "tolerance", res.Tolerance)
	case StatusSkipped:
		log.Info("case skipped", "reason", res.Reason)
	default:
		log.Warn("case "+res.Status, "reason", res.Reason)
	}

	return res
}

func (r *Runner) runCase(ctx context.Context, op tolerance.Operator, c *fixture.Case) Result {
	res := Result{
		Operator: op.String(),
		Case:     c.Name,
		Backend:  r.Backend.Name(),
		DataType: c.Expected.PrecisionType().String(),
	}

	spec, inputs, outputs, err := host.BuildGraph(op, c)
	if err != nil {
		return res.fail(StatusError, err)
	}

	g, err := r.Backend.Build(ctx, spec)
	if errors.Is(err, host.ErrUnsupportedOperator) {
		res.Status = StatusSkipped
		res.Reason = err.Error()

		return res
	}

	if err != nil {
		return res.fail(StatusError, err)
	}

	if err := r.Backend.Compute(ctx, g, inputs, outputs); err != nil {
		return res.fail(StatusError, err)
	}

	outcomes, err := check.Checker{CollectAll: r.CollectAll}.Outcomes(op, outputs, c)
	if err != nil {
		return res.fail(StatusError, err)
	}

	var mismatches error

	for i, o := range outcomes {
		r.Metrics.Tolerance(res.Operator, string(o.Metric), o.Tolerance)

		if i == 0 {
			res.Metric = string(o.Metric)
			res.Tolerance = o.Tolerance
		}

		if o.Err != nil {
			mismatches = multierr.Append(mismatches, o.Err)

			if !r.CollectAll {
				break
			}
		}
	}

	if mismatches != nil {
		return res.fail(StatusFailed, mismatches)
	}

	res.Status = StatusOK

	return res
}

func (res Result) fail(status string, err error) Result {
	res.Status = status
	res.Reason = err.Error()
	res.Err = err

	return res
}
