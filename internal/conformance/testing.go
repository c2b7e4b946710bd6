package conformance

import (
	"context"
	"testing"

	"github.com/example/go-webnn-conformance/internal/check"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// RunTests drives the runner from go test: one subtest per case, named
// "<case> / <backend>". Skipped cases skip, failures go through
// check.Assert, and errors fail the subtest.
func RunTests(t *testing.T, r *Runner, ops []tolerance.Operator) {
	t.Helper()

	ctx := context.Background()

	for _, op := range ops {
		cases, err := r.Loader.Load(op.String())
		if err != nil {
			t.Errorf("%s: %v", op, err)
			continue
		}

		for i := range cases {
			c := &cases[i]

			t.Run(c.Name+" / "+r.Backend.Name(), func(t *testing.T) {
				res := r.RunCase(ctx, op, c)

				switch res.Status {
				case StatusSkipped:
					t.Skip(res.Reason)
				case StatusError:
					t.Fatalf("%s", res.Reason)
				case StatusFailed:
					check.Assert(t, res.Err)
				}
			})
		}
	}
}
