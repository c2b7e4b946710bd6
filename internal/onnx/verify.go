package onnx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/operand"
)

// VerifyGraphs opens every graph in sm and runs it once on zero inputs,
// printing PASS or FAIL per graph to w. A nil factory opens real ORT
// sessions.
func VerifyGraphs(ctx context.Context, sm *SessionManager, cfg RunnerConfig, factory RunnerFactory, w io.Writer) error {
	if factory == nil {
		factory = ortRunnerFactory
	}

	var failures []string

	for _, s := range sm.Sessions() {
		if err := smoke(ctx, s, cfg, factory); err != nil {
			_, _ = fmt.Fprintf(w, "FAIL %s: %v\n", s.Name, err)
			failures = append(failures, s.Name)

			continue
		}

		_, _ = fmt.Fprintf(w, "PASS %s\n", s.Name)
	}

	if len(failures) > 0 {
		return fmt.Errorf("verify failed for %d graph(s): %s", len(failures), strings.Join(failures, ", "))
	}

	return nil
}

func smoke(ctx context.Context, s Session, cfg RunnerConfig, factory RunnerFactory) error {
	feeds := make(map[string]Feed, len(s.Inputs))

	for _, in := range s.Inputs {
		f, err := zeroFeed(in)
		if err != nil {
			return fmt.Errorf("input %q: %w", in.Name, err)
		}

		feeds[in.Name] = f
	}

	r, err := factory(s, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	if _, err := r.Run(ctx, feeds); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return nil
}

// zeroFeed builds a zero tensor for a declared graph input. Symbolic
// dimensions are taken as 1.
func zeroFeed(n NodeInfo) (Feed, error) {
	var dt operand.DataType

	switch strings.ToLower(n.DType) {
	case "", "float", "float32", "tensor(float)":
		dt = operand.Float32
	case "int64", "tensor(int64)":
		dt = operand.Int64
	default:
		return Feed{}, fmt.Errorf("unsupported dtype %q", n.DType)
	}

	shape := make([]int64, len(n.Shape))
	count := 1

	for i, d := range n.Shape {
		v, err := cast.ToInt64E(d)
		if err != nil || v <= 0 {
			v = 1
		}

		shape[i] = v
		count *= int(v)
	}

	buf, err := buffer.New(dt, count)
	if err != nil {
		return Feed{}, err
	}

	return Feed{Shape: shape, Buffer: buf}, nil
}
