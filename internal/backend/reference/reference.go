// Package reference is a pure-Go backend that evaluates a subset of the
// operators with the float32 tensor kernels. float16 operands are decoded
// on the way in and re-encoded on the way out.
package reference

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/host"
	"github.com/example/go-webnn-conformance/internal/operand"
	"github.com/example/go-webnn-conformance/internal/runtime/ops"
	"github.com/example/go-webnn-conformance/internal/runtime/tensor"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// Name is the backend name used in configuration and reports.
const Name = "reference"

// kernel evaluates one operator on the graph's resolved inputs.
type kernel func(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error)

var kernels = map[tolerance.Operator]kernel{
	tolerance.Relu:     unary(relu),
	tolerance.Identity: unary(func(v float32) float32 { return v }),
	tolerance.Neg:      unary(func(v float32) float32 { return -v }),
	tolerance.Abs:      unary(abs),
	tolerance.Exp:      unary(exp),
	tolerance.Sigmoid:  unary(sigmoid),
	tolerance.Tanh:     unary(tanh),

	tolerance.Add: binary(tensor.Add),
	tolerance.Sub: binary(tensor.Sub),
	tolerance.Mul: binary(tensor.Mul),
	tolerance.Div: binary(tensor.Div),
	tolerance.Max: binary(tensor.Max),
	tolerance.Min: binary(tensor.Min),

	tolerance.Softmax: softmax,
	tolerance.Matmul:  binary(tensor.MatMul),
	tolerance.Gemm:    gemm,

	tolerance.ReduceSum:       reduce(tensor.ReduceSum),
	tolerance.ReduceMean:      reduce(tensor.ReduceMean),
	tolerance.ReduceMax:       reduce(tensor.ReduceMax),
	tolerance.ReduceMin:       reduce(tensor.ReduceMin),
	tolerance.ReduceProduct:   reduce(tensor.ReduceProduct),
	tolerance.ReduceL1:        reduce(tensor.ReduceL1),
	tolerance.ReduceL2:        reduce(tensor.ReduceL2),
	tolerance.ReduceLogSum:    reduce(tensor.ReduceLogSum),
	tolerance.ReduceLogSumExp: reduce(tensor.ReduceLogSumExp),
	tolerance.ReduceSumSquare: reduce(tensor.ReduceSumSquare),

	tolerance.Transpose: transpose,
	tolerance.Reshape:   reshape,
	tolerance.Concat:    concat,
	tolerance.Slice:     slice,
	tolerance.Split:     split,

	tolerance.Conv2d:        conv2d,
	tolerance.AveragePool2d: pool(ops.PoolAverage),
	tolerance.MaxPool2d:     pool(ops.PoolMax),
	tolerance.L2Pool2d:      pool(ops.PoolL2),
}

// Operators lists the operators the backend can build, sorted by name.
func Operators() []tolerance.Operator {
	ops := make([]tolerance.Operator, 0, len(kernels))
	for op := range kernels {
		ops = append(ops, op)
	}

	slices.Sort(ops)

	return ops
}

// Backend evaluates graphs in process.
type Backend struct {
	logger *slog.Logger
}

// New returns a reference backend. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}

	return &Backend{logger: logger}
}

func (b *Backend) Name() string { return Name }

type graph struct {
	spec      host.GraphSpec
	kernel    kernel
	constants map[string]*tensor.Tensor
}

func (g *graph) Spec() host.GraphSpec { return g.spec }

// Build checks that the operator is supported and decodes constants once.
func (b *Backend) Build(_ context.Context, spec host.GraphSpec) (host.Graph, error) {
	k, ok := kernels[spec.Operator]
	if !ok {
		return nil, fmt.Errorf("reference: %s: %w", spec.Operator, host.ErrUnsupportedOperator)
	}

	g := &graph{spec: spec, kernel: k, constants: make(map[string]*tensor.Tensor)}

	for _, in := range spec.Inputs {
		if !in.IsConstant() {
			continue
		}

		t, err := toTensor(in.Descriptor, in.Constant)
		if err != nil {
			return nil, fmt.Errorf("reference: build %s: %w", spec.Operator, err)
		}

		g.constants[in.Name] = t
	}

	for key, op := range spec.OptionOperands {
		t, err := toTensor(op.Descriptor, op.Constant)
		if err != nil {
			return nil, fmt.Errorf("reference: build %s: option %q: %w", spec.Operator, key, err)
		}

		g.constants["option:"+key] = t
	}

	b.logger.Debug("reference graph built", "operator", spec.Operator, "inputs", len(spec.Inputs), "outputs", len(spec.Outputs))

	return g, nil
}

// Compute evaluates the graph and writes each result into the output buffer
// of the same position.
func (b *Backend) Compute(ctx context.Context, hg host.Graph, inputs, outputs map[string]*buffer.Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g, ok := hg.(*graph)
	if !ok {
		return fmt.Errorf("reference: foreign graph %T", hg)
	}

	op := g.spec.Operator

	args := make([]*tensor.Tensor, 0, len(g.spec.Inputs))

	for _, in := range g.spec.Inputs {
		if t, ok := g.constants[in.Name]; ok {
			args = append(args, t)
			continue
		}

		buf, ok := inputs[in.Name]
		if !ok {
			return fmt.Errorf("reference: compute %s: missing input %q", op, in.Name)
		}

		t, err := toTensor(in.Descriptor, buf)
		if err != nil {
			return fmt.Errorf("reference: compute %s: %w", op, err)
		}

		args = append(args, t)
	}

	results, err := g.kernel(g, args)
	if err != nil {
		return fmt.Errorf("reference: compute %s: %w", op, err)
	}

	if len(results) != len(g.spec.Outputs) {
		return fmt.Errorf("reference: compute %s: %d results for %d outputs", op, len(results), len(g.spec.Outputs))
	}

	for i, desc := range g.spec.Outputs {
		dst, ok := outputs[desc.Name]
		if !ok {
			return fmt.Errorf("reference: compute %s: missing output buffer %q", op, desc.Name)
		}

		if err := store(dst, results[i]); err != nil {
			return fmt.Errorf("reference: compute %s: output %q: %w", op, desc.Name, err)
		}
	}

	return nil
}

func (b *Backend) Close() error { return nil }

// toTensor decodes a typed buffer into a float32 tensor of the descriptor's
// shape.
func toTensor(d operand.Descriptor, buf *buffer.Buffer) (*tensor.Tensor, error) {
	if buf == nil {
		return nil, fmt.Errorf("operand %q has no data", d.Name)
	}

	t, err := tensor.FromFloat64s(buf.Floats(), d.Shape)
	if err != nil {
		return nil, fmt.Errorf("operand %q: %w", d.Name, err)
	}

	return t, nil
}

// store converts a result into dst's data type. Element counts must match.
func store(dst *buffer.Buffer, t *tensor.Tensor) error {
	values := t.Float64s()
	if len(values) != dst.Len() {
		return fmt.Errorf("result has %d elements, buffer holds %d", len(values), dst.Len())
	}

	src, err := buffer.Materialize(dst.DataType(), len(values), operand.Values(values...))
	if err != nil {
		return err
	}

	return dst.CopyFrom(src)
}
