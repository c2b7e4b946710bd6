package reference

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/go-webnn-conformance/internal/runtime/tensor"
)

func relu(v float32) float32 {
	if v < 0 {
		return 0
	}

	return v
}

func abs(v float32) float32     { return float32(math.Abs(float64(v))) }
func exp(v float32) float32     { return float32(math.Exp(float64(v))) }
func tanh(v float32) float32    { return float32(math.Tanh(float64(v))) }
func sigmoid(v float32) float32 { return float32(1 / (1 + math.Exp(-float64(v)))) }

func unary(fn func(float32) float32) kernel {
	return func(_ *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if len(in) != 1 {
			return nil, fmt.Errorf("want 1 input, got %d", len(in))
		}

		return []*tensor.Tensor{in[0].Map(fn)}, nil
	}
}

func binary(fn func(a, b *tensor.Tensor) (*tensor.Tensor, error)) kernel {
	return func(_ *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if len(in) != 2 {
			return nil, fmt.Errorf("want 2 inputs, got %d", len(in))
		}

		out, err := fn(in[0], in[1])
		if err != nil {
			return nil, err
		}

		return []*tensor.Tensor{out}, nil
	}
}

func softmax(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want 1 input, got %d", len(in))
	}

	axis := int64(1)
	if in[0].Rank() < 2 {
		axis = 0
	}

	if g.spec.Axis != nil {
		axis = *g.spec.Axis
	}

	axis, err := g.spec.Options.Int("axis", axis)
	if err != nil {
		return nil, err
	}

	out, err := tensor.Softmax(in[0], int(axis))
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{out}, nil
}

func gemm(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(in) != 2 {
		return nil, fmt.Errorf("want 2 inputs, got %d", len(in))
	}

	opts := g.spec.Options

	alpha, err := opts.Float("alpha", 1)
	if err != nil {
		return nil, err
	}

	beta, err := opts.Float("beta", 1)
	if err != nil {
		return nil, err
	}

	out, err := tensor.Gemm(in[0], in[1], tensor.GemmOptions{
		C:          g.constants["option:c"],
		Alpha:      float32(alpha),
		Beta:       float32(beta),
		ATranspose: opts.Bool("aTranspose", false),
		BTranspose: opts.Bool("bTranspose", false),
	})
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{out}, nil
}

func reduce(kind tensor.Reduction) kernel {
	return func(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if len(in) != 1 {
			return nil, fmt.Errorf("want 1 input, got %d", len(in))
		}

		raw, ok, err := g.spec.Options.Ints("axes")
		if err != nil {
			return nil, err
		}

		var axes []int
		if ok {
			axes = make([]int, len(raw))
			for i, a := range raw {
				axes[i] = int(a)
			}
		}

		out, err := tensor.Reduce(in[0], axes, g.spec.Options.Bool("keepDimensions", false), kind)
		if err != nil {
			return nil, err
		}

		return []*tensor.Tensor{out}, nil
	}
}

func transpose(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want 1 input, got %d", len(in))
	}

	raw, ok, err := g.spec.Options.Ints("permutation")
	if err != nil {
		return nil, err
	}

	var perm []int
	if ok {
		perm = make([]int, len(raw))
		for i, p := range raw {
			perm[i] = int(p)
		}
	}

	out, err := in[0].Permute(perm)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{out}, nil
}

func reshape(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want 1 input, got %d", len(in))
	}

	shape := g.spec.NewShape
	if shape == nil && len(g.spec.Outputs) == 1 {
		shape = g.spec.Outputs[0].Shape
	}

	out, err := in[0].Reshape(shape)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{out}, nil
}

func concat(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if g.spec.Axis == nil {
		return nil, errors.New("concat requires an axis")
	}

	out, err := tensor.Concat(in, int(*g.spec.Axis))
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{out}, nil
}

func slice(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want 1 input, got %d", len(in))
	}

	out, err := in[0].Slice(g.spec.Starts, g.spec.Sizes)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{out}, nil
}

// split cuts the input along the axis option into equal parts when splits
// is a number, or into the listed sizes.
func split(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("want 1 input, got %d", len(in))
	}

	x := in[0]

	axis, err := g.spec.Options.Int("axis", 0)
	if err != nil {
		return nil, err
	}

	if axis < 0 {
		axis += int64(x.Rank())
	}

	if axis < 0 || int(axis) >= x.Rank() {
		return nil, fmt.Errorf("split axis %d out of range for rank %d", axis, x.Rank())
	}

	dim := x.Shape()[axis]

	var sizes []int64

	if g.spec.Splits.IsScalar() {
		n := int64(g.spec.Splits.Scalar())
		if n <= 0 || dim%n != 0 {
			return nil, fmt.Errorf("cannot split dimension %d into %d parts", dim, n)
		}

		for range n {
			sizes = append(sizes, dim/n)
		}
	} else {
		for _, v := range g.spec.Splits.Values() {
			sizes = append(sizes, int64(v))
		}
	}

	outs := make([]*tensor.Tensor, 0, len(sizes))

	var start int64

	for _, size := range sizes {
		part, err := x.Narrow(int(axis), start, size)
		if err != nil {
			return nil, err
		}

		outs = append(outs, part)
		start += size
	}

	if start != dim {
		return nil, fmt.Errorf("split sizes %v do not cover dimension %d", sizes, dim)
	}

	return outs, nil
}
