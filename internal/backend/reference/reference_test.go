package reference

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/host"
	"github.com/example/go-webnn-conformance/internal/numeric"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// run builds and computes one case, returning the output buffers.
func run(t *testing.T, op tolerance.Operator, raw string) map[string]*buffer.Buffer {
	t.Helper()

	var c fixture.Case
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	spec, inputs, outputs, err := host.BuildGraph(op, &c)
	require.NoError(t, err)

	b := New(nil)
	defer b.Close()

	g, err := b.Build(context.Background(), spec)
	require.NoError(t, err)
	require.NoError(t, b.Compute(context.Background(), g, inputs, outputs))

	return outputs
}

func TestUnaryOperators(t *testing.T) {
	tests := []struct {
		op   tolerance.Operator
		in   string
		want []float64
	}{
		{tolerance.Relu, "[-1, 0, 2]", []float64{0, 0, 2}},
		{tolerance.Neg, "[-1, 0, 2]", []float64{1, 0, -2}},
		{tolerance.Abs, "[-1, 0, 2]", []float64{1, 0, 2}},
		{tolerance.Identity, "[-1, 0, 2]", []float64{-1, 0, 2}},
		{tolerance.Exp, "[0, 0, 0]", []float64{1, 1, 1}},
		{tolerance.Sigmoid, "[0, 0, 0]", []float64{0.5, 0.5, 0.5}},
		{tolerance.Tanh, "[0, 0, 0]", []float64{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			out := run(t, tt.op, `{
				"name": "unary",
				"inputs": {"input": {"shape": [3], "data": `+tt.in+`, "type": "float32"}},
				"expected": {"name": "output", "shape": [3], "data": 0, "type": "float32"}
			}`)
			assert.Equal(t, tt.want, out["output"].Floats())
		})
	}
}

func TestFloat16RoundTrip(t *testing.T) {
	out := run(t, tolerance.Relu, `{
		"name": "relu float16",
		"inputs": {"input": {"shape": [3], "data": [-1, 0.1, 2], "type": "float16"}},
		"expected": {"name": "output", "shape": [3], "data": 0, "type": "float16"}
	}`)

	bits, err := out["output"].HalfBits()
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, numeric.ToHalf(0.1), 0x4000}, bits)
}

func TestBinaryBroadcast(t *testing.T) {
	out := run(t, tolerance.Add, `{
		"name": "add broadcast",
		"inputs": {
			"a": {"shape": [2, 2], "data": [1, 2, 3, 4], "type": "float32"},
			"b": {"shape": [2], "data": [10, 20], "type": "float32", "constant": true}
		},
		"expected": {"name": "output", "shape": [2, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{11, 22, 13, 24}, out["output"].Floats())
}

func TestGemmWithOptions(t *testing.T) {
	out := run(t, tolerance.Gemm, `{
		"name": "gemm",
		"inputs": {
			"a": {"shape": [2, 3], "data": [1, 2, 3, 4, 5, 6], "type": "float32"},
			"b": {"shape": [3, 2], "data": [1, 0, 0, 1, 1, 1], "type": "float32", "constant": true}
		},
		"options": {"c": {"shape": [2], "data": [1, 1], "type": "float32"}, "alpha": 2, "beta": 0.5},
		"expected": {"name": "output", "shape": [2, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{8.5, 10.5, 20.5, 22.5}, out["output"].Floats())
}

func TestGemmScalarC(t *testing.T) {
	out := run(t, tolerance.Gemm, `{
		"name": "gemm scalar c",
		"inputs": {
			"a": {"shape": [1, 1], "data": [2], "type": "float32"},
			"b": {"shape": [1, 1], "data": [3], "type": "float32"}
		},
		"options": {"c": 4},
		"expected": {"name": "output", "shape": [1, 1], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{10}, out["output"].Floats())
}

func TestReduceToScalarOutput(t *testing.T) {
	out := run(t, tolerance.ReduceSum, `{
		"name": "reduceSum all",
		"inputs": {"input": {"shape": [2, 2], "data": [1, 2, 3, 4], "type": "float32"}},
		"expected": {"name": "output", "data": 10, "type": "float32"}
	}`)
	assert.Equal(t, []float64{10}, out["output"].Floats())
}

func TestReduceAxes(t *testing.T) {
	out := run(t, tolerance.ReduceMean, `{
		"name": "reduceMean axis 1",
		"inputs": {"input": {"shape": [2, 2], "data": [1, 3, 5, 7], "type": "float32"}},
		"options": {"axes": [1], "keepDimensions": true},
		"expected": {"name": "output", "shape": [2, 1], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{2, 6}, out["output"].Floats())
}

func TestReduceKinds(t *testing.T) {
	tests := []struct {
		op   tolerance.Operator
		want float64
	}{
		{tolerance.ReduceSum, 10},
		{tolerance.ReduceProduct, 24},
		{tolerance.ReduceL1, 10},
		{tolerance.ReduceL2, math.Sqrt(30)},
		{tolerance.ReduceSumSquare, 30},
		{tolerance.ReduceLogSum, math.Log(10)},
		{tolerance.ReduceLogSumExp, math.Log(math.Exp(1) + math.Exp(2) + math.Exp(3) + math.Exp(4))},
		{tolerance.ReduceMax, 4},
		{tolerance.ReduceMin, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			out := run(t, tt.op, `{
				"name": "reduce all",
				"inputs": {"input": {"shape": [4], "data": [1, 2, 3, 4], "type": "float32"}},
				"expected": {"name": "output", "data": 0, "type": "float32"}
			}`)

			got := out["output"].Floats()
			require.Len(t, got, 1)
			assert.InDelta(t, tt.want, got[0], 1e-5)
		})
	}
}

func TestSoftmaxDefaultsToAxisOne(t *testing.T) {
	out := run(t, tolerance.Softmax, `{
		"name": "softmax",
		"inputs": {"input": {"shape": [2, 2], "data": [0, 0, 1, 1], "type": "float32"}},
		"expected": {"name": "output", "shape": [2, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, out["output"].Floats())
}

func TestShapeOperators(t *testing.T) {
	out := run(t, tolerance.Transpose, `{
		"name": "transpose",
		"inputs": {"input": {"shape": [2, 3], "data": [1, 2, 3, 4, 5, 6], "type": "float32"}},
		"expected": {"name": "output", "shape": [3, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, out["output"].Floats())

	out = run(t, tolerance.Reshape, `{
		"name": "reshape",
		"inputs": {"input": {"shape": [2, 3], "data": [1, 2, 3, 4, 5, 6], "type": "float32"}},
		"newShape": [3, 2],
		"expected": {"name": "output", "shape": [3, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, out["output"].Floats())

	out = run(t, tolerance.Slice, `{
		"name": "slice",
		"inputs": {"input": {"shape": [2, 3], "data": [1, 2, 3, 4, 5, 6], "type": "float32"}},
		"starts": [1, 1],
		"sizes": [1, 2],
		"expected": {"name": "output", "shape": [1, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{5, 6}, out["output"].Floats())

	out = run(t, tolerance.Concat, `{
		"name": "concat",
		"inputs": [
			{"name": "input1", "shape": [1, 2], "data": [1, 2], "type": "float32"},
			{"name": "input2", "shape": [1, 2], "data": [3, 4], "type": "float32", "constant": true}
		],
		"axis": 0,
		"expected": {"name": "output", "shape": [2, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{1, 2, 3, 4}, out["output"].Floats())
}

func TestSplit(t *testing.T) {
	out := run(t, tolerance.Split, `{
		"name": "split",
		"inputs": {"input": {"shape": [2, 3], "data": [1, 2, 3, 4, 5, 6], "type": "float32"}},
		"splits": [1, 2],
		"options": {"axis": 1},
		"expected": [
			{"name": "output1", "shape": [2, 1], "data": 0, "type": "float32"},
			{"name": "output2", "shape": [2, 2], "data": 0, "type": "float32"}
		]
	}`)
	assert.Equal(t, []float64{1, 4}, out["output1"].Floats())
	assert.Equal(t, []float64{2, 3, 5, 6}, out["output2"].Floats())
}

func TestIntegerOutput(t *testing.T) {
	out := run(t, tolerance.Relu, `{
		"name": "relu int8",
		"inputs": {"input": {"shape": [3], "data": [-5, 0, 7], "type": "int8"}},
		"expected": {"name": "output", "shape": [3], "data": 0, "type": "int8"}
	}`)
	assert.Equal(t, []float64{0, 0, 7}, out["output"].Floats())
}

func TestUnsupportedOperator(t *testing.T) {
	b := New(nil)

	_, err := b.Build(context.Background(), host.GraphSpec{Operator: tolerance.ConvTranspose2d})
	require.Error(t, err)
	assert.True(t, errors.Is(err, host.ErrUnsupportedOperator))
}

func TestComputeMissingInput(t *testing.T) {
	var c fixture.Case
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "relu",
		"inputs": {"input": {"shape": [1], "data": [1], "type": "float32"}},
		"expected": {"name": "output", "shape": [1], "data": 1, "type": "float32"}
	}`), &c))

	spec, _, outputs, err := host.BuildGraph(tolerance.Relu, &c)
	require.NoError(t, err)

	b := New(nil)
	g, err := b.Build(context.Background(), spec)
	require.NoError(t, err)

	err = b.Compute(context.Background(), g, map[string]*buffer.Buffer{}, outputs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing input "input"`)
}

func TestComputeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := New(nil)
	err := b.Compute(ctx, &graph{}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOperatorsSorted(t *testing.T) {
	ops := Operators()
	require.NotEmpty(t, ops)
	assert.True(t, slices.IsSorted(ops))
	assert.Contains(t, ops, tolerance.Gemm)
}

func TestConv2d(t *testing.T) {
	out := run(t, tolerance.Conv2d, `{
		"name": "conv2d with padding and bias",
		"inputs": {
			"input": {"shape": [1, 1, 3, 3], "data": [1, 2, 3, 4, 5, 6, 7, 8, 9], "type": "float32"},
			"filter": {"shape": [1, 1, 2, 2], "data": 1, "type": "float32", "constant": true}
		},
		"options": {
			"padding": [1, 1, 1, 1],
			"strides": [2, 2],
			"bias": {"shape": [1], "data": [10], "type": "float32"}
		},
		"expected": {"name": "output", "shape": [1, 1, 2, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{11, 15, 21, 38}, out["output"].Floats())
}

func TestConv2dNHWC(t *testing.T) {
	out := run(t, tolerance.Conv2d, `{
		"name": "conv2d nhwc ohwi",
		"inputs": {
			"input": {"shape": [1, 2, 2, 2], "data": [1, 5, 2, 6, 3, 7, 4, 8], "type": "float32"},
			"filter": {"shape": [1, 1, 1, 2], "data": [1, 1], "type": "float32", "constant": true}
		},
		"options": {"inputLayout": "nhwc", "filterLayout": "ohwi"},
		"expected": {"name": "output", "shape": [1, 2, 2, 1], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{6, 8, 10, 12}, out["output"].Floats())
}

func TestConv2dRejectsShortPadding(t *testing.T) {
	var c fixture.Case
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "bad padding",
		"inputs": {
			"input": {"shape": [1, 1, 2, 2], "data": 1, "type": "float32"},
			"filter": {"shape": [1, 1, 1, 1], "data": 1, "type": "float32"}
		},
		"options": {"padding": [1, 1]},
		"expected": {"name": "output", "shape": [1, 1, 2, 2], "data": 0, "type": "float32"}
	}`), &c))

	spec, inputs, outputs, err := host.BuildGraph(tolerance.Conv2d, &c)
	require.NoError(t, err)

	b := New(nil)
	g, err := b.Build(context.Background(), spec)
	require.NoError(t, err)

	err = b.Compute(context.Background(), g, inputs, outputs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "padding")
}

func TestPooling(t *testing.T) {
	tests := []struct {
		op   tolerance.Operator
		want []float64
	}{
		{tolerance.AveragePool2d, []float64{3.5, 5.5, 11.5, 13.5}},
		{tolerance.MaxPool2d, []float64{6, 8, 14, 16}},
	}

	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			out := run(t, tt.op, `{
				"name": "pool 2x2",
				"inputs": {"input": {"shape": [1, 1, 4, 4], "data": [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16], "type": "float32"}},
				"options": {"windowDimensions": [2, 2], "strides": [2, 2]},
				"expected": {"name": "output", "shape": [1, 1, 2, 2], "data": 0, "type": "float32"}
			}`)
			assert.Equal(t, tt.want, out["output"].Floats())
		})
	}
}

func TestPoolingCeilRounding(t *testing.T) {
	out := run(t, tolerance.MaxPool2d, `{
		"name": "max pool ceil",
		"inputs": {"input": {"shape": [1, 1, 3, 3], "data": [1, 2, 3, 4, 5, 6, 7, 8, 9], "type": "float32"}},
		"options": {"windowDimensions": [2, 2], "strides": [2, 2], "roundingType": "ceil"},
		"expected": {"name": "output", "shape": [1, 1, 2, 2], "data": 0, "type": "float32"}
	}`)
	assert.Equal(t, []float64{5, 6, 8, 9}, out["output"].Floats())
}

func TestL2PoolGlobalFloat16(t *testing.T) {
	out := run(t, tolerance.L2Pool2d, `{
		"name": "l2 pool global",
		"inputs": {"input": {"shape": [1, 1, 2, 2], "data": [3, 4, 0, 0], "type": "float16"}},
		"expected": {"name": "output", "shape": [1, 1, 1, 1], "data": 0, "type": "float16"}
	}`)
	assert.Equal(t, []float64{5}, out["output"].Floats())
}
