package ops

import (
	"math"
	"testing"

	"github.com/example/go-webnn-conformance/internal/runtime/parallel"
	"github.com/example/go-webnn-conformance/internal/runtime/tensor"
)

func mustTensor(t *testing.T, data []float32, shape ...int64) *tensor.Tensor {
	t.Helper()

	x, err := tensor.New(data, shape)
	if err != nil {
		t.Fatalf("tensor.New(%v): %v", shape, err)
	}

	return x
}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}

	return out
}

func assertData(t *testing.T, got *tensor.Tensor, wantShape []int64, want []float32) {
	t.Helper()

	shape := got.Shape()
	if len(shape) != len(wantShape) {
		t.Fatalf("shape = %v, want %v", shape, wantShape)
	}

	for i := range shape {
		if shape[i] != wantShape[i] {
			t.Fatalf("shape = %v, want %v", shape, wantShape)
		}
	}

	data := got.Data()
	for i := range want {
		if math.Abs(float64(data[i]-want[i])) > 1e-5 {
			t.Fatalf("data = %v, want %v", data, want)
		}
	}
}

func TestConv2D_Basic(t *testing.T) {
	in := mustTensor(t, seq(9), 1, 1, 3, 3)
	f := mustTensor(t, []float32{1, 1, 1, 1}, 1, 1, 2, 2)

	out, err := Conv2D(in, f, nil, Window{}, 1)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	assertData(t, out, []int64{1, 1, 2, 2}, []float32{12, 16, 24, 28})
}

func TestConv2D_PaddingStrideBias(t *testing.T) {
	in := mustTensor(t, seq(9), 1, 1, 3, 3)
	f := mustTensor(t, []float32{1, 1, 1, 1}, 1, 1, 2, 2)
	bias := mustTensor(t, []float32{10}, 1)

	win := Window{Padding: [4]int64{1, 1, 1, 1}, Strides: [2]int64{2, 2}}

	out, err := Conv2D(in, f, bias, win, 1)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	// Windows at rows/cols {-1,0} and {1,2} of the padded input.
	assertData(t, out, []int64{1, 1, 2, 2}, []float32{11, 10 + 2 + 3, 10 + 4 + 7, 10 + 5 + 6 + 8 + 9})
}

func TestConv2D_Dilation(t *testing.T) {
	in := mustTensor(t, seq(9), 1, 1, 3, 3)
	f := mustTensor(t, []float32{1, 1, 1, 1}, 1, 1, 2, 2)

	out, err := Conv2D(in, f, nil, Window{Dilations: [2]int64{2, 2}}, 1)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	assertData(t, out, []int64{1, 1, 1, 1}, []float32{1 + 3 + 7 + 9})
}

func TestConv2D_GroupedMatchesPerChannel(t *testing.T) {
	// Depthwise: each of two channels convolved with its own 1x1 filter.
	in := mustTensor(t, seq(8), 1, 2, 2, 2)
	f := mustTensor(t, []float32{2, -1}, 2, 1, 1, 1)

	out, err := Conv2D(in, f, nil, Window{}, 2)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	assertData(t, out, []int64{1, 2, 2, 2}, []float32{2, 4, 6, 8, -5, -6, -7, -8})
}

func TestConv2D_MultiChannelSums(t *testing.T) {
	in := mustTensor(t, seq(8), 1, 2, 2, 2)
	f := mustTensor(t, []float32{1, 1}, 1, 2, 1, 1)

	out, err := Conv2D(in, f, nil, Window{}, 1)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	assertData(t, out, []int64{1, 1, 2, 2}, []float32{6, 8, 10, 12})
}

func TestConv2D_ParallelMatchesSequential(t *testing.T) {
	in := mustTensor(t, seq(2*3*5*5), 2, 3, 5, 5)
	f := mustTensor(t, seq(4*3*3*3), 4, 3, 3, 3)
	win := Window{Padding: [4]int64{1, 1, 1, 1}}

	parallel.SetWorkers(1)

	want, err := Conv2D(in, f, nil, win, 1)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	parallel.SetWorkers(4)
	t.Cleanup(func() { parallel.SetWorkers(1) })

	got, err := Conv2D(in, f, nil, win, 1)
	if err != nil {
		t.Fatalf("Conv2D: %v", err)
	}

	assertData(t, got, want.Shape(), want.Data())
}

func TestConv2D_Errors(t *testing.T) {
	in := mustTensor(t, seq(9), 1, 1, 3, 3)
	f := mustTensor(t, []float32{1, 1, 1, 1}, 1, 1, 2, 2)

	tests := []struct {
		name   string
		input  *tensor.Tensor
		filter *tensor.Tensor
		bias   *tensor.Tensor
		win    Window
		groups int64
	}{
		{"nil input", nil, f, nil, Window{}, 1},
		{"zero groups", in, f, nil, Window{}, 0},
		{"rank 3", mustTensor(t, seq(9), 1, 3, 3), f, nil, Window{}, 1},
		{"bad bias", in, f, mustTensor(t, []float32{1, 2}, 2), Window{}, 1},
		{"channel mismatch", in, mustTensor(t, seq(8), 1, 2, 2, 2), nil, Window{}, 1},
		{"negative padding", in, f, nil, Window{Padding: [4]int64{-1, 0, 0, 0}}, 1},
		{"empty output", in, mustTensor(t, seq(16), 1, 1, 4, 4), nil, Window{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Conv2D(tt.input, tt.filter, tt.bias, tt.win, tt.groups); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLayouts(t *testing.T) {
	// NHWC [1, 1, 2, 2]: two pixels with two channels each.
	nhwc := mustTensor(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)

	nchw, err := ToNCHW(nhwc, LayoutNHWC)
	if err != nil {
		t.Fatalf("ToNCHW: %v", err)
	}

	assertData(t, nchw, []int64{1, 2, 1, 2}, []float32{1, 3, 2, 4})

	back, err := FromNCHW(nchw, LayoutNHWC)
	if err != nil {
		t.Fatalf("FromNCHW: %v", err)
	}

	assertData(t, back, []int64{1, 1, 2, 2}, []float32{1, 2, 3, 4})

	if _, err := ToNCHW(nhwc, "chwn"); err == nil {
		t.Fatal("expected error for unknown layout")
	}
}

func TestFilterToOIHW(t *testing.T) {
	// hwio [1, 1, 2, 3]: in=2, out=3.
	hwio := mustTensor(t, seq(6), 1, 1, 2, 3)

	oihw, err := FilterToOIHW(hwio, FilterHWIO)
	if err != nil {
		t.Fatalf("FilterToOIHW: %v", err)
	}

	assertData(t, oihw, []int64{3, 2, 1, 1}, []float32{1, 4, 2, 5, 3, 6})

	same, err := FilterToOIHW(hwio, "")
	if err != nil || same != hwio {
		t.Fatalf("empty layout should be a no-op, got %v, %v", same, err)
	}

	if _, err := FilterToOIHW(hwio, "iohw"); err == nil {
		t.Fatal("expected error for unsupported conv2d filter layout")
	}
}

func TestPool2D_Kinds(t *testing.T) {
	in := mustTensor(t, seq(16), 1, 1, 4, 4)
	p := Pool2DParams{WindowDims: [2]int64{2, 2}, Window: Window{Strides: [2]int64{2, 2}}}

	tests := []struct {
		kind PoolKind
		want []float32
	}{
		{PoolAverage, []float32{3.5, 5.5, 11.5, 13.5}},
		{PoolMax, []float32{6, 8, 14, 16}},
		{PoolL2, []float32{
			float32(math.Sqrt(1 + 4 + 25 + 36)),
			float32(math.Sqrt(9 + 16 + 49 + 64)),
			float32(math.Sqrt(81 + 100 + 169 + 196)),
			float32(math.Sqrt(121 + 144 + 225 + 256)),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			out, err := Pool2D(in, tt.kind, p)
			if err != nil {
				t.Fatalf("Pool2D: %v", err)
			}

			assertData(t, out, []int64{1, 1, 2, 2}, tt.want)
		})
	}
}

func TestPool2D_GlobalWindow(t *testing.T) {
	in := mustTensor(t, seq(8), 1, 2, 2, 2)

	out, err := Pool2D(in, PoolAverage, Pool2DParams{})
	if err != nil {
		t.Fatalf("Pool2D: %v", err)
	}

	assertData(t, out, []int64{1, 2, 1, 1}, []float32{2.5, 6.5})
}

func TestPool2D_PaddingExcludedFromAverage(t *testing.T) {
	in := mustTensor(t, seq(4), 1, 1, 2, 2)
	p := Pool2DParams{WindowDims: [2]int64{2, 2}, Window: Window{Padding: [4]int64{1, 0, 1, 0}}}

	out, err := Pool2D(in, PoolAverage, p)
	if err != nil {
		t.Fatalf("Pool2D: %v", err)
	}

	assertData(t, out, []int64{1, 1, 2, 2}, []float32{1, 1.5, 2, 2.5})
}

func TestPool2D_CeilAndOutputSizes(t *testing.T) {
	in := mustTensor(t, seq(25), 1, 1, 5, 5)
	p := Pool2DParams{WindowDims: [2]int64{2, 2}, Window: Window{Strides: [2]int64{2, 2}}}

	floor, err := Pool2D(in, PoolMax, p)
	if err != nil {
		t.Fatalf("Pool2D: %v", err)
	}

	if s := floor.Shape(); s[2] != 2 || s[3] != 2 {
		t.Fatalf("floor shape = %v, want 2x2", s)
	}

	p.Ceil = true

	ceil, err := Pool2D(in, PoolMax, p)
	if err != nil {
		t.Fatalf("Pool2D: %v", err)
	}

	assertData(t, ceil, []int64{1, 1, 3, 3}, []float32{7, 9, 10, 17, 19, 20, 22, 24, 25})

	p.Ceil = false
	p.OutputSizes = []int64{3, 3}

	sized, err := Pool2D(in, PoolMax, p)
	if err != nil {
		t.Fatalf("Pool2D: %v", err)
	}

	assertData(t, sized, []int64{1, 1, 3, 3}, ceil.Data())
}

func TestPool2D_Errors(t *testing.T) {
	in := mustTensor(t, seq(4), 1, 1, 2, 2)

	if _, err := Pool2D(nil, PoolMax, Pool2DParams{}); err == nil {
		t.Error("expected error for nil input")
	}

	if _, err := Pool2D(mustTensor(t, seq(4), 2, 2), PoolMax, Pool2DParams{}); err == nil {
		t.Error("expected error for rank 2 input")
	}

	if _, err := Pool2D(in, PoolMax, Pool2DParams{WindowDims: [2]int64{3, 3}}); err == nil {
		t.Error("expected error for window larger than input")
	}

	if _, err := Pool2D(in, PoolMax, Pool2DParams{OutputSizes: []int64{1}}); err == nil {
		t.Error("expected error for short outputSizes")
	}
}

func TestScratchPool(t *testing.T) {
	buf := getScratch(2000)
	if len(buf) != 2000 {
		t.Fatalf("len = %d, want 2000", len(buf))
	}

	buf[0] = 42
	putScratch(buf)

	again := getScratch(1500)
	for i, v := range again {
		if v != 0 {
			t.Fatalf("scratch[%d] = %v, want zeroed", i, v)
		}
	}

	if scratchClass(1) != 0 || scratchClass(1025) != 1 || scratchClass(1<<30) != 16 {
		t.Fatalf("unexpected size classes")
	}
}
