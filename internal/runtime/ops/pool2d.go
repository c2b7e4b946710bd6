package ops

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/go-webnn-conformance/internal/runtime/parallel"
	"github.com/example/go-webnn-conformance/internal/runtime/tensor"
)

// PoolKind selects the reduction applied over each window.
type PoolKind int

const (
	PoolAverage PoolKind = iota
	PoolMax
	PoolL2
)

func (k PoolKind) String() string {
	switch k {
	case PoolAverage:
		return "averagePool2d"
	case PoolMax:
		return "maxPool2d"
	case PoolL2:
		return "l2Pool2d"
	default:
		return fmt.Sprintf("pool(%d)", int(k))
	}
}

// Pool2DParams configures Pool2D. A zero WindowDims covers the whole
// spatial extent of the input. OutputSizes, when set, overrides the
// computed output height and width; otherwise Ceil selects ceil rounding.
type Pool2DParams struct {
	Window
	WindowDims  [2]int64
	OutputSizes []int64
	Ceil        bool
}

// Pool2D pools an NCHW input. Padded positions are left out of every
// window, so an average divides by the count of real elements.
func Pool2D(input *tensor.Tensor, kind PoolKind, p Pool2DParams) (*tensor.Tensor, error) {
	if input == nil {
		return nil, errors.New("ops: pool2d on nil tensor")
	}

	if err := p.validate(kind.String()); err != nil {
		return nil, err
	}

	shape := input.Shape()
	if len(shape) != 4 {
		return nil, fmt.Errorf("ops: %s expects rank 4 input, got %v", kind, shape)
	}

	batch, ch, inH, inW := shape[0], shape[1], shape[2], shape[3]

	kh, kw := p.WindowDims[0], p.WindowDims[1]
	if kh == 0 && kw == 0 {
		kh, kw = inH, inW
	}

	if kh <= 0 || kw <= 0 {
		return nil, fmt.Errorf("ops: %s window %dx%d must be positive", kind, kh, kw)
	}

	outH := p.outputSize(0, inH, kh, p.Ceil)
	outW := p.outputSize(1, inW, kw, p.Ceil)

	if p.OutputSizes != nil {
		if len(p.OutputSizes) != 2 {
			return nil, fmt.Errorf("ops: %s outputSizes %v needs two entries", kind, p.OutputSizes)
		}

		outH, outW = p.OutputSizes[0], p.OutputSizes[1]
	}

	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("ops: %s output size %dx%d is empty", kind, outH, outW)
	}

	out, err := tensor.Zeros([]int64{batch, ch, outH, outW})
	if err != nil {
		return nil, err
	}

	src, dst := input.RawData(), out.RawData()
	sh, sw := p.stride(0), p.stride(1)
	dh, dw := p.dilation(0), p.dilation(1)
	top, left := p.Padding[0], p.Padding[2]

	parallel.For(int(batch*ch), func(lo, hi int) {
		for plane := lo; plane < hi; plane++ {
			in := src[int64(plane)*inH*inW : int64(plane+1)*inH*inW]
			o := dst[int64(plane)*outH*outW : int64(plane+1)*outH*outW]

			for oy := range outH {
				for ox := range outW {
					var (
						acc   float64
						count int
					)

					if kind == PoolMax {
						acc = math.Inf(-1)
					}

					for ky := range kh {
						y := oy*sh - top + ky*dh
						if y < 0 || y >= inH {
							continue
						}

						for kx := range kw {
							x := ox*sw - left + kx*dw
							if x < 0 || x >= inW {
								continue
							}

							v := float64(in[y*inW+x])
							count++

							switch kind {
							case PoolMax:
								acc = math.Max(acc, v)
							case PoolL2:
								acc += v * v
							default:
								acc += v
							}
						}
					}

					o[oy*outW+ox] = float32(finishPool(kind, acc, count))
				}
			}
		}
	})

	return out, nil
}

func finishPool(kind PoolKind, acc float64, count int) float64 {
	if count == 0 {
		return 0
	}

	switch kind {
	case PoolAverage:
		return acc / float64(count)
	case PoolL2:
		return math.Sqrt(acc)
	default:
		return acc
	}
}
