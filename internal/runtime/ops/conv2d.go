package ops

import (
	"errors"
	"fmt"

	"github.com/example/go-webnn-conformance/internal/runtime/parallel"
	"github.com/example/go-webnn-conformance/internal/runtime/tensor"
)

// Window describes the spatial sliding of a conv or pool kernel.
// Padding is [top, bottom, left, right]; Strides and Dilations are
// [height, width]. Zero strides or dilations mean 1.
type Window struct {
	Padding   [4]int64
	Strides   [2]int64
	Dilations [2]int64
}

func (w Window) stride(i int) int64 {
	if w.Strides[i] == 0 {
		return 1
	}

	return w.Strides[i]
}

func (w Window) dilation(i int) int64 {
	if w.Dilations[i] == 0 {
		return 1
	}

	return w.Dilations[i]
}

func (w Window) validate(op string) error {
	for i := range 2 {
		if w.Strides[i] < 0 || w.Dilations[i] < 0 {
			return fmt.Errorf("ops: %s strides %v and dilations %v must be positive", op, w.Strides, w.Dilations)
		}
	}

	for _, p := range w.Padding {
		if p < 0 {
			return fmt.Errorf("ops: %s padding %v must not be negative", op, w.Padding)
		}
	}

	return nil
}

// outputSize is the number of window positions along spatial axis i.
func (w Window) outputSize(i int, in, kernel int64, ceil bool) int64 {
	span := in + w.Padding[2*i] + w.Padding[2*i+1] - w.dilation(i)*(kernel-1) - 1
	s := w.stride(i)

	if ceil && span%s != 0 && span > 0 {
		return span/s + 2
	}

	return span/s + 1
}

// Conv2D convolves an NCHW input with an OIHW filter
// [out, in/groups, kh, kw]. bias may be nil or hold one value per output
// channel.
func Conv2D(input, filter, bias *tensor.Tensor, win Window, groups int64) (*tensor.Tensor, error) {
	p, err := prepareConv2D(input, filter, bias, win, groups)
	if err != nil {
		return nil, err
	}

	out, err := tensor.Zeros([]int64{p.batch, p.outCh, p.outH, p.outW})
	if err != nil {
		return nil, err
	}

	var biasData []float32
	if bias != nil {
		biasData = bias.RawData()
	}

	if groups == 1 {
		conv2DIm2col(input.RawData(), filter.RawData(), biasData, out.RawData(), p)
	} else {
		conv2DGrouped(input.RawData(), filter.RawData(), biasData, out.RawData(), p)
	}

	return out, nil
}

type conv2DParams struct {
	win Window

	batch, inCh, inH, inW int64
	outCh, kh, kw         int64
	outH, outW            int64
	groups                int64
	inPerGroup            int64
	outPerGroup           int64
}

func prepareConv2D(input, filter, bias *tensor.Tensor, win Window, groups int64) (conv2DParams, error) {
	if input == nil || filter == nil {
		return conv2DParams{}, errors.New("ops: conv2d requires non-nil input and filter")
	}

	if groups <= 0 {
		return conv2DParams{}, fmt.Errorf("ops: conv2d groups must be > 0, got %d", groups)
	}

	if err := win.validate("conv2d"); err != nil {
		return conv2DParams{}, err
	}

	in, f := input.Shape(), filter.Shape()
	if len(in) != 4 || len(f) != 4 {
		return conv2DParams{}, fmt.Errorf("ops: conv2d expects rank 4 input and filter, got %v and %v", in, f)
	}

	p := conv2DParams{
		win:    win,
		batch:  in[0],
		inCh:   in[1],
		inH:    in[2],
		inW:    in[3],
		outCh:  f[0],
		kh:     f[2],
		kw:     f[3],
		groups: groups,
	}

	if p.inCh%groups != 0 || p.outCh%groups != 0 {
		return conv2DParams{}, fmt.Errorf("ops: conv2d channels (%d in, %d out) not divisible by groups %d", p.inCh, p.outCh, groups)
	}

	p.inPerGroup = p.inCh / groups
	p.outPerGroup = p.outCh / groups

	if f[1] != p.inPerGroup {
		return conv2DParams{}, fmt.Errorf("ops: conv2d filter shape %v wants %d input channels per group, input has %d", f, f[1], p.inPerGroup)
	}

	if bias != nil {
		if b := bias.Shape(); len(b) != 1 || b[0] != p.outCh {
			return conv2DParams{}, fmt.Errorf("ops: conv2d bias shape %v does not match %d output channels", b, p.outCh)
		}
	}

	p.outH = win.outputSize(0, p.inH, p.kh, false)
	p.outW = win.outputSize(1, p.inW, p.kw, false)

	if p.outH <= 0 || p.outW <= 0 {
		return conv2DParams{}, fmt.Errorf("ops: conv2d output size %dx%d is empty", p.outH, p.outW)
	}

	return p, nil
}

// conv2DIm2col gathers every receptive field into a row of a patch matrix
// [outH*outW, inCh*kh*kw] so each output value is one dot product with a
// filter row.
func conv2DIm2col(inData, fData, biasData, outData []float32, p conv2DParams) {
	patchLen := int(p.inCh * p.kh * p.kw)
	positions := int(p.outH * p.outW)

	imcol := getScratch(positions * patchLen)
	defer putScratch(imcol)

	sh, sw := p.win.stride(0), p.win.stride(1)
	dh, dw := p.win.dilation(0), p.win.dilation(1)
	top, left := p.win.Padding[0], p.win.Padding[2]

	for b := range p.batch {
		if b > 0 {
			clear(imcol)
		}

		for ic := range p.inCh {
			plane := (b*p.inCh + ic) * p.inH * p.inW

			for ky := range p.kh {
				for kx := range p.kw {
					col := int((ic*p.kh+ky)*p.kw + kx)

					for oy := range p.outH {
						y := oy*sh - top + ky*dh
						if y < 0 || y >= p.inH {
							continue
						}

						for ox := range p.outW {
							x := ox*sw - left + kx*dw
							if x < 0 || x >= p.inW {
								continue
							}

							imcol[int(oy*p.outW+ox)*patchLen+col] = inData[plane+y*p.inW+x]
						}
					}
				}
			}
		}

		outBase := int(b * p.outCh) * positions

		parallel.For(int(p.outCh), func(lo, hi int) {
			for oc := lo; oc < hi; oc++ {
				row := fData[oc*patchLen : (oc+1)*patchLen]

				var bias float32
				if biasData != nil {
					bias = biasData[oc]
				}

				dst := outData[outBase+oc*positions : outBase+(oc+1)*positions]
				for pos := range dst {
					dst[pos] = dot(row, imcol[pos*patchLen:(pos+1)*patchLen]) + bias
				}
			}
		})
	}
}

func conv2DGrouped(inData, fData, biasData, outData []float32, p conv2DParams) {
	sh, sw := p.win.stride(0), p.win.stride(1)
	dh, dw := p.win.dilation(0), p.win.dilation(1)
	top, left := p.win.Padding[0], p.win.Padding[2]

	parallel.For(int(p.batch*p.outCh), func(lo, hi int) {
		for n := lo; n < hi; n++ {
			b, oc := int64(n)/p.outCh, int64(n)%p.outCh
			g := oc / p.outPerGroup

			var bias float32
			if biasData != nil {
				bias = biasData[oc]
			}

			for oy := range p.outH {
				for ox := range p.outW {
					sum := bias

					for ic := range p.inPerGroup {
						plane := (b*p.inCh + g*p.inPerGroup + ic) * p.inH * p.inW
						fBase := (oc*p.inPerGroup + ic) * p.kh * p.kw

						for ky := range p.kh {
							y := oy*sh - top + ky*dh
							if y < 0 || y >= p.inH {
								continue
							}

							for kx := range p.kw {
								x := ox*sw - left + kx*dw
								if x < 0 || x >= p.inW {
									continue
								}

								sum += inData[plane+y*p.inW+x] * fData[fBase+ky*p.kw+kx]
							}
						}
					}

					outData[((b*p.outCh+oc)*p.outH+oy)*p.outW+ox] = sum
				}
			}
		}
	})
}
