package ops

import (
	"fmt"

	"github.com/example/go-webnn-conformance/internal/runtime/tensor"
)

// Input layouts.
const (
	LayoutNCHW = "nchw"
	LayoutNHWC = "nhwc"
)

// Filter layouts accepted by Conv2D callers.
const (
	FilterOIHW = "oihw"
	FilterHWIO = "hwio"
	FilterOHWI = "ohwi"
	FilterIHWO = "ihwo"
)

var filterToOIHW = map[string][]int{
	FilterHWIO: {3, 2, 0, 1},
	FilterOHWI: {0, 3, 1, 2},
	FilterIHWO: {3, 0, 1, 2},
}

// ToNCHW returns x in channel-first order. An empty layout means nchw.
func ToNCHW(x *tensor.Tensor, layout string) (*tensor.Tensor, error) {
	switch layout {
	case "", LayoutNCHW:
		return x, nil
	case LayoutNHWC:
		return x.Permute([]int{0, 3, 1, 2})
	default:
		return nil, fmt.Errorf("ops: unsupported input layout %q", layout)
	}
}

// FromNCHW converts a channel-first result back to layout.
func FromNCHW(x *tensor.Tensor, layout string) (*tensor.Tensor, error) {
	switch layout {
	case "", LayoutNCHW:
		return x, nil
	case LayoutNHWC:
		return x.Permute([]int{0, 2, 3, 1})
	default:
		return nil, fmt.Errorf("ops: unsupported input layout %q", layout)
	}
}

// FilterToOIHW reorders a conv2d filter to [out, in/groups, h, w]. An empty
// layout means oihw.
func FilterToOIHW(f *tensor.Tensor, layout string) (*tensor.Tensor, error) {
	if layout == "" || layout == FilterOIHW {
		return f, nil
	}

	perm, ok := filterToOIHW[layout]
	if !ok {
		return nil, fmt.Errorf("ops: unsupported filter layout %q", layout)
	}

	return f.Permute(perm)
}
