package reference

import (
	"fmt"

	"github.com/example/go-webnn-conformance/internal/runtime/ops"
	"github.com/example/go-webnn-conformance/internal/runtime/tensor"
)

// window builds the sliding geometry from the padding, strides and
// dilations options.
func window(padding, strides, dilations []int64) (ops.Window, error) {
	var w ops.Window

	if err := fill(w.Padding[:], padding, "padding"); err != nil {
		return w, err
	}

	if err := fill(w.Strides[:], strides, "strides"); err != nil {
		return w, err
	}

	if err := fill(w.Dilations[:], dilations, "dilations"); err != nil {
		return w, err
	}

	return w, nil
}

// fill copies an optional fixed-length option into dst.
func fill(dst, src []int64, key string) error {
	if src == nil {
		return nil
	}

	if len(src) != len(dst) {
		return fmt.Errorf("option %q wants %d values, got %v", key, len(dst), src)
	}

	copy(dst, src)

	return nil
}

type conv2dOptions struct {
	Padding      []int64 `option:"padding"`
	Strides      []int64 `option:"strides"`
	Dilations    []int64 `option:"dilations"`
	Groups       int64   `option:"groups"`
	InputLayout  string  `option:"inputLayout"`
	FilterLayout string  `option:"filterLayout"`
}

func conv2d(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(in) != 2 {
		return nil, fmt.Errorf("want 2 inputs, got %d", len(in))
	}

	var opts conv2dOptions
	if err := g.spec.Options.Decode(&opts); err != nil {
		return nil, err
	}

	win, err := window(opts.Padding, opts.Strides, opts.Dilations)
	if err != nil {
		return nil, err
	}

	groups := opts.Groups
	if groups == 0 {
		groups = 1
	}

	x, err := ops.ToNCHW(in[0], opts.InputLayout)
	if err != nil {
		return nil, err
	}

	f, err := ops.FilterToOIHW(in[1], opts.FilterLayout)
	if err != nil {
		return nil, err
	}

	out, err := ops.Conv2D(x, f, g.constants["option:bias"], win, groups)
	if err != nil {
		return nil, err
	}

	out, err = ops.FromNCHW(out, opts.InputLayout)
	if err != nil {
		return nil, err
	}

	return []*tensor.Tensor{out}, nil
}

type poolOptions struct {
	Padding          []int64 `option:"padding"`
	Strides          []int64 `option:"strides"`
	Dilations        []int64 `option:"dilations"`
	WindowDimensions []int64 `option:"windowDimensions"`
	OutputSizes      []int64 `option:"outputSizes"`
	RoundingType     string  `option:"roundingType"`
	Layout           string  `option:"layout"`
}

func pool(kind ops.PoolKind) kernel {
	return func(g *graph, in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		if len(in) != 1 {
			return nil, fmt.Errorf("want 1 input, got %d", len(in))
		}

		var opts poolOptions
		if err := g.spec.Options.Decode(&opts); err != nil {
			return nil, err
		}

		win, err := window(opts.Padding, opts.Strides, opts.Dilations)
		if err != nil {
			return nil, err
		}

		p := ops.Pool2DParams{Window: win, OutputSizes: opts.OutputSizes}

		if err := fill(p.WindowDims[:], opts.WindowDimensions, "windowDimensions"); err != nil {
			return nil, err
		}

		switch opts.RoundingType {
		case "", "floor":
		case "ceil":
			p.Ceil = true
		default:
			return nil, fmt.Errorf("unsupported roundingType %q", opts.RoundingType)
		}

		x, err := ops.ToNCHW(in[0], opts.Layout)
		if err != nil {
			return nil, err
		}

		out, err := ops.Pool2D(x, kind, p)
		if err != nil {
			return nil, err
		}

		out, err = ops.FromNCHW(out, opts.Layout)
		if err != nil {
			return nil, err
		}

		return []*tensor.Tensor{out}, nil
	}
}
