package tolerance

import (
	"errors"
	"fmt"
	"slices"

	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/operand"
)

var errMissingInput = errors.New("missing input")

// inputShape returns the shape of the i-th declared input.
func inputShape(c *fixture.Case, i int) ([]int64, error) {
	if c == nil || c.Inputs.Len() <= i {
		return nil, fmt.Errorf("%w %d", errMissingInput, i)
	}

	return c.Inputs.At(i).Shape, nil
}

func dim(shape []int64, i int) (float64, error) {
	if i < 0 || i >= len(shape) {
		return 0, fmt.Errorf("axis %d out of range for shape %v", i, shape)
	}

	return float64(shape[i]), nil
}

type convOptions struct {
	Groups       int64  `option:"groups"`
	InputLayout  string `option:"inputLayout"`
	FilterLayout string `option:"filterLayout"`
}

var (
	conv2dFilterLayouts          = []string{"oihw", "hwio", "ohwi", "ihwo"}
	convTranspose2dFilterLayouts = []string{"iohw", "hwoi", "ohwi"}
)

// convTolerance counts the products summed into one output element:
// filter height * filter width * input channels per group, times two.
func convTolerance(c *fixture.Case, op Operator) (float64, error) {
	input, err := inputShape(c, 0)
	if err != nil {
		return 0, err
	}

	filter, err := inputShape(c, 1)
	if err != nil {
		return 0, err
	}

	var opts convOptions
	if err := c.Options.Decode(&opts); err != nil {
		return 0, err
	}

	groups := float64(opts.Groups)
	if groups == 0 {
		groups = 1
	}

	channelAxis := 1

	switch opts.InputLayout {
	case "", "nchw":
	case "nhwc":
		channelAxis = 3
	default:
		return 0, fmt.Errorf("unsupported inputLayout %q", opts.InputLayout)
	}

	// oihw for conv2d and iohw for convTranspose2d keep the spatial axes last.
	hAxis, wAxis := 2, 3

	if opts.FilterLayout != "" {
		layouts := conv2dFilterLayouts
		if op == ConvTranspose2d {
			layouts = convTranspose2dFilterLayouts
		}

		if !slices.Contains(layouts, opts.FilterLayout) {
			return 0, fmt.Errorf("unsupported filterLayout %q", opts.FilterLayout)
		}

		switch opts.FilterLayout {
		case "hwio", "hwoi":
			hAxis, wAxis = 0, 1
		case "ohwi", "ihwo":
			hAxis, wAxis = 1, 2
		}
	}

	channels, err := dim(input, channelAxis)
	if err != nil {
		return 0, fmt.Errorf("input: %w", err)
	}

	h, err := dim(filter, hAxis)
	if err != nil {
		return 0, fmt.Errorf("filter: %w", err)
	}

	w, err := dim(filter, wAxis)
	if err != nil {
		return 0, fmt.Errorf("filter: %w", err)
	}

	return w * h * (channels / groups) * 2, nil
}

type gemmOptions struct {
	Alpha *float64 `option:"alpha"`
	Beta  *float64 `option:"beta"`
}

// gemmTolerance bounds alpha * (A x B) + beta * C by its lossy operations:
// a multiply and an add per inner element, one for a non-default alpha, and
// one or two for a weighted C.
func gemmTolerance(c *fixture.Case, _ Operator) (float64, error) {
	a, err := inputShape(c, 0)
	if err != nil {
		return 0, err
	}

	var opts gemmOptions
	if err := c.Options.Decode(&opts); err != nil {
		return 0, err
	}

	axis := 1
	if c.Options.Truthy("aTranspose") {
		axis = 0
	}

	width, err := dim(a, axis)
	if err != nil {
		return 0, fmt.Errorf("a: %w", err)
	}

	tol := width * 2

	if opts.Alpha != nil && *opts.Alpha != 1 {
		tol++
	}

	if c.Options.Truthy("c") && (opts.Beta == nil || *opts.Beta != 0) {
		if opts.Beta != nil && *opts.Beta != 1 {
			tol++
		}

		tol++
	}

	return tol, nil
}

// matmulTolerance uses the last axis of a; a rank-1 a is promoted to
// [1, n], so that axis is always the inner dimension.
func matmulTolerance(c *fixture.Case, _ Operator) (float64, error) {
	a, err := inputShape(c, 0)
	if err != nil {
		return 0, err
	}

	n, err := dim(a, len(a)-1)
	if err != nil {
		return 0, fmt.Errorf("a: %w", err)
	}

	return n * 2, nil
}

// poolTolerance is the window area plus two. Without windowDimensions the
// window is the spatial extent of the input: axes 1 and 2 for an nhwc
// layout, axes 2 and 3 otherwise.
func poolTolerance(c *fixture.Case, _ Operator) (float64, error) {
	input, err := inputShape(c, 0)
	if err != nil {
		return 0, err
	}

	window, ok, err := c.Options.Ints("windowDimensions")
	if err != nil {
		return 0, err
	}

	if ok {
		if len(window) < 2 {
			return 0, fmt.Errorf("windowDimensions %v needs two entries", window)
		}

		return float64(window[0]*window[1]) + 2, nil
	}

	hAxis, wAxis := 2, 3
	if c.Options.String("layout", "") == "nhwc" {
		hAxis, wAxis = 1, 2
	}

	h, err := dim(input, hAxis)
	if err != nil {
		return 0, fmt.Errorf("input: %w", err)
	}

	w, err := dim(input, wAxis)
	if err != nil {
		return 0, fmt.Errorf("input: %w", err)
	}

	return h*w + 2, nil
}

// softmaxTolerance is three operations per element along the softmax axis
// plus three.
func softmaxTolerance(c *fixture.Case, _ Operator) (float64, error) {
	input, err := inputShape(c, 0)
	if err != nil {
		return 0, err
	}

	axis, err := c.Options.Int("axis", 1)
	if err != nil {
		return 0, err
	}

	if axis < 0 {
		axis += int64(len(input))
	}

	n, err := dim(input, int(axis))
	if err != nil {
		return 0, fmt.Errorf("input: %w", err)
	}

	return n*3 + 3, nil
}

// reducedElementCount is the product of the reduced axis sizes. Without an
// axes option every axis is reduced.
func reducedElementCount(c *fixture.Case) (float64, error) {
	input, err := inputShape(c, 0)
	if err != nil {
		return 0, err
	}

	axes, ok, err := c.Options.Ints("axes")
	if err != nil {
		return 0, err
	}

	count := 1.0

	if !ok {
		for _, d := range input {
			count *= float64(d)
		}

		return count, nil
	}

	rank := int64(len(input))

	for _, axis := range axes {
		if axis < 0 {
			axis += rank
		}

		n, err := dim(input, int(axis))
		if err != nil {
			return 0, fmt.Errorf("input: %w", err)
		}

		count *= n
	}

	return count, nil
}

func reductionTolerance(c *fixture.Case, op Operator) (float64, error) {
	n, err := reducedElementCount(c)
	if err != nil {
		return 0, err
	}

	switch op {
	case ReduceL1, ReduceProduct, ReduceSum:
		return n, nil
	case ReduceL2:
		return n*2 + 1, nil
	case ReduceMean:
		return n + 2, nil
	case ReduceLogSum:
		return n + 18, nil
	case ReduceLogSumExp:
		return n*2 + 18, nil
	case ReduceSumSquare:
		return n * 2, nil
	default:
		return 0, fmt.Errorf("%s is not a reduction", op)
	}
}

// resampleTolerance depends only on the interpolation mode and output type.
func resampleTolerance(c *fixture.Case, _ Operator) (float64, error) {
	if c.Options.String("mode", "") != "linear" {
		return 0, nil
	}

	switch c.Expected.PrecisionType() {
	case operand.Float32:
		return 84, nil
	case operand.Float16:
		return 10, nil
	default:
		return 1, nil
	}
}
