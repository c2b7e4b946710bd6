package tensor

import (
	"errors"
	"fmt"
	"math"
)

// Reduction selects how Reduce folds the reduced elements.
type Reduction int

const (
	ReduceSum Reduction = iota
	ReduceMean
	ReduceMax
	ReduceMin
	ReduceProduct
	ReduceL1
	ReduceL2
	ReduceLogSum
	ReduceLogSumExp
	ReduceSumSquare
)

// Reduce folds x over axes. Nil axes reduce every dimension; an empty,
// non-nil axes list leaves x unchanged. Reduced dimensions are kept as size
// 1 when keepDims is set and dropped otherwise. Sums accumulate in float64.
//
//nolint:funlen,gocyclo // One switch per reduction kind keeps the fold readable.
func Reduce(x *Tensor, axes []int, keepDims bool, kind Reduction) (*Tensor, error) {
	if x == nil {
		return nil, errors.New("tensor: reduce on nil tensor")
	}

	rank := len(x.shape)
	reduced := make([]bool, rank)

	if axes == nil {
		for i := range reduced {
			reduced[i] = true
		}
	}

	for _, a := range axes {
		d, err := resolveAxis(a, rank)
		if err != nil {
			return nil, fmt.Errorf("tensor: reduce: %w", err)
		}

		if reduced[d] {
			return nil, fmt.Errorf("tensor: reduce: duplicate axis %d", a)
		}

		reduced[d] = true
	}

	keptShape := make([]int64, rank)
	outShape := make([]int64, 0, rank)
	count := int64(1)

	for d, size := range x.shape {
		if reduced[d] {
			keptShape[d] = 1
			count *= size

			if keepDims {
				outShape = append(outShape, 1)
			}

			continue
		}

		keptShape[d] = size
		outShape = append(outShape, size)
	}

	outCount, err := elemCount(keptShape)
	if err != nil {
		return nil, err
	}

	acc := make([]float64, outCount)

	for i := range acc {
		switch kind {
		case ReduceMax:
			acc[i] = math.Inf(-1)
		case ReduceMin:
			acc[i] = math.Inf(1)
		case ReduceProduct:
			acc[i] = 1
		}
	}

	srcStrides := stridesOf(x.shape)
	keptStrides := stridesOf(keptShape)
	coord := make([]int64, rank)

	for i, v := range x.data {
		unravel(int64(i), x.shape, srcStrides, coord)

		for d := range coord {
			if reduced[d] {
				coord[d] = 0
			}
		}

		o := ravel(coord, keptStrides)
		f := float64(v)

		switch kind {
		case ReduceSum, ReduceMean, ReduceLogSum:
			acc[o] += f
		case ReduceMax:
			acc[o] = math.Max(acc[o], f)
		case ReduceMin:
			acc[o] = math.Min(acc[o], f)
		case ReduceProduct:
			acc[o] *= f
		case ReduceL1:
			acc[o] += math.Abs(f)
		case ReduceL2, ReduceSumSquare:
			acc[o] += f * f
		case ReduceLogSumExp:
			acc[o] += math.Exp(f)
		default:
			return nil, fmt.Errorf("tensor: unknown reduction %d", kind)
		}
	}

	out := make([]float32, outCount)

	for i, a := range acc {
		switch kind {
		case ReduceMean:
			a /= float64(count)
		case ReduceL2:
			a = math.Sqrt(a)
		case ReduceLogSum, ReduceLogSumExp:
			a = math.Log(a)
		}

		out[i] = float32(a)
	}

	return newOwned(out, outShape), nil
}
