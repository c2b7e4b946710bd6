package tensor

import (
	"fmt"
	"math/bits"
)

// elemCount is the product of shape. A rank-0 shape holds one element.
func elemCount(shape []int64) (int, error) {
	var total uint64 = 1

	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("tensor: shape %v has negative dimension at %d", shape, i)
		}

		hi, lo := bits.Mul64(total, uint64(d))
		if hi != 0 || lo > uint64(int(^uint(0)>>1)) {
			return 0, fmt.Errorf("tensor: shape %v too large", shape)
		}

		total = lo
	}

	return int(total), nil
}

// resolveAxis maps a possibly negative axis into [0, rank).
func resolveAxis(axis, rank int) (int, error) {
	if rank < 0 {
		return 0, fmt.Errorf("invalid rank %d", rank)
	}

	d := axis
	if d < 0 {
		d += rank
	}

	if d < 0 || d >= rank {
		return 0, fmt.Errorf("axis %d out of range for rank %d", axis, rank)
	}

	return d, nil
}

// stridesOf returns row-major strides in elements.
func stridesOf(shape []int64) []int64 {
	if len(shape) == 0 {
		return nil
	}

	strides := make([]int64, len(shape))
	strides[len(shape)-1] = 1

	for i := len(shape) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}

	return strides
}

// unravel writes the coordinate of a linear offset into out.
func unravel(linear int64, shape, strides, out []int64) {
	for i := range shape {
		if shape[i] == 0 {
			out[i] = 0
			continue
		}

		out[i] = linear / strides[i] % shape[i]
	}
}

// ravel is the inverse of unravel.
func ravel(coord, strides []int64) int64 {
	var off int64
	for i, c := range coord {
		off += c * strides[i]
	}

	return off
}
