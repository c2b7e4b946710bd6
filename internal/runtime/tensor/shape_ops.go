package tensor

import (
	"errors"
	"fmt"
	"slices"
)

// span splits shape around axis: outer is the product of the leading dims
// and inner of the trailing ones.
func span(shape []int64, axis int) (outer, inner int64) {
	outer, inner = 1, 1
	for _, d := range shape[:axis] {
		outer *= d
	}

	for _, d := range shape[axis+1:] {
		inner *= d
	}

	return outer, inner
}

// Narrow keeps length elements of axis starting at start.
func (t *Tensor) Narrow(axis int, start, length int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: narrow on nil tensor")
	}

	axis, err := resolveAxis(axis, t.Rank())
	if err != nil {
		return nil, fmt.Errorf("tensor: narrow: %w", err)
	}

	size := t.shape[axis]
	if start < 0 || length < 0 || start+length > size {
		return nil, fmt.Errorf("tensor: narrow: [%d, %d) outside axis %d of size %d", start, start+length, axis, size)
	}

	shape := slices.Clone(t.shape)
	shape[axis] = length

	out, err := Zeros(shape)
	if err != nil {
		return nil, err
	}

	outer, inner := span(t.shape, axis)
	block := length * inner

	for o := range outer {
		src := (o*size + start) * inner
		copy(out.data[o*block:(o+1)*block], t.data[src:src+block])
	}

	return out, nil
}

// Slice narrows every axis d to sizes[d] elements from starts[d].
func (t *Tensor) Slice(starts, sizes []int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: slice on nil tensor")
	}

	if len(starts) != t.Rank() || len(sizes) != t.Rank() {
		return nil, fmt.Errorf("tensor: slice: starts %v and sizes %v must have rank %d", starts, sizes, t.Rank())
	}

	out := t.Clone()

	for d := range starts {
		var err error
		if out, err = out.Narrow(d, starts[d], sizes[d]); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Permute reorders axes so that output axis i is input axis perm[i]. A nil
// perm reverses the axes.
func (t *Tensor) Permute(perm []int) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: permute on nil tensor")
	}

	rank := t.Rank()
	if perm == nil {
		perm = make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
	}

	if len(perm) != rank {
		return nil, fmt.Errorf("tensor: permutation %v for rank %d", perm, rank)
	}

	srcStrides := stridesOf(t.shape)
	shape := make([]int64, rank)
	// step[i] is the source stride walked when output axis i advances.
	step := make([]int64, rank)
	used := make([]bool, rank)

	for i, p := range perm {
		d, err := resolveAxis(p, rank)
		if err != nil || used[d] {
			return nil, fmt.Errorf("tensor: invalid permutation %v", perm)
		}

		used[d] = true
		shape[i] = t.shape[d]
		step[i] = srcStrides[d]
	}

	out, err := Zeros(shape)
	if err != nil {
		return nil, err
	}

	outStrides := stridesOf(shape)
	coord := make([]int64, rank)

	for i := range out.data {
		unravel(int64(i), shape, outStrides, coord)
		out.data[i] = t.data[ravel(coord, step)]
	}

	return out, nil
}

// Concat joins tensors along axis. All other dimensions must agree.
func Concat(tensors []*Tensor, axis int) (*Tensor, error) {
	if len(tensors) == 0 {
		return nil, errors.New("tensor: concat of no tensors")
	}

	for i, t := range tensors {
		if t == nil {
			return nil, fmt.Errorf("tensor: concat: tensor %d is nil", i)
		}
	}

	base := tensors[0].shape

	axis, err := resolveAxis(axis, len(base))
	if err != nil {
		return nil, fmt.Errorf("tensor: concat: %w", err)
	}

	shape := slices.Clone(base)
	shape[axis] = 0

	for i, t := range tensors {
		if len(t.shape) != len(base) {
			return nil, fmt.Errorf("tensor: concat: tensor %d has rank %d, want %d", i, len(t.shape), len(base))
		}

		for d, size := range t.shape {
			if d != axis && size != base[d] {
				return nil, fmt.Errorf("tensor: concat: tensor %d shape %v differs from %v at axis %d", i, t.shape, base, d)
			}
		}

		shape[axis] += t.shape[axis]
	}

	out, err := Zeros(shape)
	if err != nil {
		return nil, err
	}

	outer, inner := span(shape, axis)
	pos := 0

	for o := range outer {
		for _, t := range tensors {
			block := t.shape[axis] * inner
			pos += copy(out.data[pos:], t.data[o*block:(o+1)*block])
		}
	}

	return out, nil
}
