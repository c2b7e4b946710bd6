package tensor

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/example/go-webnn-conformance/internal/runtime/parallel"
)

// Softmax normalizes x along axis. Each lane is shifted by its maximum
// before exponentiation.
func Softmax(x *Tensor, axis int) (*Tensor, error) {
	if x == nil {
		return nil, errors.New("tensor: softmax on nil tensor")
	}

	if x.Rank() == 0 {
		return nil, errors.New("tensor: softmax needs rank >= 1")
	}

	axis, err := resolveAxis(axis, x.Rank())
	if err != nil {
		return nil, fmt.Errorf("tensor: softmax: %w", err)
	}

	size := x.shape[axis]
	if size <= 0 {
		return nil, fmt.Errorf("tensor: softmax over empty axis %d", axis)
	}

	stride := stridesOf(x.shape)[axis]
	out := x.Clone()
	lanes := int64(len(out.data)) / size

	for lane := range lanes {
		// Lanes are numbered over the non-axis dims; rebuild the base
		// offset from the outer and inner parts.
		base := lane/stride*stride*size + lane%stride
		if err := softmaxLane(out.data, base, stride, size); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func softmaxLane(data []float32, base, stride, size int64) error {
	peak := float32(math.Inf(-1))
	for k := range size {
		peak = max(peak, data[base+k*stride])
	}

	var sum float64

	for k := range size {
		i := base + k*stride
		e := math.Exp(float64(data[i] - peak))
		data[i] = float32(e)
		sum += e
	}

	if sum == 0 || math.IsNaN(sum) {
		return fmt.Errorf("tensor: softmax normalization sum is %v", sum)
	}

	for k := range size {
		data[base+k*stride] = float32(float64(data[base+k*stride]) / sum)
	}

	return nil
}

// MatMul multiplies the trailing two dimensions of a and b and broadcasts
// the leading batch dimensions. A rank-1 a acts as [1, k] and a rank-1 b as
// [k, 1]; those promoted axes are dropped again, so two vectors yield a
// scalar. Output rows are distributed over the parallel workers.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, errors.New("tensor: matmul on nil tensor")
	}

	if a.Rank() == 0 || b.Rank() == 0 {
		return nil, fmt.Errorf("tensor: matmul needs rank >= 1, got %d and %d", a.Rank(), b.Rank())
	}

	as, bs := a.shape, b.shape
	if len(as) == 1 {
		as = []int64{1, as[0]}
	}

	if len(bs) == 1 {
		bs = []int64{bs[0], 1}
	}

	ar, br := len(as), len(bs)
	m, k, n := as[ar-2], as[ar-1], bs[br-1]

	if bs[br-2] != k {
		return nil, fmt.Errorf("tensor: matmul %v x %v: inner dims %d and %d differ", a.shape, b.shape, k, bs[br-2])
	}

	batch, err := broadcastShape(as[:ar-2], bs[:br-2])
	if err != nil {
		return nil, fmt.Errorf("tensor: matmul batch: %w", err)
	}

	batches, err := elemCount(batch)
	if err != nil {
		return nil, err
	}

	out, err := Zeros(slices.Concat(batch, []int64{m, n}))
	if err != nil {
		return nil, err
	}

	aStrides, bStrides := stridesOf(as), stridesOf(bs)
	aBatch := expandStrides(as[:ar-2], aStrides[:ar-2], len(batch))
	bBatch := expandStrides(bs[:br-2], bStrides[:br-2], len(batch))
	batchStrides := stridesOf(batch)
	aRow, aCol := aStrides[ar-2], aStrides[ar-1]
	bRow, bCol := bStrides[br-2], bStrides[br-1]

	parallel.For(batches*int(m), func(lo, hi int) {
		coord := make([]int64, len(batch))

		for r := lo; r < hi; r++ {
			bi, i := int64(r)/m, int64(r)%m
			unravel(bi, batch, batchStrides, coord)

			aOff := ravel(coord, aBatch) + i*aRow
			bOff := ravel(coord, bBatch)
			dst := out.data[int64(r)*n : int64(r+1)*n]

			for j := range n {
				var acc float32
				for kk := range k {
					acc += a.data[aOff+kk*aCol] * b.data[bOff+kk*bRow+j*bCol]
				}

				dst[j] = acc
			}
		}
	})

	final := slices.Clone(batch)
	if a.Rank() > 1 {
		final = append(final, m)
	}

	if b.Rank() > 1 {
		final = append(final, n)
	}

	out.shape = final

	return out, nil
}

// GemmOptions configures Gemm. Alpha and Beta have no implicit default;
// callers set them, usually to 1.
type GemmOptions struct {
	C          *Tensor
	Alpha      float32
	Beta       float32
	ATranspose bool
	BTranspose bool
}

// Gemm computes alpha*op(A)*op(B) + beta*C for rank-2 A and B. C must
// broadcast to the [M, N] product.
func Gemm(a, b *Tensor, opts GemmOptions) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, errors.New("tensor: gemm on nil tensor")
	}

	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, fmt.Errorf("tensor: gemm needs rank 2 operands, got %d and %d", a.Rank(), b.Rank())
	}

	var err error

	if opts.ATranspose {
		if a, err = a.Permute(nil); err != nil {
			return nil, err
		}
	}

	if opts.BTranspose {
		if b, err = b.Permute(nil); err != nil {
			return nil, err
		}
	}

	prod, err := MatMul(a, b)
	if err != nil {
		return nil, fmt.Errorf("tensor: gemm: %w", err)
	}

	scaled := prod.Map(func(v float32) float32 { return v * opts.Alpha })
	if opts.C == nil || opts.Beta == 0 {
		return scaled, nil
	}

	out, err := Broadcast(scaled, opts.C, func(x, c float32) float32 { return x + opts.Beta*c }, "gemm")
	if err != nil {
		return nil, err
	}

	if !slices.Equal(out.shape, scaled.shape) {
		return nil, fmt.Errorf("tensor: gemm: c shape %v does not broadcast to %v", opts.C.shape, scaled.shape)
	}

	return out, nil
}
