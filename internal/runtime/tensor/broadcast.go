package tensor

import (
	"fmt"
	"math"
)

// Add, Sub, Mul, Div, Max and Min are the elementwise binary operators.
// All of them broadcast NumPy style.
func Add(a, b *Tensor) (*Tensor, error) {
	return Broadcast(a, b, func(x, y float32) float32 { return x + y }, "add")
}

func Sub(a, b *Tensor) (*Tensor, error) {
	return Broadcast(a, b, func(x, y float32) float32 { return x - y }, "sub")
}

func Mul(a, b *Tensor) (*Tensor, error) {
	return Broadcast(a, b, func(x, y float32) float32 { return x * y }, "mul")
}

func Div(a, b *Tensor) (*Tensor, error) {
	return Broadcast(a, b, func(x, y float32) float32 { return x / y }, "div")
}

func Max(a, b *Tensor) (*Tensor, error) {
	return Broadcast(a, b, func(x, y float32) float32 { return float32(math.Max(float64(x), float64(y))) }, "max")
}

func Min(a, b *Tensor) (*Tensor, error) {
	return Broadcast(a, b, func(x, y float32) float32 { return float32(math.Min(float64(x), float64(y))) }, "min")
}

// Broadcast evaluates fn over the broadcast shape of a and b. op names the
// operator in errors.
func Broadcast(a, b *Tensor, fn func(x, y float32) float32, op string) (*Tensor, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("tensor: %s: nil operand", op)
	}

	shape, err := broadcastShape(a.shape, b.shape)
	if err != nil {
		return nil, fmt.Errorf("tensor: %s: %w", op, err)
	}

	out, err := Zeros(shape)
	if err != nil {
		return nil, err
	}

	rank := len(shape)
	aStep := expandStrides(a.shape, stridesOf(a.shape), rank)
	bStep := expandStrides(b.shape, stridesOf(b.shape), rank)
	outStrides := stridesOf(shape)
	coord := make([]int64, rank)

	for i := range out.data {
		unravel(int64(i), shape, outStrides, coord)
		out.data[i] = fn(a.data[ravel(coord, aStep)], b.data[ravel(coord, bStep)])
	}

	return out, nil
}

// broadcastShape aligns a and b at their trailing dimensions. Each pair
// must match or contain a 1.
func broadcastShape(a, b []int64) ([]int64, error) {
	rank := max(len(a), len(b))
	out := make([]int64, rank)

	for i := 1; i <= rank; i++ {
		da, db := dimFromEnd(a, i), dimFromEnd(b, i)

		switch {
		case da == db, db == 1:
			out[rank-i] = da
		case da == 1:
			out[rank-i] = db
		default:
			return nil, fmt.Errorf("shapes %v and %v do not broadcast", a, b)
		}
	}

	return out, nil
}

func dimFromEnd(shape []int64, i int) int64 {
	if i > len(shape) {
		return 1
	}

	return shape[len(shape)-i]
}

// expandStrides left-pads strides to rank and zeroes the stride of every
// size-1 dimension, so ravel on a broadcast coordinate lands on the
// repeated element.
func expandStrides(shape, strides []int64, rank int) []int64 {
	out := make([]int64, rank)
	pad := rank - len(shape)

	for i, d := range shape {
		if d != 1 {
			out[pad+i] = strides[i]
		}
	}

	return out
}
