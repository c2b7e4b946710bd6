// Package tensor holds dense row-major float32 kernels for the reference
// backend. float16 operands are computed in float32 and encoded on output.
package tensor

import (
	"errors"
	"fmt"
	"slices"
)

// Tensor is a dense row-major float32 array. Rank 0 holds one element.
type Tensor struct {
	shape []int64
	data  []float32
}

// New copies data into a tensor of the given shape.
func New(data []float32, shape []int64) (*Tensor, error) {
	n, err := elemCount(shape)
	if err != nil {
		return nil, err
	}

	if len(data) != n {
		return nil, fmt.Errorf("tensor: %d values for shape %v, want %d", len(data), shape, n)
	}

	return newOwned(slices.Clone(data), slices.Clone(shape)), nil
}

// FromFloat64s narrows values to float32. Operand buffers decode to
// float64, so this is how backends lift inputs into tensors.
func FromFloat64s(values []float64, shape []int64) (*Tensor, error) {
	n, err := elemCount(shape)
	if err != nil {
		return nil, err
	}

	if len(values) != n {
		return nil, fmt.Errorf("tensor: %d values for shape %v, want %d", len(values), shape, n)
	}

	data := make([]float32, n)
	for i, v := range values {
		data[i] = float32(v)
	}

	return newOwned(data, slices.Clone(shape)), nil
}

func newOwned(data []float32, shape []int64) *Tensor {
	return &Tensor{shape: shape, data: data}
}

// Zeros allocates a zero-filled tensor.
func Zeros(shape []int64) (*Tensor, error) {
	n, err := elemCount(shape)
	if err != nil {
		return nil, err
	}

	return newOwned(make([]float32, n), slices.Clone(shape)), nil
}

func (t *Tensor) Shape() []int64 {
	if t == nil {
		return nil
	}

	return slices.Clone(t.shape)
}

// Data returns a copy of the elements.
func (t *Tensor) Data() []float32 {
	if t == nil {
		return nil
	}

	return slices.Clone(t.data)
}

// Float64s widens the elements for re-encoding into an operand buffer.
func (t *Tensor) Float64s() []float64 {
	if t == nil {
		return nil
	}

	out := make([]float64, len(t.data))
	for i, v := range t.data {
		out[i] = float64(v)
	}

	return out
}

// RawData exposes the backing slice to kernels that write results in place.
func (t *Tensor) RawData() []float32 {
	if t == nil {
		return nil
	}

	return t.data
}

func (t *Tensor) Rank() int {
	if t == nil {
		return 0
	}

	return len(t.shape)
}

func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}

	return newOwned(slices.Clone(t.data), slices.Clone(t.shape))
}

// Reshape reinterprets the elements under shape. Element counts must agree.
func (t *Tensor) Reshape(shape []int64) (*Tensor, error) {
	if t == nil {
		return nil, errors.New("tensor: reshape on nil tensor")
	}

	n, err := elemCount(shape)
	if err != nil {
		return nil, err
	}

	if n != len(t.data) {
		return nil, fmt.Errorf("tensor: reshape %v to %v changes element count %d to %d", t.shape, shape, len(t.data), n)
	}

	return newOwned(slices.Clone(t.data), slices.Clone(shape)), nil
}

// Map applies fn elementwise into a new tensor.
func (t *Tensor) Map(fn func(float32) float32) *Tensor {
	if t == nil {
		return nil
	}

	out := t.Clone()
	for i, v := range out.data {
		out.data[i] = fn(v)
	}

	return out
}
