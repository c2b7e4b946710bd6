// Package buffer materializes fixture data into fixed-width typed buffers
// matching MLOperandDataType storage.
package buffer

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/example/go-webnn-conformance/internal/numeric"
	"github.com/example/go-webnn-conformance/internal/operand"
)

// Buffer is a typed, fixed-width element array. float16 elements are stored
// as their binary16 bit patterns.
type Buffer struct {
	dtype operand.DataType
	data  any
}

// New allocates a zeroed buffer of n elements.
func New(dt operand.DataType, n int) (*Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("buffer: negative element count %d", n)
	}

	switch dt {
	case operand.Float32:
		return &Buffer{dtype: dt, data: make([]float32, n)}, nil
	case operand.Float16:
		return &Buffer{dtype: dt, data: make([]uint16, n)}, nil
	case operand.Int32:
		return &Buffer{dtype: dt, data: make([]int32, n)}, nil
	case operand.Uint32:
		return &Buffer{dtype: dt, data: make([]uint32, n)}, nil
	case operand.Int8:
		return &Buffer{dtype: dt, data: make([]int8, n)}, nil
	case operand.Uint8:
		return &Buffer{dtype: dt, data: make([]uint8, n)}, nil
	case operand.Int64:
		return &Buffer{dtype: dt, data: make([]int64, n)}, nil
	default:
		return nil, fmt.Errorf("buffer: unsupported data type %q", dt)
	}
}

// ForDescriptor allocates a zeroed buffer sized for d.
func ForDescriptor(d operand.Descriptor) (*Buffer, error) {
	return New(d.DataType, d.ElementCount())
}

// FromFloat32s wraps a copy of values as a float32 buffer.
func FromFloat32s(values []float32) *Buffer {
	return &Buffer{dtype: operand.Float32, data: append([]float32{}, values...)}
}

// FromHalfBits wraps a copy of binary16 bit patterns as a float16 buffer.
func FromHalfBits(bits []uint16) *Buffer {
	return &Buffer{dtype: operand.Float16, data: append([]uint16{}, bits...)}
}

// FromInt64s wraps a copy of values as an int64 buffer.
func FromInt64s(values []int64) *Buffer {
	return &Buffer{dtype: operand.Int64, data: append([]int64{}, values...)}
}

// FromUint8s wraps a copy of values as a uint8 buffer.
func FromUint8s(values []uint8) *Buffer {
	return &Buffer{dtype: operand.Uint8, data: append([]uint8{}, values...)}
}

func (b *Buffer) DataType() operand.DataType { return b.dtype }

// Len is the number of elements.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}

	switch v := b.data.(type) {
	case []float32:
		return len(v)
	case []uint16:
		return len(v)
	case []int32:
		return len(v)
	case []uint32:
		return len(v)
	case []int8:
		return len(v)
	case []uint8:
		return len(v)
	case []int64:
		return len(v)
	default:
		return 0
	}
}

// ByteLength is Len times the element width.
func (b *Buffer) ByteLength() int {
	return b.Len() * b.dtype.Width()
}

// Float returns element i as a real value; float16 elements are decoded.
func (b *Buffer) Float(i int) float64 {
	switch v := b.data.(type) {
	case []float32:
		return float64(v[i])
	case []uint16:
		return float64(numeric.FromHalf(v[i]))
	case []int32:
		return float64(v[i])
	case []uint32:
		return float64(v[i])
	case []int8:
		return float64(v[i])
	case []uint8:
		return float64(v[i])
	case []int64:
		return float64(v[i])
	default:
		panic(fmt.Sprintf("buffer: unexpected backing type %T", b.data))
	}
}

// Bits returns the stored representation of element i as an integer:
// the binary16 pattern for float16, the value itself for integer types and
// the raw IEEE bits for float32.
func (b *Buffer) Bits(i int) int64 {
	switch v := b.data.(type) {
	case []float32:
		return int64(math.Float32bits(v[i]))
	case []uint16:
		return int64(v[i])
	case []int32:
		return int64(v[i])
	case []uint32:
		return int64(v[i])
	case []int8:
		return int64(v[i])
	case []uint8:
		return int64(v[i])
	case []int64:
		return v[i]
	default:
		panic(fmt.Sprintf("buffer: unexpected backing type %T", b.data))
	}
}

// Floats returns every element as a real value.
func (b *Buffer) Floats() []float64 {
	out := make([]float64, b.Len())
	for i := range out {
		out[i] = b.Float(i)
	}

	return out
}

// Truncate returns a view of the first n elements. The view shares storage.
func (b *Buffer) Truncate(n int) *Buffer {
	if n < 0 || n >= b.Len() {
		return b
	}

	switch v := b.data.(type) {
	case []float32:
		return &Buffer{dtype: b.dtype, data: v[:n]}
	case []uint16:
		return &Buffer{dtype: b.dtype, data: v[:n]}
	case []int32:
		return &Buffer{dtype: b.dtype, data: v[:n]}
	case []uint32:
		return &Buffer{dtype: b.dtype, data: v[:n]}
	case []int8:
		return &Buffer{dtype: b.dtype, data: v[:n]}
	case []uint8:
		return &Buffer{dtype: b.dtype, data: v[:n]}
	case []int64:
		return &Buffer{dtype: b.dtype, data: v[:n]}
	default:
		return b
	}
}

// Float32s returns the backing slice of a float32 buffer.
func (b *Buffer) Float32s() ([]float32, error) {
	v, ok := b.data.([]float32)
	if !ok {
		return nil, fmt.Errorf("buffer: want float32 buffer, got %s", b.dtype)
	}

	return v, nil
}

// HalfBits returns the backing slice of a float16 buffer.
func (b *Buffer) HalfBits() ([]uint16, error) {
	v, ok := b.data.([]uint16)
	if !ok {
		return nil, fmt.Errorf("buffer: want float16 buffer, got %s", b.dtype)
	}

	return v, nil
}

// Int64s returns the backing slice of an int64 buffer.
func (b *Buffer) Int64s() ([]int64, error) {
	v, ok := b.data.([]int64)
	if !ok {
		return nil, fmt.Errorf("buffer: want int64 buffer, got %s", b.dtype)
	}

	return v, nil
}

// CopyFrom overwrites b with the contents of src. Types and lengths must
// match.
func (b *Buffer) CopyFrom(src *Buffer) error {
	if src == nil {
		return fmt.Errorf("buffer: copy from nil buffer")
	}

	if src.dtype != b.dtype {
		return fmt.Errorf("buffer: copy %s into %s buffer", src.dtype, b.dtype)
	}

	if src.Len() != b.Len() {
		return fmt.Errorf("buffer: copy %d elements into %d-element buffer", src.Len(), b.Len())
	}

	switch dst := b.data.(type) {
	case []float32:
		copy(dst, src.data.([]float32))
	case []uint16:
		copy(dst, src.data.([]uint16))
	case []int32:
		copy(dst, src.data.([]int32))
	case []uint32:
		copy(dst, src.data.([]uint32))
	case []int8:
		copy(dst, src.data.([]int8))
	case []uint8:
		copy(dst, src.data.([]uint8))
	case []int64:
		copy(dst, src.data.([]int64))
	}

	return nil
}

// Bytes encodes the buffer in little-endian order.
func (b *Buffer) Bytes() []byte {
	out, err := binary.Append(make([]byte, 0, b.ByteLength()), binary.LittleEndian, b.data)
	if err != nil {
		panic(fmt.Sprintf("buffer: encode %s: %v", b.dtype, err))
	}

	return out
}
