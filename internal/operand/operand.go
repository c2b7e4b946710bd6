// Package operand describes the typed tensor operands exchanged between
// fixtures, hosts and the result checker.
package operand

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DataType is an MLOperandDataType element type.
type DataType string

const (
	Float32 DataType = "float32"
	Float16 DataType = "float16"
	Int32   DataType = "int32"
	Uint32  DataType = "uint32"
	Int8    DataType = "int8"
	Uint8   DataType = "uint8"
	Int64   DataType = "int64"
)

// DataTypes lists every supported element type in declaration order.
var DataTypes = []DataType{Float32, Float16, Int32, Uint32, Int8, Uint8, Int64}

// ParseDataType converts a fixture type name into a DataType.
func ParseDataType(raw string) (DataType, error) {
	dt := DataType(strings.TrimSpace(raw))
	if dt.Width() == 0 {
		return "", fmt.Errorf("operand: unsupported data type %q", raw)
	}

	return dt, nil
}

// Width returns the byte width of one element, or 0 for unknown types.
func (d DataType) Width() int {
	switch d {
	case Float32, Int32, Uint32:
		return 4
	case Float16:
		return 2
	case Int8, Uint8:
		return 1
	case Int64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether d is a floating-point type.
func (d DataType) IsFloat() bool {
	return d == Float32 || d == Float16
}

func (d DataType) String() string { return string(d) }

func (d *DataType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("operand: data type must be a string: %w", err)
	}

	dt, err := ParseDataType(s)
	if err != nil {
		return err
	}

	*d = dt

	return nil
}

// Descriptor is the shape and element type of one operand.
type Descriptor struct {
	Name     string
	DataType DataType
	Shape    []int64
}

// NewDescriptor copies shape so the descriptor cannot be mutated through it.
func NewDescriptor(name string, dt DataType, shape []int64) Descriptor {
	return Descriptor{Name: name, DataType: dt, Shape: append([]int64(nil), shape...)}
}

// ElementCount is the product of the shape; a rank-0 shape holds one element.
func (d Descriptor) ElementCount() int {
	return SizeOfShape(d.Shape)
}

// ByteLength is the size of a buffer materialized from d.
func (d Descriptor) ByteLength() int {
	return d.DataType.Width() * d.ElementCount()
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s:%s%v", d.Name, d.DataType, d.Shape)
}

// SizeOfShape multiplies the dimensions of shape.
func SizeOfShape(shape []int64) int {
	n := 1
	for _, d := range shape {
		n *= int(d)
	}

	return n
}
