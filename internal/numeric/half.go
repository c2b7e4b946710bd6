// Package numeric holds the bit-level conversions used when comparing
// operator outputs: float32 to IEEE-754 binary16 encoding, and the integer
// views used to measure ULP distance.
package numeric

import (
	"math"

	"github.com/x448/float16"
)

// ToHalf encodes value as a binary16 bit pattern.
//
// Expected float16 fixtures were generated with this exact routine, so it
// rounds the way the fixtures do: the one extra mantissa bit kept below the
// binary16 precision is added back (round half up in magnitude), not
// round-half-to-even. float16.Fromfloat32 is therefore not a substitute.
func ToHalf(value float32) uint16 {
	x := int32(math.Float32bits(value))

	bits := (x >> 16) & 0x8000 // sign
	m := (x >> 12) & 0x07ff    // mantissa plus one rounding bit
	e := (x >> 23) & 0xff

	// Zero, float32 denormals, and anything too small for a binary16
	// denormal become signed zero.
	if e < 103 {
		return uint16(bits)
	}

	// Overflow and Inf saturate to Inf; NaN keeps one mantissa bit.
	if e > 142 {
		bits |= 0x7c00
		if e == 255 && x&0x007fffff != 0 {
			bits |= 1
		}

		return uint16(bits)
	}

	if e < 113 {
		m |= 0x0800
		// Rounding may carry into the exponent, yielding the smallest normal.
		bits |= (m >> (114 - e)) + ((m >> (113 - e)) & 1)

		return uint16(bits)
	}

	bits |= ((e - 112) << 10) | (m >> 1)
	// A carry here increments the exponent, up to Inf.
	bits += m & 1

	return uint16(bits)
}

// ToHalfSlice encodes every element of values.
func ToHalfSlice(values []float32) []uint16 {
	out := make([]uint16, len(values))
	for i, v := range values {
		out[i] = ToHalf(v)
	}

	return out
}

// FromHalf decodes a binary16 bit pattern. The widening is exact.
func FromHalf(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

// FromHalfSlice decodes every element of bits.
func FromHalfSlice(bits []uint16) []float32 {
	out := make([]float32, len(bits))
	for i, b := range bits {
		out[i] = FromHalf(b)
	}

	return out
}

// IsHalfNaN reports whether bits encodes a binary16 NaN.
func IsHalfNaN(bits uint16) bool {
	return float16.Frombits(bits).IsNaN()
}
