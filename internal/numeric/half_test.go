package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestToHalf(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want uint16
	}{
		{"zero", 0, 0x0000},
		{"negative zero", float32(math.Copysign(0, -1)), 0x8000},
		{"one", 1, 0x3c00},
		{"minus two", -2, 0xc000},
		{"one tenth", 0.1, 0x2e66},
		{"largest normal", 65504, 0x7bff},
		{"rounds up to inf", 65520, 0x7c00},
		{"overflow", 1e10, 0x7c00},
		{"negative overflow", -1e10, 0xfc00},
		{"positive inf", float32(math.Inf(1)), 0x7c00},
		{"negative inf", float32(math.Inf(-1)), 0xfc00},
		{"smallest denormal", float32(math.Ldexp(1, -24)), 0x0001},
		{"denormal", float32(math.Ldexp(1, -20)), 0x0010},
		{"below denormal range", float32(math.Ldexp(1, -25)), 0x0000},
		{"tiny negative", -1e-10, 0x8000},
		{"half-way rounds up", 1 + float32(math.Ldexp(1, -11)), 0x3c01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equalf(t, tt.want, ToHalf(tt.in), "ToHalf(%g)", tt.in)
		})
	}
}

func TestToHalfNaN(t *testing.T) {
	got := ToHalf(float32(math.NaN()))
	assert.Equal(t, uint16(0x7c00), got&0x7c00, "exponent must be all ones")
	assert.NotZero(t, got&0x03ff, "NaN must keep a mantissa bit")
	assert.True(t, IsHalfNaN(got))
}

func TestToHalfSmallExponentIsSignedZero(t *testing.T) {
	for _, v := range []float32{1e-8, 1e-20, float32(math.SmallestNonzeroFloat32)} {
		assert.Equal(t, uint16(0x0000), ToHalf(v), "ToHalf(%g)", v)
		assert.Equal(t, uint16(0x8000), ToHalf(-v), "ToHalf(%g)", -v)
	}
}

func TestToHalfRoundTripsRepresentableValues(t *testing.T) {
	// Every finite binary16 value widens exactly to float32 and must encode
	// back to the same pattern.
	for bits := 0; bits <= 0xffff; bits++ {
		h := uint16(bits)
		if !float16.Frombits(h).IsFinite() {
			continue
		}

		v := FromHalf(h)
		require.Equalf(t, h, ToHalf(v), "bits 0x%04x value %g", h, v)
		require.Equal(t, ToHalf(v), ToHalf(v))
	}
}

func TestToHalfMatchesFloat16AwayFromTies(t *testing.T) {
	for _, v := range []float32{0.333, -7.25, 1234.5678, 3.14159, 6.1e-5} {
		assert.Equal(t, float16.Fromfloat32(v).Bits(), ToHalf(v), "value %g", v)
	}
}

func TestHalfSlices(t *testing.T) {
	in := []float32{1, -2, 0.5}
	bits := ToHalfSlice(in)
	assert.Equal(t, []uint16{0x3c00, 0xc000, 0x3800}, bits)
	assert.Equal(t, in, FromHalfSlice(bits))
}
