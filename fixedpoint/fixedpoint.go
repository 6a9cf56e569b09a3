// Package fixedpoint converts real-valued amplitudes in [-1, 1] to the
// signed two's-complement words that the encoder RAMs hold, and back.
//
// The scale is 2^(width-1)-1, so 1.0 maps to the largest positive value and
// -1.0 to its negation. Rounding is half-to-even. Nothing is clamped: values
// outside [-1, 1] overflow the width silently, exactly as the hardware
// tables were generated.
package fixedpoint

import "math"

// Width is the sample width of the constellation and filter RAMs.
const Width = 16

// Scale returns the multiplier applied to a real value for the given width.
func Scale(width uint) float64 {
	return float64(int64(1)<<(width-1) - 1)
}

// Encode converts v into a width-bit two's-complement word. A negative
// result is stored as raw + 2^width.
func Encode(v float64, width uint) uint32 {
	raw := int64(math.RoundToEven(v * Scale(width)))
	if raw < 0 {
		raw += int64(1) << width
	}

	return uint32(raw)
}

// Decode interprets the low width bits of raw as a two's-complement value
// and scales it back to a real number.
func Decode(raw uint32, width uint) float64 {
	x := int64(raw & (uint32(1)<<width - 1))
	if x >= int64(1)<<(width-1) {
		x -= int64(1) << width
	}

	return float64(x) / Scale(width)
}

// Pack places two width-16 samples in one RAM word, hi in bits [31:16] and
// lo in bits [15:0]. The halves are OR'ed, so an overflowing lo spills into
// hi.
func Pack(hi, lo float64) uint32 {
	return Encode(hi, Width)<<16 | Encode(lo, Width)
}

// Unpack splits a RAM word written by Pack.
func Unpack(word uint32) (hi, lo float64) {
	return Decode(word>>16, Width), Decode(word&0xFFFF, Width)
}
