// Package precision splits float64 world coordinates into coarse/fine pairs
// that survive the trip through 32-bit GPU vertex attributes.
//
// The vertex shader reconstructs a position relative to the view centre as
//
//	(high - centerHigh) + (low - centerLow)
//
// so the large, exactly representable high parts cancel before any precision
// is lost in the low parts.
package precision

import "math"

// Step is the granularity of the high component. Every high value is an
// integer multiple of Step and is therefore exact in float32 up to 2^40.
const Step = 65536

// Split returns (high, low) with high+low == v and high a multiple of Step.
// Values with |v| < Step return (0, v).
func Split(v float64) (high, low float64) {
	if math.Abs(v) < Step {
		return 0, v
	}
	high = math.Floor(v/Step) * Step
	return high, v - high
}

// Split32 is Split narrowed to float32 for buffer packing.
func Split32(v float64) (high, low float32) {
	h, l := Split(v)
	return float32(h), float32(l)
}

// SplitPoint splits both coordinates and returns them in the attribute
// order used by the mesh buffers: xHigh, yHigh, xLow, yLow.
func SplitPoint(x, y float64) [4]float32 {
	xh, xl := Split32(x)
	yh, yl := Split32(y)
	return [4]float32{xh, yh, xl, yl}
}
