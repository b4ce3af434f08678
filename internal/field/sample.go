package field

import (
	"math"

	"github.com/chewxy/math32"
)

// neighbours holds the four clamped cell indices and weights around (x, y).
type neighbours struct {
	i00, i10, i01, i11 int
	fx, fy             float64
}

func (f *Field) neighbours(x, y float64) neighbours {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	fx, fy := x-x0, y-y0

	c0 := clampIndex(int(x0), f.Width)
	c1 := clampIndex(int(x0)+1, f.Width)
	r0 := clampIndex(int(y0), f.Height)
	r1 := clampIndex(int(y0)+1, f.Height)

	return neighbours{
		i00: 2 * (r0*f.Width + c0),
		i10: 2 * (r0*f.Width + c1),
		i01: 2 * (r1*f.Width + c0),
		i11: 2 * (r1*f.Width + c1),
		fx:  fx,
		fy:  fy,
	}
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// Sample bilinearly interpolates the field at (x, y). Neighbour indices are
// clamped to the grid edge. A no-data component contributes zero rather than
// invalidating the sample.
func (f *Field) Sample(x, y float64) (u, v float64) {
	n := f.neighbours(x, y)
	u = f.lerpZero(n, 0)
	v = f.lerpZero(n, 1)
	return u, v
}

func (f *Field) lerpZero(n neighbours, c int) float64 {
	s00 := f.zeroIfMissing(f.Data[n.i00+c])
	s10 := f.zeroIfMissing(f.Data[n.i10+c])
	s01 := f.zeroIfMissing(f.Data[n.i01+c])
	s11 := f.zeroIfMissing(f.Data[n.i11+c])
	return bilerp(s00, s10, s01, s11, n.fx, n.fy)
}

func (f *Field) zeroIfMissing(c float32) float64 {
	if f.missing(c) {
		return 0
	}
	return float64(c)
}

// SampleStrict interpolates like Sample but reports ok=false when any
// component of any of the four neighbours is no-data.
func (f *Field) SampleStrict(x, y float64) (u, v float64, ok bool) {
	n := f.neighbours(x, y)
	for _, i := range [4]int{n.i00, n.i10, n.i01, n.i11} {
		if f.missing(f.Data[i]) || f.missing(f.Data[i+1]) {
			return 0, 0, false
		}
	}
	u = bilerp(float64(f.Data[n.i00]), float64(f.Data[n.i10]), float64(f.Data[n.i01]), float64(f.Data[n.i11]), n.fx, n.fy)
	v = bilerp(float64(f.Data[n.i00+1]), float64(f.Data[n.i10+1]), float64(f.Data[n.i01+1]), float64(f.Data[n.i11+1]), n.fx, n.fy)
	return u, v, true
}

func bilerp(s00, s10, s01, s11, fx, fy float64) float64 {
	top := s00 + (s10-s00)*fx
	bottom := s01 + (s11-s01)*fx
	return top + (bottom-top)*fy
}

// Magnitude resamples the vector magnitude onto a dstW x dstH texture using
// the strict sampler. Texel centres map onto the field extent; masked texels
// are NaN.
func (f *Field) Magnitude(dstW, dstH int) []float32 {
	if dstW <= 0 || dstH <= 0 {
		return nil
	}
	out := make([]float32, dstW*dstH)
	sx := float64(f.Width) / float64(dstW)
	sy := float64(f.Height) / float64(dstH)
	for ty := 0; ty < dstH; ty++ {
		y := (float64(ty)+0.5)*sy - 0.5
		for tx := 0; tx < dstW; tx++ {
			x := (float64(tx)+0.5)*sx - 0.5
			u, v, ok := f.SampleStrict(x, y)
			if !ok {
				out[ty*dstW+tx] = math32.NaN()
				continue
			}
			out[ty*dstW+tx] = math32.Hypot(float32(u), float32(v))
		}
	}
	return out
}
