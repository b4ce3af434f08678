package precision

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit_Small(t *testing.T) {
	for _, v := range []float64{0, 1.5, -1.5, 65535.999, -65535.999} {
		h, l := Split(v)
		assert.Equal(t, 0.0, h, "high for %v", v)
		assert.Equal(t, v, l, "low for %v", v)
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 10000 {
		v := (rng.Float64()*2 - 1) * (1 << 31)
		h, l := Split(v)

		assert.Equal(t, v, h+l, "high+low must recover %v exactly", v)
		assert.Zero(t, math.Mod(h, Step), "high %v not a multiple of %d", h, Step)
		assert.Equal(t, h, float64(float32(h)), "high %v not exact in float32", h)

		// Single-precision reconstruction keeps float32 accuracy of the
		// small low part, far better than float32(v) alone.
		h32, l32 := Split32(v)
		got := float64(h32) + float64(l32)
		assert.InDelta(t, v, got, Step*1e-7, "float32 round trip of %v", v)
	}
}

func TestSplit_Negative(t *testing.T) {
	h, l := Split(-100000.25)
	assert.Equal(t, -131072.0, h)
	assert.Equal(t, 31071.75, l)
}

func TestSplitPoint_RelativeToCenter(t *testing.T) {
	// Web Mercator scale coordinates with centimetre detail.
	x := 20037000.37
	cx := 20036900.11

	p := SplitPoint(x, 0)
	c := SplitPoint(cx, 0)
	// The vertex shader's reconstruction, in float32.
	got := (p[0] - c[0]) + (p[2] - c[2])

	assert.InDelta(t, x-cx, float64(got), 0.01)

	naive := float32(x) - float32(cx)
	assert.Greater(t, math.Abs(float64(naive)-(x-cx)), 0.01,
		"naive float32 subtraction should lose centimetre precision")
}
