package tessellate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/flowline/internal/geom"
)

func pts(xy ...float64) []geom.Point {
	out := make([]geom.Point, 0, len(xy)/2)
	for i := 0; i+1 < len(xy); i += 2 {
		out = append(out, geom.Pt(xy[i], xy[i+1]))
	}
	return out
}

func TestRoundJoint_Invalid(t *testing.T) {
	tests := []struct {
		name string
		path []geom.Point
	}{
		{"nil", nil},
		{"single point", pts(1, 1)},
		{"duplicate points", pts(1, 1, 1, 1, 1, 1)},
		{"nan", pts(0, 0, math.NaN(), 1)},
		{"inf", pts(0, 0, math.Inf(1), 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, RoundJoint(tt.path))
		})
	}
}

func TestRoundJoint_SingleSegment(t *testing.T) {
	m := RoundJoint(pts(0, 0, 3, 4))
	require.NotNil(t, m)

	assert.Len(t, m.Vertices, 4)
	assert.Len(t, m.Indices, 6)
	assert.Equal(t, 5.0, m.TotalDistance)

	for _, v := range m.Vertices {
		assert.InDelta(t, 1, math.Hypot(v.OffsetX, v.OffsetY), 1e-12)
		assert.Zero(t, v.DistanceWidthDelta)
	}
	assert.Equal(t, 0.0, m.Vertices[0].Distance)
	assert.Equal(t, 5.0, m.Vertices[3].Distance)
	assertCCW(t, m, 1)
}

func TestRoundJoint_StraightJoint(t *testing.T) {
	m := RoundJoint(pts(0, 0, 5, 0, 10, 0))
	require.NotNil(t, m)

	assert.Len(t, m.Vertices, 8, "two quads, no fan")
	assert.Len(t, m.Indices, 12)
	assert.Equal(t, 10.0, m.TotalDistance)
	assertCCW(t, m, 1)
}

func TestRoundJoint_RightAngle(t *testing.T) {
	for _, tt := range []struct {
		name  string
		path  []geom.Point
		outer Side
	}{
		{"left turn", pts(0, 0, 10, 0, 10, 10), Right},
		{"right turn", pts(0, 0, 10, 0, 10, -10), Left},
	} {
		t.Run(tt.name, func(t *testing.T) {
			m := RoundJoint(tt.path)
			require.NotNil(t, m)

			// 2 quads + centre + 7 arc vertices, 2*2 + 6 triangles.
			assert.Len(t, m.Vertices, 16)
			assert.Equal(t, 4+6, m.Triangles())
			assert.Equal(t, 20.0, m.TotalDistance)

			// Quad 0 is vertices 0-3, the fan follows, then quad 1.
			fan := m.Vertices[4:12]
			for _, v := range fan {
				assert.Equal(t, tt.outer, v.Side)
				assert.Equal(t, 10.0, v.Distance)
			}
			assert.Zero(t, fan[0].OffsetX)
			assert.Zero(t, fan[0].OffsetY)
			for _, v := range fan[1:] {
				assert.InDelta(t, 1, math.Hypot(v.OffsetX, v.OffsetY), 1e-12)
			}
			assertCCW(t, m, 1)
		})
	}
}

func TestRoundJoint_MiterOffsets(t *testing.T) {
	m := RoundJoint(pts(0, 0, 10, 0, 10, 10))
	require.NotNil(t, m)

	// First quad's end-left vertex is the inner miter of the left turn.
	inner := m.Vertices[2]
	assert.Equal(t, Left, inner.Side)
	assert.InDelta(t, -1, inner.OffsetX, 1e-12)
	assert.InDelta(t, 1, inner.OffsetY, 1e-12)
	assert.InDelta(t, -1, inner.DistanceWidthDelta, 1e-12, "miter lies behind the joint on the incoming segment")

	// Second quad's start-left vertex shares the miter but lies ahead.
	next := m.Vertices[12]
	assert.InDelta(t, -1, next.OffsetX, 1e-12)
	assert.InDelta(t, 1, next.OffsetY, 1e-12)
	assert.InDelta(t, 1, next.DistanceWidthDelta, 1e-12)

	// Outer vertices keep plain normals.
	outer := m.Vertices[3]
	assert.InDelta(t, 0, outer.OffsetX, 1e-12)
	assert.InDelta(t, -1, outer.OffsetY, 1e-12)
	assert.Zero(t, outer.DistanceWidthDelta)
}

func TestRoundJoint_FanSteps(t *testing.T) {
	tests := []struct {
		deg   float64
		steps int
	}{
		{1, 1},
		{15, 1},
		{16, 2},
		{45, 3},
		{90, 6},
		{135, 9},
		{170, 12},
	}
	for _, tt := range tests {
		rad := tt.deg * math.Pi / 180
		path := []geom.Point{{X: -10, Y: 0}, {X: 0, Y: 0}, {X: 10 * math.Cos(rad), Y: 10 * math.Sin(rad)}}
		m := RoundJoint(path)
		require.NotNil(t, m)
		assert.Equal(t, 4+tt.steps, m.Triangles(), "turn of %v°", tt.deg)
		// Sharp turns push the miter past short neighbours at large widths.
		assertCCW(t, m, 0.1)
	}
}

func TestRoundJoint_HairpinIsSameLine(t *testing.T) {
	m := RoundJoint(pts(0, 0, 10, 0, 0, 0))
	require.NotNil(t, m)
	assert.Len(t, m.Vertices, 8)
	for _, v := range m.Vertices {
		assert.False(t, math.IsNaN(v.OffsetX) || math.IsNaN(v.OffsetY), "NaN offset")
		assert.InDelta(t, 1, math.Hypot(v.OffsetX, v.OffsetY), 1e-12)
	}
}

func TestRoundJoint_TotalDistance(t *testing.T) {
	path := pts(0, 0, 3, 4, 3, 10, -2, 10, -2, 10, 7, 22)
	want := 0.0
	for i := 1; i < len(path); i++ {
		want += path[i].Distance(path[i-1])
	}

	m := RoundJoint(path)
	require.NotNil(t, m)
	assert.InDelta(t, want, m.TotalDistance, 1e-12)

	for _, v := range m.Vertices {
		assert.GreaterOrEqual(t, v.Distance, 0.0)
		assert.LessOrEqual(t, v.Distance, want+1e-12)
	}
}

func TestRoundJoint_NoNaN(t *testing.T) {
	// Nearly collinear points stress the same-line guard.
	m := RoundJoint(pts(0, 0, 1e7, 1e-9, 2e7, 0, 2e7+1e-3, 1e-3))
	require.NotNil(t, m)
	for i, v := range m.Vertices {
		for _, f := range []float64{v.OffsetX, v.OffsetY, v.Distance, v.DistanceWidthDelta} {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				t.Fatalf("vertex %d has non-finite attribute: %+v", i, v)
			}
		}
	}
}

func TestRoundJointAll_KeepsAlignment(t *testing.T) {
	meshes := RoundJointAll([][]geom.Point{pts(0, 0, 1, 0), pts(2, 2), pts(0, 0, 0, 1, 1, 1)})
	require.Len(t, meshes, 3)
	assert.NotNil(t, meshes[0])
	assert.Nil(t, meshes[1])
	assert.NotNil(t, meshes[2])
}

func TestVertex_ScreenOffset(t *testing.T) {
	x, y := Vertex{OffsetX: 0.5, OffsetY: 0.25}.ScreenOffset()
	assert.Equal(t, 0.5, x)
	assert.Equal(t, -0.25, y)
}

// assertCCW checks that every triangle has non-negative signed area once the
// offsets are extruded by width.
func assertCCW(t *testing.T, m *Mesh, width float64) {
	t.Helper()
	pos := func(i uint32) geom.Point {
		v := m.Vertices[i]
		return geom.Pt(v.X+v.OffsetX*width, v.Y+v.OffsetY*width)
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := pos(m.Indices[i]), pos(m.Indices[i+1]), pos(m.Indices[i+2])
		area := b.Sub(a).Cross(c.Sub(a))
		if area < -1e-9 {
			t.Errorf("triangle %d is clockwise (area %v)", i/3, area)
		}
	}
}

func BenchmarkRoundJoint(b *testing.B) {
	path := make([]geom.Point, 256)
	for i := range path {
		a := float64(i) * 0.3
		path[i] = geom.Pt(float64(i)*4+math.Cos(a)*10, math.Sin(a)*10)
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = RoundJoint(path)
	}
}
