package tessellate

import (
	"math"

	"github.com/gogpu/flowline/internal/geom"
)

const (
	// CosEpsilon classifies a joint as the same line when the cosine of its
	// turn is within CosEpsilon of +1 (straight) or -1 (hairpin). Hairpins
	// would otherwise need a miter of unbounded length.
	CosEpsilon = 1e-6

	// RoundStep is the largest angle covered by one round-corner triangle.
	RoundStep = math.Pi / 12

	// stepSlack keeps exact multiples of RoundStep from gaining a step
	// through rounding in the division.
	stepSlack = 1e-9
)

// Side identifies which side of the centreline a vertex is extruded to.
type Side int8

const (
	// Left is the side to the left of the direction of travel (Y up).
	Left Side = 1
	// Right is the side to the right of the direction of travel.
	Right Side = -1
)

// Vertex is one tessellated vertex.
type Vertex struct {
	// X, Y is the centreline position in world coordinates.
	X, Y float64

	Side Side

	// OffsetX, OffsetY is the unit-width extrusion in world space.
	OffsetX, OffsetY float64

	// Distance is the distance along the path at X, Y.
	Distance float64

	// DistanceWidthDelta is added to Distance after scaling by the line width.
	DistanceWidthDelta float64
}

// ScreenOffset returns the offset flipped to a Y-down screen space.
func (v Vertex) ScreenOffset() (x, y float64) {
	return v.OffsetX, -v.OffsetY
}

// Mesh is the tessellation of one polyline.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32

	// TotalDistance is the length of the polyline, used to loop animations.
	TotalDistance float64
}

// Triangles returns the number of triangles in the mesh.
func (m *Mesh) Triangles() int {
	return len(m.Indices) / 3
}

// joint describes the turn at an interior vertex.
type joint struct {
	dirIn, dirOut       geom.Vec2
	normalIn, normalOut geom.Vec2

	sameLine bool

	// outer is the side that receives the round corner.
	outer Side

	// miter is the unit-width offset of the inner corner.
	miter geom.Vec2

	// turn is the signed turn angle, positive counter-clockwise.
	turn float64
}

func newJoint(dirIn, dirOut geom.Vec2) joint {
	j := joint{
		dirIn:     dirIn,
		dirOut:    dirOut,
		normalIn:  dirIn.Perp(),
		normalOut: dirOut.Perp(),
	}

	dot := geom.ClampUnit(dirIn.Dot(dirOut))
	if dot > 1-CosEpsilon || dot < -1+CosEpsilon {
		j.sameLine = true
		return j
	}

	cross := dirIn.Cross(dirOut)
	angle := math.Acos(dot)

	// (n0+n1) has length 2cos(θ/2); dividing by 1+cos θ = 2cos²(θ/2) gives
	// the miter of length 1/cos(θ/2).
	miter := j.normalIn.Add(j.normalOut).Scale(1 / (1 + dot))
	if cross > 0 {
		// Left turn: the inner corner is on the left.
		j.outer = Right
		j.miter = miter
		j.turn = angle
	} else {
		j.outer = Left
		j.miter = miter.Neg()
		j.turn = -angle
	}
	return j
}

// offsets returns the left and right extrusion of a segment end at this
// joint, along with their distance-width deltas. dir and normal belong to the
// segment being closed or opened.
func (j *joint) offsets(dir, normal geom.Vec2) (left, right geom.Vec2, leftDelta, rightDelta float64) {
	left, right = normal, normal.Neg()
	if j == nil || j.sameLine {
		return left, right, 0, 0
	}
	if j.outer == Right {
		return j.miter, right, j.miter.Dot(dir), 0
	}
	return left, j.miter, 0, j.miter.Dot(dir)
}

// RoundJoint tessellates a polyline with round joints.
//
// Consecutive duplicate points are ignored. It returns nil if fewer than two
// distinct points remain or if any coordinate is not finite; batch callers
// are expected to skip nil meshes.
func RoundJoint(path []geom.Point) *Mesh {
	pts, ok := cleanPath(path)
	if !ok || len(pts) < 2 {
		return nil
	}
	if len(pts) == 2 {
		return segmentQuad(pts[0], pts[1])
	}

	n := len(pts)
	dirs := make([]geom.Vec2, n-1)
	dist := make([]float64, n)
	for i := 0; i < n-1; i++ {
		d := pts[i+1].Sub(pts[i])
		length := d.Length()
		dirs[i] = d.Scale(1 / length)
		dist[i+1] = dist[i] + length
	}

	joints := make([]joint, n)
	roundVerts, roundTris := 0, 0
	for i := 1; i < n-1; i++ {
		joints[i] = newJoint(dirs[i-1], dirs[i])
		if !joints[i].sameLine {
			steps := roundSteps(math.Abs(joints[i].turn))
			roundVerts += steps + 2
			roundTris += steps
		}
	}

	b := &meshBuilder{
		mesh: &Mesh{
			Vertices:      make([]Vertex, 0, 4*(n-1)+roundVerts),
			Indices:       make([]uint32, 0, 6*(n-1)+3*roundTris),
			TotalDistance: dist[n-1],
		},
	}

	for s := 0; s < n-1; s++ {
		var startJoint, endJoint *joint
		if s > 0 {
			startJoint = &joints[s]
		}
		if s+1 < n-1 {
			endJoint = &joints[s+1]
		}

		normal := dirs[s].Perp()
		sl, sr, sld, srd := startJoint.offsets(dirs[s], normal)
		el, er, eld, erd := endJoint.offsets(dirs[s], normal)

		b.quad(
			vertexAt(pts[s], Left, sl, dist[s], sld),
			vertexAt(pts[s], Right, sr, dist[s], srd),
			vertexAt(pts[s+1], Left, el, dist[s+1], eld),
			vertexAt(pts[s+1], Right, er, dist[s+1], erd),
		)

		if endJoint != nil && !endJoint.sameLine {
			b.roundCorner(pts[s+1], dist[s+1], endJoint)
		}
	}

	return b.mesh
}

// RoundJointAll tessellates a batch of polylines. The result is aligned with
// the input; entries for invalid polylines are nil.
func RoundJointAll(paths [][]geom.Point) []*Mesh {
	meshes := make([]*Mesh, len(paths))
	for i, p := range paths {
		meshes[i] = RoundJoint(p)
	}
	return meshes
}

// segmentQuad is the closed form for a single segment.
func segmentQuad(p0, p1 geom.Point) *Mesh {
	d := p1.Sub(p0)
	length := d.Length()
	normal := d.Scale(1 / length).Perp()

	b := &meshBuilder{
		mesh: &Mesh{
			Vertices:      make([]Vertex, 0, 4),
			Indices:       make([]uint32, 0, 6),
			TotalDistance: length,
		},
	}
	b.quad(
		vertexAt(p0, Left, normal, 0, 0),
		vertexAt(p0, Right, normal.Neg(), 0, 0),
		vertexAt(p1, Left, normal, length, 0),
		vertexAt(p1, Right, normal.Neg(), length, 0),
	)
	return b.mesh
}

// roundSteps returns the number of fan triangles for a turn of angle radians.
func roundSteps(angle float64) int {
	steps := int(math.Ceil(angle/RoundStep - stepSlack))
	if steps < 1 {
		steps = 1
	}
	return steps
}

func vertexAt(p geom.Point, side Side, offset geom.Vec2, distance, delta float64) Vertex {
	return Vertex{
		X:                  p.X,
		Y:                  p.Y,
		Side:               side,
		OffsetX:            offset.X,
		OffsetY:            offset.Y,
		Distance:           distance,
		DistanceWidthDelta: delta,
	}
}

// cleanPath drops consecutive duplicates and rejects non-finite input.
func cleanPath(path []geom.Point) ([]geom.Point, bool) {
	out := make([]geom.Point, 0, len(path))
	for i, p := range path {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return nil, false
		}
		if i > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out, true
}

// meshBuilder appends geometry to a mesh.
type meshBuilder struct {
	mesh *Mesh
}

func (b *meshBuilder) add(v Vertex) uint32 {
	idx := uint32(len(b.mesh.Vertices)) //nolint:gosec // vertex count fits uint32
	b.mesh.Vertices = append(b.mesh.Vertices, v)
	return idx
}

func (b *meshBuilder) tri(a, c, d uint32) {
	b.mesh.Indices = append(b.mesh.Indices, a, c, d)
}

// quad emits two counter-clockwise triangles for one segment.
func (b *meshBuilder) quad(startLeft, startRight, endLeft, endRight Vertex) {
	sl := b.add(startLeft)
	sr := b.add(startRight)
	el := b.add(endLeft)
	er := b.add(endRight)
	b.tri(sr, er, el)
	b.tri(sr, el, sl)
}

// roundCorner fans the outer side of a joint from the incoming normal to the
// outgoing normal.
func (b *meshBuilder) roundCorner(p geom.Point, distance float64, j *joint) {
	sign := float64(j.outer)
	from := j.normalIn.Scale(sign)
	to := j.normalOut.Scale(sign)

	steps := roundSteps(math.Abs(j.turn))
	step := j.turn / float64(steps)
	cos, sin := math.Cos(step), math.Sin(step)

	center := b.add(vertexAt(p, j.outer, geom.Vec2{}, distance, 0))

	prev := uint32(0)
	offset := from
	for k := 0; k <= steps; k++ {
		if k == steps {
			offset = to
		}
		f := float64(k) / float64(steps)
		delta := (1-f)*offset.Dot(j.dirIn) + f*offset.Dot(j.dirOut)
		idx := b.add(vertexAt(p, j.outer, offset, distance, delta))

		if k > 0 {
			if j.turn > 0 {
				b.tri(center, prev, idx)
			} else {
				b.tri(center, idx, prev)
			}
		}
		prev = idx
		offset = offset.Rotate(cos, sin)
	}
}
