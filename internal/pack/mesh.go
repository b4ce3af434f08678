package pack

import (
	"github.com/gogpu/flowline/internal/precision"
	"github.com/gogpu/flowline/internal/tessellate"
)

// MeshVertexFloats is the number of float32 values per mesh vertex:
// position high (2), position low (2), screen offset (2), side, distance,
// distance-width delta and total distance.
const MeshVertexFloats = 10

// MeshBuffers holds interleaved vertices and indices for many meshes drawn
// in one call.
type MeshBuffers struct {
	Vertices []float32
	Indices  []uint32

	// Meshes is the number of non-nil meshes packed.
	Meshes int
}

// VertexCount returns the number of packed vertices.
func (b *MeshBuffers) VertexCount() int {
	return len(b.Vertices) / MeshVertexFloats
}

// Meshes concatenates meshes into one buffer pair, rebasing indices. Nil
// meshes are skipped. Positions are split for high-precision reconstruction
// and offsets are flipped to Y-down screen space.
func Meshes(meshes []*tessellate.Mesh) *MeshBuffers {
	verts, idx := 0, 0
	for _, m := range meshes {
		if m != nil {
			verts += len(m.Vertices)
			idx += len(m.Indices)
		}
	}

	b := &MeshBuffers{
		Vertices: make([]float32, 0, verts*MeshVertexFloats),
		Indices:  make([]uint32, 0, idx),
	}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		base := uint32(b.VertexCount()) //nolint:gosec // vertex count fits uint32
		total := float32(m.TotalDistance)
		for _, v := range m.Vertices {
			pos := precision.SplitPoint(v.X, v.Y)
			ox, oy := v.ScreenOffset()
			b.Vertices = append(b.Vertices,
				pos[0], pos[1], pos[2], pos[3],
				float32(ox), float32(oy),
				float32(v.Side),
				float32(v.Distance),
				float32(v.DistanceWidthDelta),
				total,
			)
		}
		for _, i := range m.Indices {
			b.Indices = append(b.Indices, base+i)
		}
		b.Meshes++
	}
	return b
}
