package flowline

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/flowline/internal/field"
	"github.com/gogpu/flowline/internal/geom"
	"github.com/gogpu/flowline/internal/pack"
	"github.com/gogpu/flowline/internal/precision"
	"github.com/gogpu/flowline/internal/streamline"
	"github.com/gogpu/flowline/internal/tessellate"
)

// Field is a row-major raster of interleaved (u, v) velocity pairs.
type Field = field.Field

// Settings controls streamline seeding, integration and collision handling.
type Settings = streamline.Settings

// StreamlinePoint is one sample of a traced streamline.
type StreamlinePoint = streamline.Point

// PackOptions controls how streamlines are packed into instance buffers.
type PackOptions = pack.StreamlineOptions

// FlowBuffers holds instanced streamline buffers, one instance per segment.
type FlowBuffers = pack.FlowBuffers

// MeshBuffers holds interleaved mesh vertices and rebased indices.
type MeshBuffers = pack.MeshBuffers

// Mesh is a tessellated polyline.
type Mesh = tessellate.Mesh

// Vertex is one tessellated mesh vertex.
type Vertex = tessellate.Vertex

// Rect is an axis-aligned rectangle in field cell units.
type Rect = geom.Rect

// Point is a 2D position.
type Point = geom.Point

// NewField wraps interleaved u, v data. Cells equal to noData, and NaN
// cells, are treated as missing.
func NewField(width, height int, data []float32, noData float32) (*Field, error) {
	return field.New(width, height, data, noData)
}

// NewFieldFromFloat64 is like NewField for float64 data.
func NewFieldFromFloat64(width, height int, data []float64, noData float64) (*Field, error) {
	return field.FromFloat64(width, height, data, noData)
}

// DefaultSettings returns streamline settings suited to a raster displayed at
// roughly one cell per screen pixel.
func DefaultSettings() Settings {
	return streamline.DefaultSettings()
}

// SplitDouble splits v into a high part that is a multiple of 65536 and a
// low remainder, so high+low == v. For |v| below 2^40 the high part is
// exact in float32 and the low part keeps sub-cell precision.
func SplitDouble(v float64) [2]float64 {
	high, low := precision.Split(v)
	return [2]float64{high, low}
}

// TessellateRoundJointPolyline tessellates a polyline into a round-joint
// triangle mesh. It returns nil for polylines with fewer than two distinct
// points or with non-finite coordinates.
func TessellateRoundJointPolyline(polyline [][2]float64) *Mesh {
	pts := make([]geom.Point, len(polyline))
	for i, p := range polyline {
		pts[i] = geom.Pt(p[0], p[1])
	}
	return tessellate.RoundJoint(pts)
}

// BuildStreamlines traces streamlines through f. Lines shorter than the
// minimum length are dropped.
func BuildStreamlines(f *Field, s Settings) ([][]StreamlinePoint, error) {
	return streamline.Build(f, s)
}

// PackStreamlinesToBuffers packs paths into instance buffers with speed,
// re-basing coordinates on limitRange's minimum corner.
func PackStreamlinesToBuffers(paths [][]StreamlinePoint, limitRange Rect) *FlowBuffers {
	return pack.Streamlines(paths, PackOptions{LimitRange: limitRange, Seed: 1, Speed: true})
}

// FieldMagnitude resamples the speed of f onto a w x h texture. Texels
// whose four neighbouring cells are not all present are NaN, so a shader can
// discard them.
func FieldMagnitude(f *Field, w, h int) ([]float32, error) {
	if f == nil {
		return nil, ErrNoField
	}
	if err := checkTexture([2]int{w, h}); err != nil {
		return nil, err
	}
	return f.Magnitude(w, h), nil
}

// FlowLayouts describes FlowBuffers as instance-rate vertex buffers, in the
// order Position1, Position2, TimeInfo and, when speed is set, Speed.
func FlowLayouts(speed bool) []gputypes.VertexBufferLayout {
	return pack.FlowLayouts(speed)
}

// MeshLayout describes MeshBuffers.Vertices as one interleaved vertex
// buffer.
func MeshLayout() []gputypes.VertexBufferLayout {
	return pack.MeshLayout()
}

// PackMeshesToBuffers interleaves meshes into one vertex and index buffer.
// Nil meshes are skipped.
func PackMeshesToBuffers(meshes []*Mesh) *MeshBuffers {
	return pack.Meshes(meshes)
}
