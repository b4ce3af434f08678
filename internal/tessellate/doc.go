// Package tessellate turns polylines into triangle meshes for animated
// flowing-line rendering.
//
// # Mesh Layout
//
// Every vertex sits on the centreline of the input path and carries a
// unit-width offset vector. The vertex shader extrudes it by the line width:
//
//	position = (x, y) + offset * width
//
// so one mesh serves every line width. Vertices also carry the distance along
// the path (for the moving dash pattern) and a distance-width delta that
// shifts the along-path distance of vertices pushed forward or backward by a
// joint, which keeps the dash pattern from smearing around corners.
//
// # Joints
//
// Each interior vertex is a joint. Joints whose turn is close to 0° or 180°
// are treated as the same line and simply butt the neighbouring quads
// together. Other joints:
//   - the inner side of both neighbouring quads meets at the miter point
//   - the outer side is closed with a triangle fan centred on the joint,
//     one triangle per started 15° of turn
//
// # Usage
//
//	mesh := tessellate.RoundJoint([]geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}})
//	if mesh == nil {
//	    // fewer than two distinct points, skip this graphic
//	}
//
// Offsets are produced in world space (Y up). Use [Vertex.ScreenOffset] when
// packing for a Y-down screen space.
package tessellate
