// Package flowline turns 2D vector rasters (wind, currents) into animated
// flow-line geometry ready for GPU upload.
//
// # Overview
//
// A field is a row-major raster of (u, v) velocity pairs. flowline seeds
// streamlines on a jittered grid, integrates them through the field with a
// collision stencil so lines do not crowd each other, and packs the result
// into instanced vertex buffers (one instance per segment). Polylines can
// also be tessellated into round-joint triangle meshes whose vertices carry
// per-vertex offsets, so line width is applied in screen space at draw time.
//
// Coordinates are kept precise at large magnitudes by splitting each float64
// into a high and a low float32 (see [SplitDouble]).
//
// # Quick Start
//
//	g := flowline.NewGenerator()
//	defer g.Close()
//
//	res, err := g.Generate(ctx, flowline.Request{Field: f})
//	if err != nil {
//	    return err
//	}
//	upload(res.Buffers.Position1, res.Buffers.Position2, res.Buffers.TimeInfo)
//
// # Versioning
//
// Every Generate call takes a new version. If another call starts before a
// result is ready, the older result is dropped and [ErrStale] is returned, so
// the newest request always wins regardless of completion order.
//
// # Architecture
//
//   - Public API: Generator, Config, SplitDouble, TessellateRoundJointPolyline,
//     PackStreamlinesToBuffers
//   - cache: explicit field cache with pinned handles
//   - worker: websocket transport for running generation out of process
//   - internal: precision, geom, field, streamline, tessellate, pack, parallel
//
// # Logging
//
// flowline is silent by default. Call [SetLogger] to route diagnostics to a
// [log/slog] handler.
package flowline
