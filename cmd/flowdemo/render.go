package main

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/vector"

	"github.com/gogpu/flowline"
)

// bands is the number of speed colors. Each band is one rasterizer pass.
const bands = 8

// ramp maps t in [0, 1] from cool blue to warm orange.
func ramp(t float64) color.RGBA {
	t = min(max(t, 0), 1)
	return color.RGBA{
		R: uint8(60 + 195*t),
		G: uint8(140 + 60*(1-2*abs(t-0.5))),
		B: uint8(230 - 190*t),
		A: 255,
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// band returns the speed band of s within speedRange.
func band(s float64, speedRange [2]float64) int {
	span := speedRange[1] - speedRange[0]
	if !(span > 0) {
		return 0
	}
	b := int((s - speedRange[0]) / span * bands)
	return min(max(b, 0), bands-1)
}

// render fills every mesh triangle, extruding each vertex by its offset
// times halfWidth. Meshes are grouped into speed bands by line speed.
func render(w, h int, meshes []*flowline.Mesh, speeds []float64, speedRange [2]float64, halfWidth float64) *image.RGBA {
	dst := newCanvas(w, h)

	var groups [bands][]*flowline.Mesh
	for i, m := range meshes {
		if m == nil {
			continue
		}
		b := band(speeds[i], speedRange)
		groups[b] = append(groups[b], m)
	}

	r := vector.NewRasterizer(w, h)
	for b, group := range groups {
		if len(group) == 0 {
			continue
		}
		r.Reset(w, h)
		for _, m := range group {
			fillMesh(r, m, halfWidth)
		}
		src := image.NewUniform(ramp((float64(b) + 0.5) / bands))
		r.DrawOp = draw.Over
		r.Draw(dst, dst.Bounds(), src, image.Point{})
	}
	return dst
}

func fillMesh(r *vector.Rasterizer, m *flowline.Mesh, halfWidth float64) {
	at := func(i uint32) (float32, float32) {
		v := m.Vertices[i]
		return float32(v.X + v.OffsetX*halfWidth), float32(v.Y + v.OffsetY*halfWidth)
	}
	for i := 0; i+2 < len(m.Indices); i += 3 {
		x0, y0 := at(m.Indices[i])
		x1, y1 := at(m.Indices[i+1])
		x2, y2 := at(m.Indices[i+2])
		r.MoveTo(x0, y0)
		r.LineTo(x1, y1)
		r.LineTo(x2, y2)
		r.ClosePath()
	}
}
