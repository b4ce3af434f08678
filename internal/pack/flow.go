// Package pack converts streamlines and tessellated meshes into flat float32
// buffers ready for GPU upload.
//
// Buffers are built once per recompute and replaced wholesale; nothing here
// mutates a previously returned buffer.
package pack

import (
	"math/rand/v2"

	"github.com/gogpu/flowline/internal/geom"
	"github.com/gogpu/flowline/internal/streamline"
)

// Per-instance float counts of the flow buffers.
const (
	PositionStride = 4
	TimeStride     = 4
	SpeedStride    = 2
)

// timeSeedStream separates the packer's PCG stream from the builder's.
const timeSeedStream = 0x71e5

// StreamlineOptions controls streamline packing.
type StreamlineOptions struct {
	// LimitRange.MinX/MinY is subtracted from every coordinate.
	LimitRange geom.Rect `json:"limitRange" toml:"limit_range" yaml:"limit_range"`

	// Seed drives the per-line animation phase.
	Seed uint64 `json:"seed" toml:"seed" yaml:"seed"`

	// Speed fills FlowBuffers.Speed for speed-based color ramps.
	Speed bool `json:"speed" toml:"speed" yaml:"speed"`
}

// FlowBuffers holds one instance per line segment.
type FlowBuffers struct {
	// Position1 holds p0.x, p0.y, p1.x, p1.y per instance.
	Position1 []float32

	// Position2 holds p2.x, p2.y, p3.x, p3.y per instance.
	Position2 []float32

	// TimeInfo holds t1, t2, line duration and line time seed per instance.
	TimeInfo []float32

	// Speed holds s1, s2 per instance; nil unless requested.
	Speed []float32

	// Segments is the instance count.
	Segments int
}

// SegmentCount returns the number of segments lines will pack into.
func SegmentCount(lines [][]streamline.Point) int {
	n := 0
	for _, line := range lines {
		if len(line) > 1 {
			n += len(line) - 1
		}
	}
	return n
}

// Streamlines packs each segment (p1, p2) of every line with its neighbours
// p0 and p3. At line ends the window is clamped by repeating the end point,
// so p0 == p1 on the first segment and p3 == p2 on the last.
func Streamlines(lines [][]streamline.Point, opts StreamlineOptions) *FlowBuffers {
	n := SegmentCount(lines)
	b := &FlowBuffers{
		Position1: make([]float32, 0, n*PositionStride),
		Position2: make([]float32, 0, n*PositionStride),
		TimeInfo:  make([]float32, 0, n*TimeStride),
		Segments:  n,
	}
	if opts.Speed {
		b.Speed = make([]float32, 0, n*SpeedStride)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, timeSeedStream)) //nolint:gosec // animation phase only
	ox, oy := opts.LimitRange.MinX, opts.LimitRange.MinY
	xy := func(p streamline.Point) (float32, float32) {
		return float32(p.X - ox), float32(p.Y - oy)
	}

	for _, line := range lines {
		if len(line) < 2 {
			continue
		}
		total := float32(streamline.Duration(line))
		seed := rng.Float32()
		last := len(line) - 1

		for j := 0; j < last; j++ {
			p0 := line[max(j-1, 0)]
			p1 := line[j]
			p2 := line[j+1]
			p3 := line[min(j+2, last)]

			x0, y0 := xy(p0)
			x1, y1 := xy(p1)
			x2, y2 := xy(p2)
			x3, y3 := xy(p3)

			b.Position1 = append(b.Position1, x0, y0, x1, y1)
			b.Position2 = append(b.Position2, x2, y2, x3, y3)
			b.TimeInfo = append(b.TimeInfo, float32(p1.T), float32(p2.T), total, seed)
			if opts.Speed {
				b.Speed = append(b.Speed, float32(p1.Speed), float32(p2.Speed))
			}
		}
	}
	return b
}

// Window returns the four control points of instance i.
func (b *FlowBuffers) Window(i int) [4][2]float32 {
	p := b.Position1[i*PositionStride : (i+1)*PositionStride]
	q := b.Position2[i*PositionStride : (i+1)*PositionStride]
	return [4][2]float32{{p[0], p[1]}, {p[2], p[3]}, {q[0], q[1]}, {q[2], q[3]}}
}
