// Package streamline traces flow lines through a vector raster.
//
// Seeds are laid on a regular grid, shuffled and thinned by density, then
// each seed is integrated with fixed-length steps along the sampled flow.
// With MergeLines enabled a collision stencil keeps lines from running into
// each other: the first line to reach a stencil cell owns it.
package streamline

import (
	"errors"
	"math"
	"math/rand/v2"

	"github.com/gogpu/flowline/internal/field"
	"github.com/gogpu/flowline/internal/geom"
)

const (
	// MinPoints is the fewest points a line needs to be kept.
	MinPoints = 3

	// MaxSeeds bounds the seed grid; the spacing grows to fit.
	MaxSeeds = 1 << 20
)

// seedStream separates the builder's PCG stream from other users of the
// same seed.
const seedStream = 0x5eed

// ErrNoField reports a nil field.
var ErrNoField = errors.New("streamline: nil field")

// Point is one sample along a streamline.
type Point struct {
	X, Y float64

	// T is the time elapsed since the seed, in field units per velocity unit.
	T float64

	// Speed is the scaled flow speed of the step that reached this point.
	Speed float64
}

// Build traces streamlines over the whole seed grid.
func Build(f *field.Field, s Settings) ([][]Point, error) {
	if f == nil {
		return nil, ErrNoField
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	limit := s.limit(f.Bounds())
	if limit.Empty() {
		return nil, nil
	}

	rng := rand.New(rand.NewPCG(s.Seed, seedStream)) //nolint:gosec // visual jitter, not security
	seeds := Seeds(limit, s.LineSpacing)
	rng.Shuffle(len(seeds), func(i, j int) {
		seeds[i], seeds[j] = seeds[j], seeds[i]
	})

	accepted := seeds[:0]
	for _, p := range seeds {
		if rng.Float64() < s.Density {
			accepted = append(accepted, p)
		}
	}

	return trace(f, s, limit, accepted), nil
}

// BuildFromSeeds traces one line per seed, in order, without shuffling or
// density sampling.
func BuildFromSeeds(f *field.Field, s Settings, seeds []geom.Point) ([][]Point, error) {
	if f == nil {
		return nil, ErrNoField
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	limit := s.limit(f.Bounds())
	if limit.Empty() {
		return nil, nil
	}
	return trace(f, s, limit, seeds), nil
}

// Seeds returns grid points spaced by spacing, centred in their grid cells
// inside r. The spacing is doubled until the grid fits MaxSeeds.
func Seeds(r geom.Rect, spacing float64) []geom.Point {
	if r.Empty() || !(spacing > 0) || math.IsInf(r.Width(), 0) || math.IsInf(r.Height(), 0) {
		return nil
	}
	nx, ny := seedDims(r, spacing)
	for nx*ny > MaxSeeds {
		spacing *= 2
		nx, ny = seedDims(r, spacing)
	}

	seeds := make([]geom.Point, 0, int(nx*ny))
	for j := range int(ny) {
		y := r.MinY + (float64(j)+0.5)*spacing
		if y >= r.MaxY {
			break
		}
		for i := range int(nx) {
			x := r.MinX + (float64(i)+0.5)*spacing
			if x >= r.MaxX {
				break
			}
			seeds = append(seeds, geom.Pt(x, y))
		}
	}
	return seeds
}

func seedDims(r geom.Rect, spacing float64) (nx, ny float64) {
	return math.Ceil(r.Width() / spacing), math.Ceil(r.Height() / spacing)
}

func trace(f *field.Field, s Settings, limit geom.Rect, seeds []geom.Point) [][]Point {
	t := tracer{field: f, settings: s, limit: limit}
	if s.MergeLines {
		t.stencil = NewStencil(limit, s.LineCollisionWidth)
	}

	lines := make([][]Point, 0, len(seeds)/4)
	var id uint32
	for _, seed := range seeds {
		id++
		line := t.trace(seed, id)
		if len(line) >= MinPoints {
			lines = append(lines, line)
		}
	}
	return lines
}

type tracer struct {
	field    *field.Field
	settings Settings
	limit    geom.Rect
	stencil  *Stencil
}

// trace integrates one line from seed. The returned line may be shorter than
// MinPoints; the caller filters it.
func (t *tracer) trace(seed geom.Point, id uint32) []Point {
	s := &t.settings
	if !t.limit.Contains(seed) {
		return nil
	}
	if t.stencil != nil && !t.stencil.Claim(seed, id) {
		return nil
	}

	line := make([]Point, 1, min(s.VerticesPerLine, 64))
	line[0] = Point{X: seed.X, Y: seed.Y}

	pos := seed
	var prevDir geom.Vec2
	elapsed := 0.0

	for len(line) < s.VerticesPerLine {
		u, v := t.field.Sample(pos.X, pos.Y)
		vel := geom.Vec2{X: u * s.VelocityScale, Y: v * s.VelocityScale}
		speed := vel.Length()
		if speed == 0 || !(speed >= s.MinSpeedThreshold) {
			break
		}
		dir := vel.Scale(1 / speed)

		if len(line) == 1 {
			line[0].Speed = speed
		} else if geom.AngleBetween(prevDir, dir) > s.MaxTurnAngle {
			break
		}

		next := pos.Add(dir.Scale(s.SegmentLength))
		if !t.limit.Contains(next) {
			break
		}
		if t.stencil != nil && !t.stencil.Claim(next, id) {
			break
		}

		elapsed += s.SegmentLength / speed
		line = append(line, Point{X: next.X, Y: next.Y, T: elapsed, Speed: speed})
		pos = next
		prevDir = dir
	}
	return line
}

// Duration returns the elapsed time at the end of a line.
func Duration(line []Point) float64 {
	if len(line) == 0 {
		return 0
	}
	return line[len(line)-1].T
}

// SpeedRange returns the smallest and largest point speed over all lines.
func SpeedRange(lines [][]Point) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, line := range lines {
		for _, p := range line {
			lo = math.Min(lo, p.Speed)
			hi = math.Max(hi, p.Speed)
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
