package streamline

import (
	"math"

	"github.com/gogpu/flowline/internal/geom"
)

const (
	// MinCollisionWidth bounds the stencil resolution for very thin lines.
	MinCollisionWidth = 0.5

	// MaxStencilCells bounds the stencil size; cells grow to fit.
	MaxStencilCells = 1 << 24
)

// Stencil records which path owns each collision cell. Zero is free.
type Stencil struct {
	origin   geom.Point
	cellSize float64
	cols     int
	rows     int
	owner    []uint32
}

// NewStencil covers r with cells of the given width, widened to at least
// MinCollisionWidth and further until the grid fits MaxStencilCells.
func NewStencil(r geom.Rect, width float64) *Stencil {
	cell := math.Max(width, MinCollisionWidth)
	cols, rows := stencilDims(r, cell)
	for cols*rows > MaxStencilCells {
		cell *= 2
		cols, rows = stencilDims(r, cell)
	}
	return &Stencil{
		origin:   geom.Pt(r.MinX, r.MinY),
		cellSize: cell,
		cols:     cols,
		rows:     rows,
		owner:    make([]uint32, cols*rows),
	}
}

func stencilDims(r geom.Rect, cell float64) (cols, rows int) {
	cols = int(math.Ceil(r.Width() / cell))
	rows = int(math.Ceil(r.Height() / cell))
	return max(cols, 1), max(rows, 1)
}

// CellSize returns the side of a stencil cell in field units.
func (s *Stencil) CellSize() float64 { return s.cellSize }

// Size returns the stencil grid dimensions.
func (s *Stencil) Size() (cols, rows int) { return s.cols, s.rows }

func (s *Stencil) index(p geom.Point) (int, bool) {
	cx := int(math.Floor((p.X - s.origin.X) / s.cellSize))
	cy := int(math.Floor((p.Y - s.origin.Y) / s.cellSize))
	if cx < 0 || cy < 0 || cx >= s.cols || cy >= s.rows {
		return 0, false
	}
	return cy*s.cols + cx, true
}

// Owner returns the path owning the cell under p, zero if free or outside.
func (s *Stencil) Owner(p geom.Point) uint32 {
	i, ok := s.index(p)
	if !ok {
		return 0
	}
	return s.owner[i]
}

// Claim marks the cell under p as owned by id. It fails if the cell lies
// outside the stencil or belongs to another path; a path may re-enter its
// own cells.
func (s *Stencil) Claim(p geom.Point, id uint32) bool {
	i, ok := s.index(p)
	if !ok {
		return false
	}
	switch s.owner[i] {
	case 0:
		s.owner[i] = id
		return true
	case id:
		return true
	default:
		return false
	}
}
