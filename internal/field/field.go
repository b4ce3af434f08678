// Package field holds vector rasters (u, v per cell) and the two bilinear
// sampling policies used to read them.
//
// Cell (col, row) is sampled at integer coordinates x = col, y = row; the
// field covers [0, Width) x [0, Height) in cell space.
//
// Two samplers exist on purpose:
//   - [Field.Sample] substitutes zero for each no-data neighbour and always
//     interpolates. Streamline tracing uses it, which lets lines coast a
//     little into data gaps.
//   - [Field.SampleStrict] rejects the sample when any neighbour is no-data,
//     matching the GPU sampler used for colormap and arrow rendering.
package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/flowline/internal/geom"
)

var (
	// ErrDimensions reports a non-positive width or height.
	ErrDimensions = errors.New("field: width and height must be positive")

	// ErrSize reports data whose length is not 2*width*height.
	ErrSize = errors.New("field: data length does not match width*height*2")
)

// Field is a grid of interleaved (u, v) samples, row-major from the top row.
type Field struct {
	Width, Height int

	// Data holds u0, v0, u1, v1, ... for Width*Height cells.
	Data []float32

	// NoData marks a missing component. NaN components are also treated as
	// missing.
	NoData float32
}

// New validates the dimensions against data and returns a field that
// shares data.
func New(width, height int, data []float32, noData float32) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	if width > math.MaxInt/2/height {
		return nil, fmt.Errorf("%w: %dx%d cells overflow", ErrSize, width, height)
	}
	if want := 2 * width * height; len(data) != want {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrSize, len(data), want)
	}
	return &Field{Width: width, Height: height, Data: data, NoData: noData}, nil
}

// FromFloat64 converts float64 samples and validates them like New.
func FromFloat64(width, height int, data []float64, noData float64) (*Field, error) {
	conv := make([]float32, len(data))
	for i, v := range data {
		conv[i] = float32(v)
	}
	return New(width, height, conv, float32(noData))
}

// Uniform returns a field with the same vector in every cell.
func Uniform(width, height int, u, v float32) *Field {
	data := make([]float32, 2*width*height)
	for i := 0; i < len(data); i += 2 {
		data[i] = u
		data[i+1] = v
	}
	return &Field{Width: width, Height: height, Data: data, NoData: float32(math.NaN())}
}

// Func returns a field evaluating fn at every cell.
func Func(width, height int, fn func(x, y int) (u, v float32)) *Field {
	data := make([]float32, 2*width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := 2 * (y*width + x)
			data[i], data[i+1] = fn(x, y)
		}
	}
	return &Field{Width: width, Height: height, Data: data, NoData: float32(math.NaN())}
}

// Bounds returns the cell-space extent of the field.
func (f *Field) Bounds() geom.Rect {
	return geom.R(0, 0, float64(f.Width), float64(f.Height))
}

// At returns the raw components of a cell.
func (f *Field) At(col, row int) (u, v float32) {
	i := 2 * (row*f.Width + col)
	return f.Data[i], f.Data[i+1]
}

// Set writes the raw components of a cell.
func (f *Field) Set(col, row int, u, v float32) {
	i := 2 * (row*f.Width + col)
	f.Data[i], f.Data[i+1] = u, v
}

// missing reports whether a component is no-data.
func (f *Field) missing(c float32) bool {
	return c == f.NoData || c != c
}

// SpeedRange returns the smallest and largest vector magnitude over cells
// with both components present. ok is false when no cell is valid.
func (f *Field) SpeedRange() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i+1 < len(f.Data); i += 2 {
		u, v := f.Data[i], f.Data[i+1]
		if f.missing(u) || f.missing(v) {
			continue
		}
		s := math.Hypot(float64(u), float64(v))
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return lo, hi, true
}
