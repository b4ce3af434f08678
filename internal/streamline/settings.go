package streamline

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/flowline/internal/geom"
)

// ErrSettings reports an invalid Settings value.
var ErrSettings = errors.New("streamline: invalid settings")

// Settings controls seeding, integration and collision handling.
// Distances are in field cell units.
type Settings struct {
	// Density is the probability that a seed point starts a line.
	Density float64 `json:"density" toml:"density" yaml:"density"`

	// LineSpacing is the spacing of the seed grid.
	LineSpacing float64 `json:"lineSpacing" toml:"line_spacing" yaml:"line_spacing"`

	// LineCollisionWidth is the size of a collision stencil cell.
	LineCollisionWidth float64 `json:"lineCollisionWidth" toml:"line_collision_width" yaml:"line_collision_width"`

	// SegmentLength is the distance advanced per integration step.
	SegmentLength float64 `json:"segmentLength" toml:"segment_length" yaml:"segment_length"`

	// VelocityScale multiplies sampled velocities.
	VelocityScale float64 `json:"velocityScale" toml:"velocity_scale" yaml:"velocity_scale"`

	// MaxTurnAngle is the largest turn between steps, in radians.
	MaxTurnAngle float64 `json:"maxTurnAngle" toml:"max_turn_angle" yaml:"max_turn_angle"`

	// MinSpeedThreshold stops a line where the scaled speed drops below it.
	MinSpeedThreshold float64 `json:"minSpeedThreshold" toml:"min_speed_threshold" yaml:"min_speed_threshold"`

	// MergeLines enables the collision stencil.
	MergeLines bool `json:"mergeLines" toml:"merge_lines" yaml:"merge_lines"`

	// VerticesPerLine caps the number of points in a line.
	VerticesPerLine int `json:"verticesPerLine" toml:"vertices_per_line" yaml:"vertices_per_line"`

	// LimitRange bounds seeding and tracing. An empty range means the whole
	// field.
	LimitRange geom.Rect `json:"limitRange" toml:"limit_range" yaml:"limit_range"`

	// Seed drives seed shuffling and density sampling.
	Seed uint64 `json:"seed" toml:"seed" yaml:"seed"`
}

// DefaultSettings returns settings suited to a raster displayed at roughly
// one cell per screen pixel.
func DefaultSettings() Settings {
	return Settings{
		Density:            1,
		LineSpacing:        10,
		LineCollisionWidth: 1,
		SegmentLength:      1,
		VelocityScale:      1,
		MaxTurnAngle:       math.Pi / 2,
		MinSpeedThreshold:  0.001,
		MergeLines:         true,
		VerticesPerLine:    30,
		Seed:               1,
	}
}

// Validate checks the settings before any tracing starts.
func (s Settings) Validate() error {
	switch {
	case !(s.Density >= 0 && s.Density <= 1):
		return fmt.Errorf("%w: density %v outside [0, 1]", ErrSettings, s.Density)
	case !(s.LineSpacing > 0):
		return fmt.Errorf("%w: line spacing must be positive", ErrSettings)
	case !(s.SegmentLength > 0):
		return fmt.Errorf("%w: segment length must be positive", ErrSettings)
	case s.MergeLines && !(s.LineCollisionWidth > 0):
		return fmt.Errorf("%w: line collision width must be positive", ErrSettings)
	case math.IsNaN(s.VelocityScale) || math.IsInf(s.VelocityScale, 0):
		return fmt.Errorf("%w: velocity scale must be finite", ErrSettings)
	case math.IsNaN(s.MaxTurnAngle) || s.MaxTurnAngle < 0:
		return fmt.Errorf("%w: max turn angle must be non-negative", ErrSettings)
	case math.IsNaN(s.MinSpeedThreshold):
		return fmt.Errorf("%w: min speed threshold is NaN", ErrSettings)
	case s.VerticesPerLine < 1:
		return fmt.Errorf("%w: vertices per line must be at least 1", ErrSettings)
	}
	return nil
}

// limit returns the tracing range clipped to the field.
func (s Settings) limit(bounds geom.Rect) geom.Rect {
	if s.LimitRange.Empty() {
		return bounds
	}
	return s.LimitRange.Intersect(bounds)
}
