package flowline

import "errors"

var (
	// ErrStale is returned by Generate when a newer request was issued
	// before the result was ready. The result is dropped.
	ErrStale = errors.New("flowline: result superseded by a newer request")

	// ErrClosed is returned when using a closed Generator.
	ErrClosed = errors.New("flowline: generator is closed")

	// ErrNoField is returned when a request names neither a field nor a
	// cached field id.
	ErrNoField = errors.New("flowline: request has no field")

	// ErrTextureSize reports a magnitude texture with a non-positive side or
	// more than MaxMagnitudeTexels texels.
	ErrTextureSize = errors.New("flowline: invalid magnitude texture size")

	// ErrConfig reports an invalid or unreadable configuration.
	ErrConfig = errors.New("flowline: invalid config")
)
