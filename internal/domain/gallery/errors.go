package gallery

import "errors"

// Sentinel kinds for gallery errors.
var (
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the gallery dimension. Never silently truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
