package similarity

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrSignalUnavailable means an embedding could not be produced.
	ErrSignalUnavailable = errors.New("similarity signal unavailable")
	// ErrDimensionMismatch is returned when vectors differ in length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
