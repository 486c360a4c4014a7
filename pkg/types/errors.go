package types

import "errors"

var (
	// ErrInvalidConfig marks a caller mistake in configuration values.
	// Batches abort on it instead of skipping the current item.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrChannelCount is returned for images that are neither 3 nor 4 channel,
	// or whose channel layout does not fit the operation.
	ErrChannelCount = errors.New("unsupported channel count")

	// ErrDegenerateGeometry is returned when label geometry collapses,
	// e.g. a box with negative size or an image trimmed to nothing.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrIndexCollision is returned when a reserved sample index already exists on disk.
	ErrIndexCollision = errors.New("sample index already in use")

	// ErrEmptyImage is returned when a decoded image has no pixels.
	ErrEmptyImage = errors.New("empty image")
)
