package imgedit

import "errors"

var (
	// ErrMissingDependency is returned when a codec or an external tool
	// needed for a format is not available.
	ErrMissingDependency = errors.New("missing dependency")

	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrLoadFailure       = errors.New("failed to load image")
	ErrSaveFailure       = errors.New("failed to save image")

	// ErrInvalidState is returned by an Editor that holds no image.
	ErrInvalidState = errors.New("invalid state: no image loaded")

	ErrInvalidDimensions = errors.New("invalid dimensions")
)
