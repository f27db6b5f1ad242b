package face

import "errors"

var (
	// ErrFrameTooLarge is returned when a frame exceeds the byte ceiling.
	ErrFrameTooLarge = errors.New("face: frame too large")

	// ErrEmptyFrame is returned for a 200 response without a body.
	ErrEmptyFrame = errors.New("face: empty frame")

	// ErrDecode is returned when the body is not a decodable image.
	ErrDecode = errors.New("face: decode failed")

	// ErrInvalidSize is returned by NewFrameBuffer for unusable dimensions.
	ErrInvalidSize = errors.New("face: invalid frame buffer size")
)
