package twostop

import "errors"

var (
	// ErrChannelCount is returned when a buffer does not carry exactly three
	// samples (R, G, B) per pixel.
	ErrChannelCount = errors.New("twostop: pixel must have exactly 3 channels")

	// ErrMalformed is returned when the sample slice does not match the
	// declared dimensions.
	ErrMalformed = errors.New("twostop: malformed pixel buffer")

	// ErrBitDepth is returned for an unsupported or unexpected bit depth.
	ErrBitDepth = errors.New("twostop: unsupported bit depth")
)
