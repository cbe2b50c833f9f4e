// Package twostop implements the two-stop downsample-average transform.
//
// The transform combines every 2×2 block of a 16-bit source image into a single
// 8-bit output pixel. Summing four 16-bit samples and dividing by 256 both
// averages the block (÷4) and rescales it to the 8-bit range (÷64), trading
// spatial resolution for reduced noise and a brighter, fuller tonal range.
//
// # Buffers
//
// PixelBuffer is a plain row-major pixel grid with interleaved channel
// samples. Samples are stored as uint16 for both bit depths; the Depth field
// declares which range is valid (0-255 or 0-65535).
//
// # Dimensions
//
// Output dimensions use floor division. When the source width or height is
// odd, the trailing column or row is never read. A source narrower or shorter
// than two pixels produces an empty output buffer rather than an error.
//
// # Thread Safety
//
// Transform is a pure function: it never mutates its input and allocates a
// fresh output buffer. TransformParallel splits output rows across goroutines
// and produces results identical to Transform.
package twostop
