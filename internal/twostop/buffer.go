package twostop

import (
	"fmt"
	"math"
)

// BitDepth is the number of bits per channel sample.
type BitDepth int

const (
	Depth8  BitDepth = 8
	Depth16 BitDepth = 16
)

// Channels is the number of samples per pixel (R, G, B).
const Channels = 3

// Valid reports whether d is a supported depth.
func (d BitDepth) Valid() bool {
	return d == Depth8 || d == Depth16
}

// Max returns the largest sample value representable at depth d.
func (d BitDepth) Max() uint16 {
	if d == Depth16 {
		return 0xFFFF
	}
	return 0xFF
}

func (d BitDepth) String() string {
	return fmt.Sprintf("%d-bit", int(d))
}

// Pixel is one RGB sample triple.
type Pixel [Channels]uint16

// PixelBuffer is a row-major image with interleaved channel samples.
//
// Sample c of the pixel at (x, y) is stored at Pix[(y*Width+x)*Channels+c].
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Depth    BitDepth
	Pix      []uint16
}

// NewPixelBuffer allocates a zeroed 3-channel buffer of the given size.
// Negative dimensions are treated as zero.
func NewPixelBuffer(width, height int, depth BitDepth) *PixelBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &PixelBuffer{
		Width:    width,
		Height:   height,
		Channels: Channels,
		Depth:    depth,
		Pix:      make([]uint16, width*height*Channels),
	}
}

// Validate checks the structural invariants of the buffer.
//
// It does not check sample ranges: the transform clamps its output, so
// out-of-range input samples cannot produce out-of-range output.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrMalformed)
	}
	if b.Channels != Channels {
		return fmt.Errorf("%w: got %d", ErrChannelCount, b.Channels)
	}
	if !b.Depth.Valid() {
		return fmt.Errorf("%w: %d", ErrBitDepth, int(b.Depth))
	}
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrMalformed, b.Width, b.Height)
	}
	if !fits(b.Width, b.Height, b.Channels) {
		return fmt.Errorf("%w: %dx%d overflows the sample count", ErrMalformed, b.Width, b.Height)
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pix) != want {
		return fmt.Errorf("%w: %dx%d needs %d samples, have %d",
			ErrMalformed, b.Width, b.Height, want, len(b.Pix))
	}
	return nil
}

// SampleCount returns width*height*channels and whether the product fits in
// an int. Negative inputs never fit.
func SampleCount(width, height, channels int) (int, bool) {
	if !fits(width, height, channels) {
		return 0, false
	}
	return width * height * channels, true
}

func fits(width, height, channels int) bool {
	if width < 0 || height < 0 || channels < 0 {
		return false
	}
	if width == 0 || height == 0 || channels == 0 {
		return true
	}
	return height <= math.MaxInt/width/channels
}

func (b *PixelBuffer) offset(x, y int) int {
	return (y*b.Width + x) * b.Channels
}

// PixelAt returns the pixel at (x, y). The caller must stay within bounds.
func (b *PixelBuffer) PixelAt(x, y int) Pixel {
	i := b.offset(x, y)
	return Pixel{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

// SetPixel stores p at (x, y). The caller must stay within bounds.
func (b *PixelBuffer) SetPixel(x, y int, p Pixel) {
	i := b.offset(x, y)
	b.Pix[i] = p[0]
	b.Pix[i+1] = p[1]
	b.Pix[i+2] = p[2]
}

// Crop returns a copy of the top-left width×height region of b.
// The region is limited to the bounds of b.
func (b *PixelBuffer) Crop(width, height int) *PixelBuffer {
	width = min(max(width, 0), b.Width)
	height = min(max(height, 0), b.Height)

	out := &PixelBuffer{
		Width:    width,
		Height:   height,
		Channels: b.Channels,
		Depth:    b.Depth,
		Pix:      make([]uint16, width*height*b.Channels),
	}
	rowLen := width * b.Channels
	for y := 0; y < height; y++ {
		src := b.offset(0, y)
		copy(out.Pix[y*rowLen:(y+1)*rowLen], b.Pix[src:src+rowLen])
	}
	return out
}

// Equal reports whether two buffers have identical shape and samples.
func (b *PixelBuffer) Equal(o *PixelBuffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Width != o.Width || b.Height != o.Height || b.Channels != o.Channels || b.Depth != o.Depth {
		return false
	}
	if len(b.Pix) != len(o.Pix) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}
