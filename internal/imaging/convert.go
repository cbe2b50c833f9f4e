package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/ironsheep/twostop/internal/twostop"
)

// FromImage converts any decoded image into a 16-bit, 3-channel buffer.
//
// The buffer origin is the image's Bounds().Min. Alpha is dropped.
func FromImage(img image.Image) *twostop.PixelBuffer {
	b := img.Bounds()
	buf := twostop.NewPixelBuffer(b.Dx(), b.Dy(), twostop.Depth16)

	switch src := img.(type) {
	case *image.NRGBA64:
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				c := src.NRGBA64At(b.Min.X+x, b.Min.Y+y)
				buf.SetPixel(x, y, twostop.Pixel{c.R, c.G, c.B})
			}
		}
	case *image.RGBA64:
		if !src.Opaque() {
			fromGeneric(img, buf)
			break
		}
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				c := src.RGBA64At(b.Min.X+x, b.Min.Y+y)
				buf.SetPixel(x, y, twostop.Pixel{c.R, c.G, c.B})
			}
		}
	default:
		fromGeneric(img, buf)
	}
	return buf
}

func fromGeneric(img image.Image, buf *twostop.PixelBuffer) {
	b := img.Bounds()
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			buf.SetPixel(x, y, twostop.Pixel{c.R, c.G, c.B})
		}
	}
}

// ToImage converts an 8-bit buffer to an opaque *image.NRGBA.
func ToImage(buf *twostop.PixelBuffer) (*image.NRGBA, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.Depth != twostop.Depth8 {
		return nil, fmt.Errorf("%w: ToImage needs an 8-bit buffer, got %s", twostop.ErrBitDepth, buf.Depth)
	}

	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			p := buf.PixelAt(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i+0] = uint8(p[0])
			img.Pix[i+1] = uint8(p[1])
			img.Pix[i+2] = uint8(p[2])
			img.Pix[i+3] = 0xFF
		}
	}
	return img, nil
}

// ToImage64 converts a 16-bit buffer to an opaque *image.NRGBA64.
func ToImage64(buf *twostop.PixelBuffer) (*image.NRGBA64, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.Depth != twostop.Depth16 {
		return nil, fmt.Errorf("%w: ToImage64 needs a 16-bit buffer, got %s", twostop.ErrBitDepth, buf.Depth)
	}

	img := image.NewNRGBA64(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			p := buf.PixelAt(x, y)
			img.SetNRGBA64(x, y, color.NRGBA64{R: p[0], G: p[1], B: p[2], A: 0xFFFF})
		}
	}
	return img, nil
}

// ToAnyImage converts a buffer of either depth to a standard image.
func ToAnyImage(buf *twostop.PixelBuffer) (image.Image, error) {
	if buf != nil && buf.Depth == twostop.Depth16 {
		return ToImage64(buf)
	}
	return ToImage(buf)
}

// EncodePNGBase64 encodes img as PNG and returns it base64 encoded.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
