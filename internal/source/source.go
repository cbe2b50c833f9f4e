// Package source acquires 16-bit pixel buffers for the two-stop pipeline.
//
// Providers stand in for the external RAW developer: they hand over an
// already demosaiced, white-balanced, colour-converted RGB buffer. Camera
// RAW parsing and colour management are out of scope.
package source

import (
	"context"
	"fmt"
	"math"

	"github.com/disintegration/imaging"

	imgconv "github.com/ironsheep/twostop/internal/imaging"
	"github.com/ironsheep/twostop/internal/rawio"
	"github.com/ironsheep/twostop/internal/twostop"
)

// Provider supplies one source buffer per image path.
type Provider interface {
	Acquire(ctx context.Context, path string) (*twostop.PixelBuffer, error)
}

// DefaultExposureShift leaves samples unchanged.
const DefaultExposureShift = 1.0

// FileProvider decodes PNG, TIFF, JPEG and GIF files.
//
// 8-bit files are widened to 16 bits so every buffer it returns is a valid
// transform input.
type FileProvider struct {
	// ExposureShift is a linear gain applied to every sample. Zero means
	// DefaultExposureShift.
	ExposureShift float64
}

// Acquire decodes the file at path.
func (p FileProvider) Acquire(ctx context.Context, path string) (*twostop.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	buf := imgconv.FromImage(img)
	return ApplyExposureShift(buf, p.ExposureShift), nil
}

// RawProvider reads raw sample dumps written by an external developer
// (see package rawio).
type RawProvider struct {
	ExposureShift float64
}

// Acquire loads the dump at path. Only 16-bit dumps are accepted.
func (p RawProvider) Acquire(ctx context.Context, path string) (*twostop.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := rawio.Read(path)
	if err != nil {
		return nil, err
	}
	if buf.Depth != twostop.Depth16 {
		return nil, fmt.Errorf("%s: %w: dump is %s, want %s", path, twostop.ErrBitDepth, buf.Depth, twostop.Depth16)
	}
	return ApplyExposureShift(buf, p.ExposureShift), nil
}

// Mux routes each path to RawProvider or FileProvider by extension.
type Mux struct {
	Raw  Provider
	File Provider
}

// NewMux builds a Mux whose providers share one exposure shift.
func NewMux(exposureShift float64) *Mux {
	return &Mux{
		Raw:  RawProvider{ExposureShift: exposureShift},
		File: FileProvider{ExposureShift: exposureShift},
	}
}

// Acquire dispatches to the provider matching path.
func (m *Mux) Acquire(ctx context.Context, path string) (*twostop.PixelBuffer, error) {
	if rawio.IsDump(path) {
		return m.Raw.Acquire(ctx, path)
	}
	return m.File.Acquire(ctx, path)
}

// ApplyExposureShift multiplies every 16-bit sample by shift, clamping at
// 0 and 65535 and truncating fractions. A shift of 0 or 1 returns buf unchanged;
// otherwise a new buffer is returned.
//
// The shift is linear, matching the exposure-shift parameter of common RAW
// developers. There is no conversion from photographic stops.
func ApplyExposureShift(buf *twostop.PixelBuffer, shift float64) *twostop.PixelBuffer {
	if shift == 0 || shift == DefaultExposureShift || buf.Depth != twostop.Depth16 {
		return buf
	}
	out := &twostop.PixelBuffer{
		Width:    buf.Width,
		Height:   buf.Height,
		Channels: buf.Channels,
		Depth:    buf.Depth,
		Pix:      make([]uint16, len(buf.Pix)),
	}
	for i, v := range buf.Pix {
		out.Pix[i] = uint16(math.Max(0, math.Min(float64(v)*shift, math.MaxUint16)))
	}
	return out
}
