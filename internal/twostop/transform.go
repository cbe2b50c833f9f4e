package twostop

import (
	"fmt"
	"sync"
)

// blockDivisor averages four samples (÷4) and rescales 16-bit to 8-bit (÷64)
// in a single truncating division.
const blockDivisor = 256

// Transform applies the two-stop downsample-average to a 16-bit source.
//
// The output is an 8-bit, 3-channel buffer of floor(Width/2) × floor(Height/2)
// pixels. Each output channel is the sum of the matching channel over a 2×2
// source block, divided by 256 with truncation and clamped to 255. Trailing
// odd rows and columns are ignored.
//
// # Errors
//
//   - ErrChannelCount if the source does not have exactly 3 channels
//   - ErrBitDepth if the source is not 16-bit
//   - ErrMalformed if the sample slice does not match the dimensions
//
// A source smaller than 2×2 is not an error; the result has a zero dimension.
func Transform(src *PixelBuffer) (*PixelBuffer, error) {
	out, err := prepare(src)
	if err != nil {
		return nil, err
	}
	transformRows(src, out, 0, out.Height)
	return out, nil
}

// TransformParallel is Transform with output rows split across workers
// goroutines. The result is identical to Transform for any worker count.
func TransformParallel(src *PixelBuffer, workers int) (*PixelBuffer, error) {
	if workers <= 1 {
		return Transform(src)
	}
	out, err := prepare(src)
	if err != nil {
		return nil, err
	}
	if workers > out.Height {
		workers = out.Height
	}
	if workers <= 1 {
		transformRows(src, out, 0, out.Height)
		return out, nil
	}

	chunk := (out.Height + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < out.Height; y0 += chunk {
		y1 := min(y0+chunk, out.Height)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			transformRows(src, out, y0, y1)
		}(y0, y1)
	}
	wg.Wait()
	return out, nil
}

func prepare(src *PixelBuffer) (*PixelBuffer, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	if src.Depth != Depth16 {
		return nil, fmt.Errorf("transform: %w: source is %s, want %s", ErrBitDepth, src.Depth, Depth16)
	}
	return NewPixelBuffer(src.Width/2, src.Height/2, Depth8), nil
}

// transformRows fills output rows [y0, y1). Rows never overlap between
// callers, so concurrent calls on disjoint ranges are safe.
func transformRows(src, out *PixelBuffer, y0, y1 int) {
	stride := src.Width * Channels
	for y := y0; y < y1; y++ {
		top := 2 * y * stride
		bottom := top + stride
		dst := y * out.Width * Channels

		for x := 0; x < out.Width; x++ {
			left := 2 * x * Channels
			right := left + Channels

			for c := 0; c < Channels; c++ {
				sum := uint32(src.Pix[top+left+c]) +
					uint32(src.Pix[top+right+c]) +
					uint32(src.Pix[bottom+left+c]) +
					uint32(src.Pix[bottom+right+c])

				v := sum / blockDivisor
				if v > 255 {
					v = 255
				}
				out.Pix[dst+c] = uint16(v)
			}
			dst += Channels
		}
	}
}

// Narrow converts a buffer to 8 bits per channel without resampling by
// keeping the high byte of each 16-bit sample. It is the preview path that
// bypasses the two-stop transform. An 8-bit buffer is returned as a copy.
func Narrow(src *PixelBuffer) (*PixelBuffer, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("narrow: %w", err)
	}
	out := NewPixelBuffer(src.Width, src.Height, Depth8)
	if src.Depth == Depth8 {
		copy(out.Pix, src.Pix)
		return out, nil
	}
	for i, v := range src.Pix {
		out.Pix[i] = v >> 8
	}
	return out, nil
}
