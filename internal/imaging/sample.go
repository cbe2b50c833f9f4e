package imaging

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/twostop/internal/twostop"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// HSLColor represents a color in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// ColorResult contains an 8-bit color in several representations.
type ColorResult struct {
	Hex string   `json:"hex"` // "#RRGGBB"
	RGB RGBColor `json:"rgb"`
	HSL HSLColor `json:"hsl"`
}

// SourceSample is one 16-bit pixel of a 2×2 source block.
type SourceSample struct {
	X   int       `json:"x"`
	Y   int       `json:"y"`
	RGB [3]uint16 `json:"rgb"`
}

// BlockSample explains a single two-stop output pixel.
type BlockSample struct {
	Label string `json:"label,omitempty"`

	// X and Y are output coordinates.
	X int `json:"x"`
	Y int `json:"y"`

	// Block holds the four source pixels in row-major order.
	Block [4]SourceSample `json:"block"`

	// Sum is the per-channel sum over the block before scaling.
	Sum [3]uint32 `json:"sum"`

	// Clamped reports channels whose sum reached 256×256, the point where
	// the clamp to 255 changes the output.
	Clamped [3]bool `json:"clamped"`

	Output ColorResult `json:"output"`
}

// LabeledPoint represents an output coordinate with an optional label.
type LabeledPoint struct {
	X     int
	Y     int
	Label string
}

// SampleBlock reports the source block behind output pixel (x, y) of the
// two-stop rendition of src, and the value the transform produces for it.
//
// The output value is computed by running the transform on the block
// itself, so it always agrees with a full-image run.
func SampleBlock(src *twostop.PixelBuffer, x, y int) (*BlockSample, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	outW, outH := src.Width/2, src.Height/2
	if x < 0 || x >= outW || y < 0 || y >= outH {
		return nil, fmt.Errorf("output coordinates (%d,%d) outside %dx%d two-stop image", x, y, outW, outH)
	}

	block := twostop.NewPixelBuffer(2, 2, src.Depth)
	res := &BlockSample{X: x, Y: y}
	for i := 0; i < 4; i++ {
		sx, sy := 2*x+i%2, 2*y+i/2
		p := src.PixelAt(sx, sy)
		block.SetPixel(i%2, i/2, p)
		res.Block[i] = SourceSample{X: sx, Y: sy, RGB: p}
		for c := 0; c < twostop.Channels; c++ {
			res.Sum[c] += uint32(p[c])
		}
	}

	out, err := twostop.Transform(block)
	if err != nil {
		return nil, err
	}
	p := out.PixelAt(0, 0)
	for c := 0; c < twostop.Channels; c++ {
		res.Clamped[c] = res.Sum[c] > 255*256+255
	}
	res.Output = colorResult(uint8(p[0]), uint8(p[1]), uint8(p[2]))
	return res, nil
}

// SampleBlocks samples several output pixels. On error no partial results
// are returned.
func SampleBlocks(src *twostop.PixelBuffer, points []LabeledPoint) ([]BlockSample, error) {
	results := make([]BlockSample, 0, len(points))
	for _, pt := range points {
		s, err := SampleBlock(src, pt.X, pt.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to sample point (%d,%d): %w", pt.X, pt.Y, err)
		}
		s.Label = pt.Label
		results = append(results, *s)
	}
	return results, nil
}

func colorResult(r, g, b uint8) ColorResult {
	h, s, l := colorful.Color{
		R: float64(r) / 255,
		G: float64(g) / 255,
		B: float64(b) / 255,
	}.Hsl()
	return ColorResult{
		Hex: fmt.Sprintf("#%02X%02X%02X", r, g, b),
		RGB: RGBColor{R: r, G: g, B: b},
		HSL: HSLColor{H: int(h + 0.5), S: int(s*100 + 0.5), L: int(l*100 + 0.5)},
	}
}
