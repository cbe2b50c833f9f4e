package preview

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/twostop/internal/twostop"
)

// Fit scales buf down to fit within maxW×maxH, preserving aspect ratio.
// Images that already fit are returned at their original size.
func Fit(buf *twostop.PixelBuffer, maxW, maxH int) (*image.NRGBA, error) {
	img, err := eightBitImage(buf)
	if err != nil {
		return nil, err
	}
	if maxW <= 0 || maxH <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", maxW, maxH)
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos), nil
}

// CompareResult describes a before/after pair.
type CompareResult struct {
	// Composite shows before (left) and after (right) at the after size.
	Composite *image.NRGBA `json:"-"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// MeanDeltaE is the mean CIEDE2000 difference per pixel.
	MeanDeltaE float64 `json:"mean_delta_e"`

	// MeanLightnessBefore and MeanLightnessAfter are mean CIE L* (0-1).
	MeanLightnessBefore float64 `json:"mean_lightness_before"`
	MeanLightnessAfter  float64 `json:"mean_lightness_after"`

	// GainStops is log2 of the ratio of mean relative luminance after vs
	// before. It is 0 when the before image is black.
	GainStops float64 `json:"gain_stops"`
}

// compareGap separates the two halves of the composite.
const compareGap = 8

// Compare builds a side-by-side composite and colour statistics.
//
// before is resized to the dimensions of after with a box filter so the
// statistics compare the same scene area pixel for pixel.
func Compare(before, after *twostop.PixelBuffer) (*CompareResult, error) {
	b, err := eightBitImage(before)
	if err != nil {
		return nil, fmt.Errorf("before: %w", err)
	}
	a, err := eightBitImage(after)
	if err != nil {
		return nil, fmt.Errorf("after: %w", err)
	}
	w, h := after.Width, after.Height
	if w == 0 || h == 0 || before.Width == 0 || before.Height == 0 {
		return nil, fmt.Errorf("cannot compare empty images")
	}

	scaled := imaging.Resize(b, w, h, imaging.Box)

	composite := imaging.New(2*w+compareGap, h, color.Black)
	composite = imaging.Paste(composite, scaled, image.Pt(0, 0))
	composite = imaging.Paste(composite, a, image.Pt(w+compareGap, 0))

	var sumDE, sumLB, sumLA, sumYB, sumYA float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cb := toColorful(scaled.NRGBAAt(x, y))
			ca := toColorful(a.NRGBAAt(x, y))

			sumDE += cb.DistanceCIEDE2000(ca)

			lb, _, _ := cb.Lab()
			la, _, _ := ca.Lab()
			sumLB += lb
			sumLA += la

			_, yb, _ := cb.Xyz()
			_, ya, _ := ca.Xyz()
			sumYB += yb
			sumYA += ya
		}
	}

	n := float64(w * h)
	res := &CompareResult{
		Composite:           composite,
		Width:               composite.Bounds().Dx(),
		Height:              composite.Bounds().Dy(),
		MeanDeltaE:          sumDE / n,
		MeanLightnessBefore: sumLB / n,
		MeanLightnessAfter:  sumLA / n,
	}
	if sumYB > 0 && sumYA > 0 {
		res.GainStops = math.Log2(sumYA / sumYB)
	}
	return res, nil
}

func toColorful(c color.NRGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}
