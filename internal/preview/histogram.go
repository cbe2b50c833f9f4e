package preview

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/histogram"

	imgconv "github.com/ironsheep/twostop/internal/imaging"
	"github.com/ironsheep/twostop/internal/twostop"
)

// ChannelStats summarises one channel of an 8-bit histogram.
type ChannelStats struct {
	Bins    []int   `json:"bins,omitempty"`
	Low     int     `json:"low"`  // lowest populated level
	High    int     `json:"high"` // highest populated level
	Peak    int     `json:"peak"` // largest bin count
	Mean    float64 `json:"mean"`
	Clipped float64 `json:"clipped_percent"` // share of pixels at 255
	Crushed float64 `json:"crushed_percent"` // share of pixels at 0
}

// HistogramResult holds per-channel statistics of an image.
type HistogramResult struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Red    ChannelStats `json:"red"`
	Green  ChannelStats `json:"green"`
	Blue   ChannelStats `json:"blue"`
}

// Histogram computes 256-bin channel histograms. 16-bit buffers are
// narrowed first. When withBins is false the raw bin counts are omitted.
func Histogram(buf *twostop.PixelBuffer, withBins bool) (*HistogramResult, error) {
	img, err := eightBitImage(buf)
	if err != nil {
		return nil, err
	}
	if buf.Width == 0 || buf.Height == 0 {
		return nil, fmt.Errorf("histogram of an empty %dx%d image", buf.Width, buf.Height)
	}

	h := histogram.NewRGBAHistogram(img)
	total := buf.Width * buf.Height
	return &HistogramResult{
		Width:  buf.Width,
		Height: buf.Height,
		Red:    channelStats(&h.R, total, withBins),
		Green:  channelStats(&h.G, total, withBins),
		Blue:   channelStats(&h.B, total, withBins),
	}, nil
}

// HistogramImage renders the RGB histogram as an image.
func HistogramImage(buf *twostop.PixelBuffer) (*image.RGBA, error) {
	img, err := eightBitImage(buf)
	if err != nil {
		return nil, err
	}
	return histogram.NewRGBAHistogram(img).Image(), nil
}

func channelStats(h *histogram.Histogram, total int, withBins bool) ChannelStats {
	s := ChannelStats{Low: -1, High: -1, Peak: h.Max()}
	var sum float64
	for level, n := range h.Bins {
		if n == 0 {
			continue
		}
		if s.Low < 0 {
			s.Low = level
		}
		s.High = level
		sum += float64(level * n)
	}
	if total > 0 {
		s.Mean = sum / float64(total)
		s.Clipped = percent(h.Bins[len(h.Bins)-1], total)
		s.Crushed = percent(h.Bins[0], total)
	}
	if withBins {
		s.Bins = append([]int(nil), h.Bins...)
	}
	return s
}

func percent(n, total int) float64 {
	return float64(n) / float64(total) * 100
}

// eightBitImage returns an 8-bit image of buf, narrowing 16-bit input.
func eightBitImage(buf *twostop.PixelBuffer) (*image.NRGBA, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if buf.Depth == twostop.Depth16 {
		narrowed, err := twostop.Narrow(buf)
		if err != nil {
			return nil, err
		}
		buf = narrowed
	}
	return imgconv.ToImage(buf)
}
