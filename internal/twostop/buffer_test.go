package twostop

import (
	"errors"
	"math"
	"testing"
)

func TestNewPixelBuffer(t *testing.T) {
	b := NewPixelBuffer(4, 3, Depth16)
	if b.Channels != Channels {
		t.Errorf("Channels: got %d, want %d", b.Channels, Channels)
	}
	if len(b.Pix) != 4*3*3 {
		t.Errorf("len(Pix): got %d, want 36", len(b.Pix))
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	neg := NewPixelBuffer(-1, 5, Depth8)
	if neg.Width != 0 || len(neg.Pix) != 0 {
		t.Errorf("negative width not clamped: %dx%d", neg.Width, neg.Height)
	}
}

func TestBitDepth(t *testing.T) {
	if Depth8.Max() != 255 || Depth16.Max() != 65535 {
		t.Errorf("Max: got %d/%d", Depth8.Max(), Depth16.Max())
	}
	if !Depth8.Valid() || !Depth16.Valid() || BitDepth(10).Valid() {
		t.Error("Valid returned unexpected result")
	}
	if Depth16.String() != "16-bit" {
		t.Errorf("String: got %q", Depth16.String())
	}
}

func TestPixelBuffer_SetAndGet(t *testing.T) {
	b := NewPixelBuffer(3, 2, Depth16)
	b.SetPixel(2, 1, Pixel{1, 2, 3})
	if got := b.PixelAt(2, 1); got != (Pixel{1, 2, 3}) {
		t.Errorf("PixelAt: got %v", got)
	}
	// Last pixel in row-major interleaved order.
	if b.Pix[len(b.Pix)-3] != 1 || b.Pix[len(b.Pix)-1] != 3 {
		t.Errorf("unexpected layout: %v", b.Pix)
	}
}

func TestPixelBuffer_Crop(t *testing.T) {
	b := NewPixelBuffer(3, 3, Depth16)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			v := uint16(y*10 + x)
			b.SetPixel(x, y, Pixel{v, v, v})
		}
	}

	c := b.Crop(2, 2)
	if c.Width != 2 || c.Height != 2 {
		t.Fatalf("dimensions: got %dx%d", c.Width, c.Height)
	}
	if got := c.PixelAt(1, 1); got[0] != 11 {
		t.Errorf("PixelAt(1,1): got %v, want 11", got)
	}

	big := b.Crop(10, 10)
	if big.Width != 3 || big.Height != 3 {
		t.Errorf("oversized crop: got %dx%d, want 3x3", big.Width, big.Height)
	}
}

func TestPixelBuffer_Validate(t *testing.T) {
	b := &PixelBuffer{Width: 1, Height: 1, Channels: 2, Depth: Depth8, Pix: make([]uint16, 2)}
	if err := b.Validate(); !errors.Is(err, ErrChannelCount) {
		t.Errorf("got %v, want ErrChannelCount", err)
	}
}

func TestSampleCount(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          int
		ok            bool
	}{
		{"regular", 6000, 4000, 72_000_000, true},
		{"empty", 0, 1 << 62, 0, true},
		{"wraps to zero", 1 << 62, 4, 0, false},
		{"just too big", math.MaxInt / 3, 2, 0, false},
		{"negative", -1, 4, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SampleCount(tt.width, tt.height, Channels)
			if got != tt.want || ok != tt.ok {
				t.Errorf("got (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPixelBuffer_Equal(t *testing.T) {
	a := NewPixelBuffer(2, 2, Depth8)
	b := NewPixelBuffer(2, 2, Depth8)
	if !a.Equal(b) {
		t.Error("zero buffers should be equal")
	}
	b.Pix[5] = 1
	if a.Equal(b) {
		t.Error("buffers with different samples reported equal")
	}
	if a.Equal(NewPixelBuffer(2, 2, Depth16)) {
		t.Error("buffers with different depth reported equal")
	}
	var n *PixelBuffer
	if a.Equal(n) || !n.Equal(nil) {
		t.Error("nil handling incorrect")
	}
}
