package source

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/twostop/internal/rawio"
	"github.com/ironsheep/twostop/internal/twostop"
)

func writeGradientPNG(t *testing.T, dir string, width, height int) string {
	t.Helper()
	img := image.NewNRGBA64(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA64(x, y, color.NRGBA64{R: uint16(x * 100), G: uint16(y * 100), B: 40000, A: 0xFFFF})
		}
	}
	path := filepath.Join(dir, "gradient.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	return path
}

func TestFileProvider_Acquire(t *testing.T) {
	path := writeGradientPNG(t, t.TempDir(), 6, 4)

	buf, err := FileProvider{}.Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if buf.Width != 6 || buf.Height != 4 || buf.Depth != twostop.Depth16 {
		t.Fatalf("unexpected shape: %dx%d %v", buf.Width, buf.Height, buf.Depth)
	}
	if got := buf.PixelAt(5, 3); got != (twostop.Pixel{500, 300, 40000}) {
		t.Errorf("PixelAt(5,3): got %v", got)
	}
}

func TestFileProvider_ExposureShift(t *testing.T) {
	path := writeGradientPNG(t, t.TempDir(), 6, 4)

	buf, err := FileProvider{ExposureShift: 2}.Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got := buf.PixelAt(5, 3); got != (twostop.Pixel{1000, 600, 65535}) {
		t.Errorf("PixelAt(5,3): got %v, want [1000 600 65535]", got)
	}
}

func TestFileProvider_Errors(t *testing.T) {
	if _, err := (FileProvider{}).Acquire(context.Background(), "/nonexistent.png"); err == nil {
		t.Error("expected error for missing file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (FileProvider{}).Acquire(ctx, "/whatever.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled context: got %v", err)
	}
}

func TestRawProvider_Acquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.rgb16.zst")
	want := twostop.NewPixelBuffer(4, 2, twostop.Depth16)
	want.SetPixel(3, 1, twostop.Pixel{1, 2, 65535})
	if err := rawio.Write(path, want); err != nil {
		t.Fatalf("rawio.Write failed: %v", err)
	}

	got, err := RawProvider{}.Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !got.Equal(want) {
		t.Error("acquired buffer differs from written buffer")
	}
}

func TestRawProvider_RejectsEightBit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.rgb8")
	if err := rawio.Write(path, twostop.NewPixelBuffer(2, 2, twostop.Depth8)); err != nil {
		t.Fatalf("rawio.Write failed: %v", err)
	}
	if _, err := (RawProvider{}).Acquire(context.Background(), path); !errors.Is(err, twostop.ErrBitDepth) {
		t.Errorf("got %v, want ErrBitDepth", err)
	}
}

func TestMux_Dispatch(t *testing.T) {
	dir := t.TempDir()
	pngPath := writeGradientPNG(t, dir, 2, 2)
	rawPath := filepath.Join(dir, "shot.rgb16")
	if err := rawio.Write(rawPath, twostop.NewPixelBuffer(8, 8, twostop.Depth16)); err != nil {
		t.Fatal(err)
	}

	m := NewMux(0)
	buf, err := m.Acquire(context.Background(), pngPath)
	if err != nil || buf.Width != 2 {
		t.Errorf("png: got %v, %v", buf, err)
	}
	buf, err = m.Acquire(context.Background(), rawPath)
	if err != nil || buf.Width != 8 {
		t.Errorf("raw: got %v, %v", buf, err)
	}
}

func TestApplyExposureShift(t *testing.T) {
	buf := twostop.NewPixelBuffer(1, 1, twostop.Depth16)
	buf.SetPixel(0, 0, twostop.Pixel{100, 30000, 50000})

	if got := ApplyExposureShift(buf, 1.0); got != buf {
		t.Error("shift 1.0 should return the input unchanged")
	}
	if got := ApplyExposureShift(buf, 0); got != buf {
		t.Error("shift 0 should return the input unchanged")
	}

	half := ApplyExposureShift(buf, 0.5)
	if got := half.PixelAt(0, 0); got != (twostop.Pixel{50, 15000, 25000}) {
		t.Errorf("shift 0.5: got %v", got)
	}
	double := ApplyExposureShift(buf, 2.5)
	if got := double.PixelAt(0, 0); got != (twostop.Pixel{250, 65535, 65535}) {
		t.Errorf("shift 2.5: got %v", got)
	}
	if buf.PixelAt(0, 0) != (twostop.Pixel{100, 30000, 50000}) {
		t.Error("ApplyExposureShift modified its input")
	}
}
