// Package sink hands two-stop results to storage.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	imgconv "github.com/ironsheep/twostop/internal/imaging"
	"github.com/ironsheep/twostop/internal/rawio"
	"github.com/ironsheep/twostop/internal/twostop"
)

// Sink receives a finished buffer. name is the source path the buffer was
// produced from; the returned string is where the result ended up.
type Sink interface {
	Deliver(ctx context.Context, name string, buf *twostop.PixelBuffer) (string, error)
}

// Locator is implemented by sinks that can tell where a result will land
// before it is written.
type Locator interface {
	OutputPath(name string, depth twostop.BitDepth) (string, error)
}

// ErrEmptyImage is returned when an image format cannot hold a buffer with
// a zero dimension.
var ErrEmptyImage = errors.New("sink: cannot encode an empty image")

// Defaults for FileSink.
const (
	DefaultFormat  = "png"
	DefaultQuality = 95
	DefaultSuffix  = "_twostop"
)

var formatExt = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"jpg":  ".jpg",
	"tiff": ".tiff",
	"tif":  ".tiff",
	"bmp":  ".bmp",
	"gif":  ".gif",
}

// ValidFormat reports whether FileSink can write format.
func ValidFormat(format string) bool {
	f := strings.ToLower(format)
	if f == "raw" || f == "raw.zst" {
		return true
	}
	_, ok := formatExt[f]
	return ok
}

// FileSink writes each result next to Dir as <base><Suffix><ext>.
type FileSink struct {
	Dir     string // output directory, created if missing; "" means "."
	Format  string // png, jpeg, tiff, bmp, gif, raw or raw.zst
	Quality int    // JPEG quality (1-100)
	Suffix  string
}

// OutputPath returns the file a result for source name will be written to.
// Only the base name of the source is kept, so sources with the same base
// name in different directories map to the same file.
func (s FileSink) OutputPath(name string, depth twostop.BitDepth) (string, error) {
	format := strings.ToLower(s.Format)
	if format == "" {
		format = DefaultFormat
	}

	var ext string
	switch format {
	case "raw", "raw.zst":
		ext = fmt.Sprintf(".rgb%d", int(depth))
		if format == "raw.zst" {
			ext += ".zst"
		}
	default:
		e, ok := formatExt[format]
		if !ok {
			return "", fmt.Errorf("unsupported output format %q", s.Format)
		}
		ext = e
	}

	base := filepath.Base(name)
	base = strings.TrimSuffix(base, ".zst")
	base = strings.TrimSuffix(base, filepath.Ext(base))

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, base+s.Suffix+ext), nil
}

// Deliver encodes buf and writes it to OutputPath(name).
func (s FileSink) Deliver(ctx context.Context, name string, buf *twostop.PixelBuffer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := buf.Validate(); err != nil {
		return "", err
	}
	path, err := s.OutputPath(name, buf.Depth)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	if rawio.IsDump(path) {
		if err := rawio.Write(path, buf); err != nil {
			return "", err
		}
		return path, nil
	}

	if buf.Width == 0 || buf.Height == 0 {
		return "", fmt.Errorf("%w: %dx%d", ErrEmptyImage, buf.Width, buf.Height)
	}
	img, err := imgconv.ToAnyImage(buf)
	if err != nil {
		return "", err
	}

	quality := s.Quality
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// MemorySink keeps delivered buffers in memory, keyed by source name.
// It is safe for concurrent use.
type MemorySink struct {
	mu      sync.Mutex
	results map[string]*twostop.PixelBuffer
	order   []string
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{results: make(map[string]*twostop.PixelBuffer)}
}

// Deliver stores buf under name.
func (m *MemorySink) Deliver(ctx context.Context, name string, buf *twostop.PixelBuffer) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[name]; !ok {
		m.order = append(m.order, name)
	}
	m.results[name] = buf
	return "mem://" + name, nil
}

// Get returns the buffer delivered for name.
func (m *MemorySink) Get(name string) (*twostop.PixelBuffer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, ok := m.results[name]
	return buf, ok
}

// Names returns delivered names in first-delivery order.
func (m *MemorySink) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}
