// Package rawio reads and writes headerless pixel dumps with a JSON sidecar.
//
// A dump is the interleaved, row-major sample stream of a twostop.PixelBuffer:
// one byte per sample for 8-bit buffers, two big-endian bytes per sample for
// 16-bit buffers. Dimensions live in a sidecar next to the dump:
//
//	shot.rgb16       samples
//	shot.json        {"width":6000,"height":4000,"channels":3,"bit_depth":16}
//
// A ".zst" suffix on the dump path selects zstd compression.
package rawio

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/ironsheep/twostop/internal/twostop"
)

// Meta is the sidecar describing a dump.
type Meta struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	BitDepth int    `json:"bit_depth"`
	Format   string `json:"format,omitempty"`
}

// Extensions recognised as dumps, with or without a trailing ".zst".
var Extensions = []string{".rgb16", ".rgb8"}

// IsDump reports whether path names a raw dump.
func IsDump(path string) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(strings.ToLower(path), ".zst")))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func compressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".zst")
}

// SidecarPath returns the JSON sidecar path for a dump path.
func SidecarPath(path string) string {
	base := path
	if compressed(base) {
		base = base[:len(base)-len(".zst")]
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

// ReadMeta loads and decodes a sidecar file.
func ReadMeta(path string) (Meta, error) {
	var m Meta
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("reading sidecar: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing sidecar %s: %w", path, err)
	}
	return m, nil
}

// Read loads a dump and its sidecar.
func Read(path string) (*twostop.PixelBuffer, error) {
	meta, err := ReadMeta(SidecarPath(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()

	size, err := meta.ByteLen()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if !compressed(path) {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat dump: %w", err)
		}
		if info.Size() != int64(size) {
			return nil, fmt.Errorf("decoding %s: %w: dump is %d bytes, sidecar declares %d",
				path, twostop.ErrMalformed, info.Size(), size)
		}
	}

	var r io.Reader = bufio.NewReader(f)
	if compressed(path) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	buf, err := Decode(r, meta)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return buf, nil
}

// ByteLen checks the shape declared by m and returns the size of its sample
// stream in bytes. A sidecar that declares anything other than three
// channels fails with twostop.ErrChannelCount.
func (m Meta) ByteLen() (int, error) {
	if m.Channels != twostop.Channels {
		return 0, fmt.Errorf("%w: got %d", twostop.ErrChannelCount, m.Channels)
	}
	depth := twostop.BitDepth(m.BitDepth)
	if !depth.Valid() {
		return 0, fmt.Errorf("%w: %d", twostop.ErrBitDepth, m.BitDepth)
	}
	n, ok := twostop.SampleCount(m.Width, m.Height, m.Channels)
	if !ok {
		return 0, fmt.Errorf("%w: bad dimensions %dx%d", twostop.ErrMalformed, m.Width, m.Height)
	}
	bytesPer := bytesPerSample(depth)
	if n > math.MaxInt/bytesPer {
		return 0, fmt.Errorf("%w: %dx%d is too large", twostop.ErrMalformed, m.Width, m.Height)
	}
	return n * bytesPer, nil
}

func bytesPerSample(d twostop.BitDepth) int {
	if d == twostop.Depth16 {
		return 2
	}
	return 1
}

// Decode reads exactly the samples described by meta from r.
//
// The sidecar shape is checked before anything is read, and memory grows
// with the data actually present, so a sidecar that overstates the image
// size fails with twostop.ErrMalformed instead of reserving it up front.
func Decode(r io.Reader, meta Meta) (*twostop.PixelBuffer, error) {
	size, err := meta.ByteLen()
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("%w: reading samples: %v", twostop.ErrMalformed, err)
	}
	if len(raw) != size {
		return nil, fmt.Errorf("%w: short sample data: have %d bytes, want %d",
			twostop.ErrMalformed, len(raw), size)
	}

	depth := twostop.BitDepth(meta.BitDepth)
	buf := &twostop.PixelBuffer{
		Width:    meta.Width,
		Height:   meta.Height,
		Channels: meta.Channels,
		Depth:    depth,
		Pix:      make([]uint16, size/bytesPerSample(depth)),
	}
	if depth == twostop.Depth16 {
		for i := range buf.Pix {
			buf.Pix[i] = binary.BigEndian.Uint16(raw[2*i:])
		}
	} else {
		for i, b := range raw {
			buf.Pix[i] = uint16(b)
		}
	}
	return buf, nil
}

// Encode writes the samples of buf to w.
func Encode(w io.Writer, buf *twostop.PixelBuffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	var raw []byte
	if buf.Depth == twostop.Depth16 {
		raw = make([]byte, 2*len(buf.Pix))
		for i, v := range buf.Pix {
			binary.BigEndian.PutUint16(raw[2*i:], v)
		}
	} else {
		raw = make([]byte, len(buf.Pix))
		for i, v := range buf.Pix {
			raw[i] = uint8(v)
		}
	}
	_, err := w.Write(raw)
	return err
}

// Write stores buf at path and writes its sidecar.
func Write(path string, buf *twostop.PixelBuffer) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating dump: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var enc *zstd.Encoder
	if compressed(path) {
		enc, err = zstd.NewWriter(bw)
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		w = enc
	}

	if err := Encode(w, buf); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("closing zstd stream: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	meta := Meta{
		Width:    buf.Width,
		Height:   buf.Height,
		Channels: buf.Channels,
		BitDepth: int(buf.Depth),
		Format:   fmt.Sprintf("RGB%d", int(buf.Depth)),
	}
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	if err := os.WriteFile(SidecarPath(path), metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing sidecar: %w", err)
	}
	return nil
}
