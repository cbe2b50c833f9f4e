package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/ironsheep/twostop/internal/rawio"
	"github.com/ironsheep/twostop/internal/sink"
	"github.com/ironsheep/twostop/internal/source"
	"github.com/ironsheep/twostop/internal/telemetry"
	"github.com/ironsheep/twostop/internal/twostop"
)

// fakeProvider serves buffers from memory.
type fakeProvider struct {
	buffers map[string]*twostop.PixelBuffer
	calls   []string
}

func (f *fakeProvider) Acquire(ctx context.Context, path string) (*twostop.PixelBuffer, error) {
	f.calls = append(f.calls, path)
	buf, ok := f.buffers[path]
	if !ok {
		return nil, errors.New("no such image")
	}
	return buf, nil
}

type failingSink struct{ err error }

func (s failingSink) Deliver(context.Context, string, *twostop.PixelBuffer) (string, error) {
	return "", s.err
}

func uniform(width, height int, v uint16) *twostop.PixelBuffer {
	b := twostop.NewPixelBuffer(width, height, twostop.Depth16)
	for i := range b.Pix {
		b.Pix[i] = v
	}
	return b
}

func quietLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestRun_ProcessesAllImages(t *testing.T) {
	p := &fakeProvider{buffers: map[string]*twostop.PixelBuffer{
		"a.tiff": uniform(4, 4, 1024),
		"b.tiff": uniform(6, 2, 65535),
	}}
	mem := sink.NewMemorySink()
	metrics := telemetry.NewMetrics()
	d := New(p, mem, Options{Workers: 1}, quietLogger(), metrics)

	summary, err := d.Run(context.Background(), []string{"a.tiff", "b.tiff"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 0 {
		t.Errorf("summary: processed %d failed %d", summary.Processed, summary.Failed)
	}
	if summary.Err() != nil {
		t.Errorf("Err: got %v", summary.Err())
	}

	a, ok := mem.Get("a.tiff")
	if !ok {
		t.Fatal("a.tiff not delivered")
	}
	if a.Width != 2 || a.Height != 2 || a.PixelAt(1, 1) != (twostop.Pixel{16, 16, 16}) {
		t.Errorf("a.tiff result: %dx%d %v", a.Width, a.Height, a.PixelAt(1, 1))
	}
	b, _ := mem.Get("b.tiff")
	if b.Width != 3 || b.Height != 1 || b.PixelAt(2, 0) != (twostop.Pixel{255, 255, 255}) {
		t.Errorf("b.tiff result: %dx%d %v", b.Width, b.Height, b.PixelAt(2, 0))
	}

	out := summary.Outputs[0]
	if out.Source != "a.tiff" || out.Location != "mem://a.tiff" || out.SourceWidth != 4 || out.Width != 2 {
		t.Errorf("output record: %+v", out)
	}
	if got := testutil.ToFloat64(metrics.ImagesProcessed); got != 2 {
		t.Errorf("processed metric: got %v, want 2", got)
	}
}

func TestRun_StopsOnFirstError(t *testing.T) {
	p := &fakeProvider{buffers: map[string]*twostop.PixelBuffer{
		"good.png": uniform(2, 2, 0),
	}}
	d := New(p, sink.NewMemorySink(), Options{}, quietLogger(), nil)

	summary, err := d.Run(context.Background(), []string{"missing.png", "good.png"})
	if err == nil {
		t.Fatal("Run should fail")
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageProvider || se.Path != "missing.png" {
		t.Errorf("error: got %v", err)
	}
	if summary.Processed != 0 || summary.Failed != 1 {
		t.Errorf("summary: processed %d failed %d", summary.Processed, summary.Failed)
	}
	if len(p.calls) != 1 {
		t.Errorf("provider called %d times, want 1", len(p.calls))
	}
}

func TestRun_ContinueOnError(t *testing.T) {
	bad := &twostop.PixelBuffer{Width: 2, Height: 2, Channels: 4, Depth: twostop.Depth16, Pix: make([]uint16, 16)}
	p := &fakeProvider{buffers: map[string]*twostop.PixelBuffer{
		"bad.png":  bad,
		"good.png": uniform(2, 2, 512),
	}}
	metrics := telemetry.NewMetrics()
	d := New(p, sink.NewMemorySink(), Options{ContinueOnError: true}, quietLogger(), metrics)

	summary, err := d.Run(context.Background(), []string{"missing.png", "bad.png", "good.png"})
	if err != nil {
		t.Fatalf("Run returned error despite ContinueOnError: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 2 {
		t.Errorf("summary: processed %d failed %d", summary.Processed, summary.Failed)
	}
	if !errors.Is(summary.Err(), twostop.ErrChannelCount) {
		t.Errorf("Err should wrap ErrChannelCount: %v", summary.Err())
	}
	if got := testutil.ToFloat64(metrics.ImagesFailed.WithLabelValues(StageTransform)); got != 1 {
		t.Errorf("transform failures: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.ImagesFailed.WithLabelValues(StageProvider)); got != 1 {
		t.Errorf("provider failures: got %v, want 1", got)
	}
}

func TestRun_SinkFailure(t *testing.T) {
	p := &fakeProvider{buffers: map[string]*twostop.PixelBuffer{"a.png": uniform(2, 2, 0)}}
	sinkErr := errors.New("disk full")
	d := New(p, failingSink{err: sinkErr}, Options{}, quietLogger(), nil)

	_, err := d.Run(context.Background(), []string{"a.png"})
	if !errors.Is(err, sinkErr) {
		t.Errorf("got %v, want disk full", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageSink {
		t.Errorf("stage: got %v", err)
	}
}

func TestRun_TinySourceNotDelivered(t *testing.T) {
	p := &fakeProvider{buffers: map[string]*twostop.PixelBuffer{"line.png": uniform(1, 9, 100)}}
	mem := sink.NewMemorySink()
	d := New(p, mem, Options{}, quietLogger(), nil)

	summary, err := d.Run(context.Background(), []string{"line.png"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 1 {
		t.Errorf("processed: got %d, want 1", summary.Processed)
	}
	if out := summary.Outputs[0]; out.Location != "" || out.Width != 0 || out.Height != 4 {
		t.Errorf("output: %+v", out)
	}
	if len(mem.Names()) != 0 {
		t.Error("empty result should not reach the sink")
	}
}

func TestRun_Cancelled(t *testing.T) {
	p := &fakeProvider{buffers: map[string]*twostop.PixelBuffer{"a.png": uniform(2, 2, 0)}}
	d := New(p, sink.NewMemorySink(), Options{}, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Run(ctx, []string{"a.png"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if len(p.calls) != 0 {
		t.Error("provider called after cancellation")
	}
}

func TestRun_ParallelMatchesSerial(t *testing.T) {
	src := twostop.NewPixelBuffer(40, 30, twostop.Depth16)
	for i := range src.Pix {
		src.Pix[i] = uint16(i * 97)
	}
	p := &fakeProvider{buffers: map[string]*twostop.PixelBuffer{"x.png": src}}

	serial := sink.NewMemorySink()
	parallel := sink.NewMemorySink()
	if _, err := New(p, serial, Options{Workers: 1}, quietLogger(), nil).Run(context.Background(), []string{"x.png"}); err != nil {
		t.Fatal(err)
	}
	if _, err := New(p, parallel, Options{Workers: 4}, quietLogger(), nil).Run(context.Background(), []string{"x.png"}); err != nil {
		t.Fatal(err)
	}
	a, _ := serial.Get("x.png")
	b, _ := parallel.Get("x.png")
	if !a.Equal(b) {
		t.Error("parallel run differs from serial run")
	}
}

func TestRun_EndToEndFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "shot.rgb16.zst")
	if err := rawio.Write(in, uniform(8, 6, 2048)); err != nil {
		t.Fatalf("writing source: %v", err)
	}

	fs := sink.FileSink{Dir: filepath.Join(dir, "out"), Format: "raw", Suffix: sink.DefaultSuffix}
	d := New(source.NewMux(1.0), fs, Options{}, quietLogger(), nil)

	summary, err := d.Run(context.Background(), []string{in})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := filepath.Join(dir, "out", "shot_twostop.rgb8")
	if summary.Outputs[0].Location != want {
		t.Fatalf("location: got %s, want %s", summary.Outputs[0].Location, want)
	}

	got, err := rawio.Read(want)
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if got.Width != 4 || got.Height != 3 || got.PixelAt(0, 0) != (twostop.Pixel{32, 32, 32}) {
		t.Errorf("result: %dx%d %v", got.Width, got.Height, got.PixelAt(0, 0))
	}
}

func TestRun_SameBaseNameNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a", "shot.rgb16")
	second := filepath.Join(dir, "b", "shot.rgb16")
	for path, v := range map[string]uint16{first: 2048, second: 4096} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := rawio.Write(path, uniform(4, 4, v)); err != nil {
			t.Fatalf("writing source: %v", err)
		}
	}

	fs := sink.FileSink{Dir: filepath.Join(dir, "out"), Format: "raw", Suffix: sink.DefaultSuffix}
	metrics := telemetry.NewMetrics()
	d := New(source.NewMux(1.0), fs, Options{ContinueOnError: true}, quietLogger(), metrics)

	summary, err := d.Run(context.Background(), []string{first, second})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 1 {
		t.Errorf("summary: processed %d failed %d", summary.Processed, summary.Failed)
	}
	var se *StageError
	if !errors.As(summary.Err(), &se) || se.Stage != StageSink || se.Path != second {
		t.Errorf("error: got %v", summary.Err())
	}
	if !errors.Is(summary.Err(), ErrDuplicateOutput) {
		t.Errorf("Err should wrap ErrDuplicateOutput: %v", summary.Err())
	}
	if got := testutil.ToFloat64(metrics.ImagesFailed.WithLabelValues(StageSink)); got != 1 {
		t.Errorf("sink failures: got %v, want 1", got)
	}

	got, err := rawio.Read(filepath.Join(dir, "out", "shot_twostop.rgb8"))
	if err != nil {
		t.Fatalf("reading result: %v", err)
	}
	if px := got.PixelAt(0, 0); px != (twostop.Pixel{32, 32, 32}) {
		t.Errorf("result was overwritten: got %v, want the first source's 32", px)
	}
}
