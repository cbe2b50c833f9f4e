// Package pipeline sequences provider, two-stop transform and sink for a
// batch of images.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/twostop/internal/sink"
	"github.com/ironsheep/twostop/internal/source"
	"github.com/ironsheep/twostop/internal/telemetry"
	"github.com/ironsheep/twostop/internal/twostop"
)

// Pipeline stages, used in errors and metric labels.
const (
	StageProvider  = "provider"
	StageTransform = "transform"
	StageSink      = "sink"
)

// Options controls a pipeline run.
type Options struct {
	// Workers is passed to twostop.TransformParallel; 1 keeps the
	// transform single-threaded.
	Workers int

	// ContinueOnError skips a failing image instead of stopping the batch.
	ContinueOnError bool
}

// ErrDuplicateOutput is returned when a source would overwrite the result
// of an earlier source in the same batch.
var ErrDuplicateOutput = errors.New("output already written in this batch")

// StageError reports which stage failed for which image.
type StageError struct {
	Path  string
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Output describes one processed image.
type Output struct {
	Source       string        `json:"source"`
	Location     string        `json:"location,omitempty"` // empty when nothing was delivered
	SourceWidth  int           `json:"source_width"`
	SourceHeight int           `json:"source_height"`
	Width        int           `json:"width"`
	Height       int           `json:"height"`
	Duration     time.Duration `json:"duration_ns"`
}

// Summary aggregates a batch run.
type Summary struct {
	Processed int
	Failed    int
	Outputs   []Output
	Errors    []error
}

// Err joins all per-image errors, or returns nil.
func (s *Summary) Err() error {
	return errors.Join(s.Errors...)
}

// Driver runs Provider -> Transform -> Sink once per image.
type Driver struct {
	Provider source.Provider
	Sink     sink.Sink
	Options  Options
	Logger   zerolog.Logger
	Metrics  *telemetry.Metrics // optional
}

// New creates a Driver.
func New(p source.Provider, s sink.Sink, opts Options, logger zerolog.Logger, metrics *telemetry.Metrics) *Driver {
	return &Driver{
		Provider: p,
		Sink:     s,
		Options:  opts,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// ProcessOne runs the full pipeline for a single image.
//
// A source too small to form a 2×2 block yields an empty result; it is
// counted as processed but not handed to the sink.
func (d *Driver) ProcessOne(ctx context.Context, path string) (*Output, error) {
	start := time.Now()
	log := d.Logger.With().Str("source", path).Logger()

	log.Info().Msg("Reading source")
	src, err := d.Provider.Acquire(ctx, path)
	if err != nil {
		d.Metrics.Failed(StageProvider)
		return nil, &StageError{Path: path, Stage: StageProvider, Err: err}
	}
	log.Debug().Int("width", src.Width).Int("height", src.Height).Stringer("depth", src.Depth).Msg("Source acquired")

	log.Info().Msg("Two stop processing")
	tStart := time.Now()
	out, err := twostop.TransformParallel(src, d.Options.Workers)
	if err != nil {
		d.Metrics.Failed(StageTransform)
		return nil, &StageError{Path: path, Stage: StageTransform, Err: err}
	}
	d.Metrics.ObserveTransform(time.Since(tStart), out.Width*out.Height)

	result := &Output{
		Source:       path,
		SourceWidth:  src.Width,
		SourceHeight: src.Height,
		Width:        out.Width,
		Height:       out.Height,
	}

	if out.Width == 0 || out.Height == 0 {
		log.Warn().Int("width", src.Width).Int("height", src.Height).Msg("Source smaller than 2x2, nothing to render")
	} else {
		loc, err := d.Sink.Deliver(ctx, path, out)
		if err != nil {
			d.Metrics.Failed(StageSink)
			return nil, &StageError{Path: path, Stage: StageSink, Err: err}
		}
		log.Info().Str("output", loc).Msg("Rendered")
		result.Location = loc
	}

	result.Duration = time.Since(start)
	d.Metrics.Processed()
	return result, nil
}

// Run processes paths in order, each to completion before the next.
//
// Without ContinueOnError the first failure stops the batch and is
// returned. With it, failures are logged, recorded in the summary and the
// batch continues; the returned error is then nil and Summary.Err reports
// them. Cancelling ctx stops the batch between images.
//
// When the sink is a sink.Locator, a source whose result would land on the
// location of an earlier result fails at the sink stage with
// ErrDuplicateOutput and nothing is written for it.
func (d *Driver) Run(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{}
	written := make(map[string]string) // location -> source

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var out *Output
		err := d.checkLocation(written, path)
		if err == nil {
			out, err = d.ProcessOne(ctx, path)
		}
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, err)
			if !d.Options.ContinueOnError {
				d.Logger.Error().Err(err).Msg("Stopping batch")
				return summary, err
			}
			d.Logger.Warn().Err(err).Msg("Skipping image")
			continue
		}

		if out.Location != "" {
			written[out.Location] = path
		}
		summary.Processed++
		summary.Outputs = append(summary.Outputs, *out)
	}

	d.Logger.Info().Int("processed", summary.Processed).Int("failed", summary.Failed).
		Msgf("Done. Processed %d images.", summary.Processed)
	return summary, nil
}

// checkLocation fails when the sink would write path's result over one
// already in written. Sinks that cannot say where a result goes are not
// checked.
func (d *Driver) checkLocation(written map[string]string, path string) error {
	loc, ok := d.Sink.(sink.Locator)
	if !ok {
		return nil
	}
	target, err := loc.OutputPath(path, twostop.Depth8)
	if err != nil {
		// Deliver reports the same error at the sink stage.
		return nil
	}
	if prev, dup := written[target]; dup {
		d.Metrics.Failed(StageSink)
		return &StageError{
			Path:  path,
			Stage: StageSink,
			Err:   fmt.Errorf("%w: %s already holds the result for %s", ErrDuplicateOutput, target, prev),
		}
	}
	return nil
}
