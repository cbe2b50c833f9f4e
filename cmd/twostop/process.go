package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ironsheep/twostop/internal/config"
	"github.com/ironsheep/twostop/internal/logging"
	"github.com/ironsheep/twostop/internal/pipeline"
	"github.com/ironsheep/twostop/internal/sink"
	"github.com/ironsheep/twostop/internal/source"
	"github.com/ironsheep/twostop/internal/telemetry"
)

var processCmd = &cobra.Command{
	Use:   "process FILE...",
	Short: "Run the two-stop transform over one or more sources",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func init() {
	addProcessFlags(processCmd.Flags())
	rootCmd.AddCommand(processCmd)
}

func addProcessFlags(fs *pflag.FlagSet) {
	fs.Float64("exp-shift", 1.0, "Linear exposure gain applied to the 16-bit source")
	fs.StringP("out-dir", "o", "", "Output directory")
	fs.StringP("format", "f", "", "Output format: png, jpeg, tiff, bmp, gif, raw, raw.zst")
	fs.Int("quality", 0, "JPEG quality (1-100)")
	fs.IntP("workers", "j", 0, "Goroutines per transform")
	fs.Bool("continue", false, "Skip failing images instead of stopping the batch")
}

// applyProcessFlags overrides cfg with every flag the user set explicitly.
func applyProcessFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if err := applyExposureFlag(flags, cfg); err != nil {
		return err
	}
	if flags.Changed("out-dir") {
		cfg.Output.Dir, _ = flags.GetString("out-dir")
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("quality") {
		cfg.Output.Quality, _ = flags.GetInt("quality")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("continue") {
		cfg.ContinueOnError, _ = flags.GetBool("continue")
	}
	return cfg.Validate()
}

// applyExposureFlag copies an explicit --exp-shift into cfg. Zero is
// refused because the config layer reads it as unset.
func applyExposureFlag(flags *pflag.FlagSet, cfg *config.Config) error {
	if !flags.Changed("exp-shift") {
		return nil
	}
	shift, _ := flags.GetFloat64("exp-shift")
	if shift <= 0 {
		return fmt.Errorf("--exp-shift must be greater than 0, got %g", shift)
	}
	cfg.ExposureShift = shift
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := applyProcessFlags(cmd, &cfg); err != nil {
		return err
	}
	ctx := cmd.Context()

	metrics := telemetry.NewMetrics()
	if cfg.Metrics.Port > 0 {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port); err != nil {
				logger.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
	}

	driver := pipeline.New(
		source.NewMux(cfg.ExposureShift),
		sink.FileSink{
			Dir:     cfg.Output.Dir,
			Format:  cfg.Output.Format,
			Quality: cfg.Output.Quality,
			Suffix:  cfg.Output.Suffix,
		},
		pipeline.Options{Workers: cfg.Workers, ContinueOnError: cfg.ContinueOnError},
		logging.Component(logger, "pipeline"),
		metrics,
	)

	summary, err := driver.Run(ctx, args)
	if summary != nil {
		for _, out := range summary.Outputs {
			if out.Location == "" {
				fmt.Printf("%s: %dx%d, too small, skipped\n", out.Source, out.SourceWidth, out.SourceHeight)
				continue
			}
			fmt.Printf("%s -> %s (%dx%d -> %dx%d)\n",
				out.Source, out.Location, out.SourceWidth, out.SourceHeight, out.Width, out.Height)
		}
	}
	if err != nil {
		return err
	}
	if err := summary.Err(); err != nil {
		return fmt.Errorf("%d of %d images failed:\n%w", summary.Failed, len(args), err)
	}
	return nil
}
