package main

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/ironsheep/twostop/internal/preview"
	"github.com/ironsheep/twostop/internal/sink"
	"github.com/ironsheep/twostop/internal/source"
	"github.com/ironsheep/twostop/internal/twostop"
)

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Write bypass, two-stop, histogram and comparison images for one source",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().Float64("exp-shift", 1.0, "Linear exposure gain applied to the 16-bit source")
	previewCmd.Flags().StringP("out-dir", "o", "", "Output directory")
	previewCmd.Flags().Int("max-size", 1024, "Longest edge of the bypass preview")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if err := applyExposureFlag(flags, &cfg); err != nil {
		return err
	}
	if flags.Changed("out-dir") {
		cfg.Output.Dir, _ = flags.GetString("out-dir")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	maxSize, _ := flags.GetInt("max-size")

	path := args[0]
	src, err := source.NewMux(cfg.ExposureShift).Acquire(cmd.Context(), path)
	if err != nil {
		return err
	}
	result, err := twostop.TransformParallel(src, cfg.Workers)
	if err != nil {
		return err
	}
	if result.Width == 0 || result.Height == 0 {
		return fmt.Errorf("%s: %dx%d source is too small to preview", path, src.Width, src.Height)
	}
	bypass, err := twostop.Narrow(src)
	if err != nil {
		return err
	}

	// All four files share the source base name and differ by suffix.
	outPath := func(suffix string) (string, error) {
		return sink.FileSink{Dir: cfg.Output.Dir, Format: "png", Suffix: suffix}.OutputPath(path, twostop.Depth8)
	}
	save := func(suffix string, img image.Image) error {
		p, err := outPath(suffix)
		if err != nil {
			return err
		}
		if err := imaging.Save(img, p); err != nil {
			return fmt.Errorf("writing %s: %w", p, err)
		}
		fmt.Printf("Wrote %s\n", p)
		return nil
	}

	small, err := preview.Fit(bypass, maxSize, maxSize)
	if err != nil {
		return err
	}
	if err := save("_bypass", small); err != nil {
		return err
	}

	loc, err := sink.FileSink{Dir: cfg.Output.Dir, Format: "png", Suffix: cfg.Output.Suffix}.
		Deliver(cmd.Context(), path, result)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", loc)

	histImg, err := preview.HistogramImage(result)
	if err != nil {
		return err
	}
	if err := save("_histogram", histImg); err != nil {
		return err
	}

	cmp, err := preview.Compare(src, result)
	if err != nil {
		return err
	}
	if err := save("_compare", cmp.Composite); err != nil {
		return err
	}

	hist, err := preview.Histogram(result, false)
	if err != nil {
		return err
	}
	logger.Debug().Str("source", path).Msg("Preview written")

	fmt.Printf("\nSource:   %dx%d %s\n", src.Width, src.Height, src.Depth)
	fmt.Printf("Two-stop: %dx%d %s\n", result.Width, result.Height, result.Depth)
	fmt.Println("Channel   low  high    mean  clipped%  crushed%")
	for _, ch := range []struct {
		name  string
		stats preview.ChannelStats
	}{{"red", hist.Red}, {"green", hist.Green}, {"blue", hist.Blue}} {
		fmt.Printf("%-7s %5d %5d %7.1f %9.2f %9.2f\n",
			ch.name, ch.stats.Low, ch.stats.High, ch.stats.Mean, ch.stats.Clipped, ch.stats.Crushed)
	}
	fmt.Printf("Mean CIEDE2000 vs bypass: %.2f\n", cmp.MeanDeltaE)
	fmt.Printf("Gain: %+.2f stops\n", cmp.GainStops)
	return nil
}
