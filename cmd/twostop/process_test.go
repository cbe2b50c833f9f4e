package main

import (
	"testing"

	"github.com/spf13/cobra"

	"github.com/ironsheep/twostop/internal/config"
)

func newProcessFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "process"}
	addProcessFlags(cmd.Flags())
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestApplyProcessFlags(t *testing.T) {
	cfg := config.Default()
	cmd := newProcessFlags(t, "--format", "jpeg", "-j", "4", "--continue", "--exp-shift", "1.5")

	if err := applyProcessFlags(cmd, &cfg); err != nil {
		t.Fatalf("applyProcessFlags: %v", err)
	}
	if cfg.Output.Format != "jpeg" || cfg.Workers != 4 || !cfg.ContinueOnError || cfg.ExposureShift != 1.5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Output.Quality != config.Default().Output.Quality {
		t.Errorf("unset flag changed quality to %d", cfg.Output.Quality)
	}
}

func TestApplyProcessFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"--format", "webp"}},
		{"quality", []string{"--quality", "101"}},
		{"workers", []string{"--workers", "-1"}},
		{"exposure", []string{"--exp-shift", "-2"}},
		{"zero exposure", []string{"--exp-shift", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if err := applyProcessFlags(newProcessFlags(t, tt.args...), &cfg); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}
