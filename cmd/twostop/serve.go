package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/twostop/internal/logging"
	"github.com/ironsheep/twostop/internal/server"
	"github.com/ironsheep/twostop/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("metrics-port", 0, "Expose Prometheus metrics on this port (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("metrics-port") {
		cfg.Metrics.Port, _ = cmd.Flags().GetInt("metrics-port")
		if err := cfg.Validate(); err != nil {
			return err
		}
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

	server.Version = Version
	logger.Info().Str("version", Version).Str("commit", GitCommit).Msg("Starting MCP server")

	srv := server.New(cfg, logging.Component(logger, "mcp"), metrics)
	return srv.Run(ctx)
}
