package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/folio/internal/config"
	"github.com/conneroisu/folio/internal/server"
)

var liveCmd = &cobra.Command{
	Use:     "live",
	Aliases: []string{"serve"},
	Short:   "Serve dist without building",
	Long: `Serve the dist directory on localhost:4300 with caching disabled.

Examples:
  folio live                 # Serve on localhost:4300
  folio live --port 8080     # Serve on a different port`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)
	addServerFlags(liveCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyServerFlags(cmd, cfg)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	srv := server.New(serverOptions(cfg), nil, logger)
	if err := srv.Start(ctx); err != nil {
		// Server errors are logged, never fatal.
		logger.Error(ctx, err, "server failed", "addr", cfg.Addr())
	}

	return nil
}

func serverOptions(cfg *config.Config) server.Options {
	return server.Options{
		Root:       cfg.Paths.Dist,
		Host:       cfg.Server.Host,
		Port:       cfg.Server.Port,
		LiveReload: cfg.Server.LiveReload,
	}
}
