package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/folio/internal/build"
	"github.com/conneroisu/folio/internal/config"
	"github.com/conneroisu/folio/internal/logging"
	"github.com/conneroisu/folio/internal/render"
	"github.com/conneroisu/folio/internal/sprite"
	"github.com/conneroisu/folio/internal/styles"
)

// app holds the pipelines of one folio invocation.
type app struct {
	cfg          *config.Config
	logger       logging.Logger
	sass         *styles.DartSass
	orchestrator *build.Orchestrator
}

// newApp loads the settings and wires every pipeline. Invalid settings are
// the only fatal error.
func newApp(cmd *cobra.Command) (*app, error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	applyServerFlags(cmd, cfg)

	sprites := sprite.NewBuilder(sprite.Options{
		SourceDir: cfg.Paths.SVGs,
		OutputDir: cfg.Paths.Images,
		MinifyIDs: cfg.Sprites.MinifyIDs,
		Minify:    cfg.Sprites.Minify,
	}, logger)

	sass := styles.NewDartSass(cfg.Styles.SassBinary, logger)
	compiler, err := styles.NewCompiler(styles.Options{
		SourceDir:         cfg.Paths.Sass,
		OutputDir:         cfg.Paths.CSS,
		Browsers:          cfg.Styles.Browsers,
		SourceMap:         cfg.Styles.SourceMap,
		MergeMediaQueries: cfg.Styles.MergeMediaQueries,
	}, sass, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:          cfg,
		logger:       logger,
		sass:         sass,
		orchestrator: build.NewOrchestrator(cfg, sprites, render.NewRenderer(logger), compiler, logger),
	}, nil
}

// Close stops the Sass compiler process.
func (a *app) Close() error {
	return a.sass.Close()
}

// runOnce performs one rebuild of targets and prints its outcome. Build
// failures are reported, not returned.
func runOnce(cmd *cobra.Command, targets build.Targets) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	report := a.orchestrator.Run(ctx, targets)
	printReport(cmd.OutOrStdout(), report)

	return nil
}

func printReport(w io.Writer, report *build.Report) {
	fmt.Fprintln(w, report.Summary())
	for _, err := range report.Errors {
		fmt.Fprintf(w, "  - %v\n", err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
