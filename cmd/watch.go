package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/folio/internal/build"
	"github.com/conneroisu/folio/internal/config"
	folioerrors "github.com/conneroisu/folio/internal/errors"
	"github.com/conneroisu/folio/internal/logging"
	"github.com/conneroisu/folio/internal/server"
	"github.com/conneroisu/folio/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build, serve and rebuild on change",
	Long: `Run every build task once, serve dist on localhost:4300 and rebuild
whatever a file change affects:

  site document     sprites and templates
  SVG sources       sprites
  templates         templates
  stylesheets       stylesheets

Changes that arrive while a rebuild is running are merged into the next
rebuild. Browsers with a page open reload when it finishes.

Examples:
  folio watch                  # Default project layout
  folio watch --port 8080      # Serve on a different port
  folio watch -l debug         # Log every change batch`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addServerFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	srv := server.New(serverOptions(a.cfg), a.orchestrator.Metrics(), a.logger)
	a.orchestrator.AddCallback(srv.NotifyBuild)

	a.orchestrator.Run(ctx, build.All)

	go func() {
		if err := srv.Start(ctx); err != nil {
			a.logger.Error(ctx, err, "server failed, still watching", "addr", a.cfg.Addr())
		}
	}()

	fileWatcher, err := watcher.NewFileWatcher(a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		return folioerrors.NewIOError(folioerrors.ErrCodeWatcher, "failed to create file watcher", err)
	}
	defer fileWatcher.Stop()

	dispatcher := build.NewDispatcher(a.orchestrator, a.cfg.Paths, a.logger)
	setupWatcher(ctx, fileWatcher, a.cfg, a.logger)
	fileWatcher.AddHandler(dispatcher.Handle)

	if err := fileWatcher.Start(ctx); err != nil {
		return folioerrors.NewIOError(folioerrors.ErrCodeWatcher, "failed to start file watcher", err)
	}
	go dispatcher.Run(ctx)

	a.logger.Info(ctx, "watching for changes (press Ctrl+C to stop)")
	<-ctx.Done()
	a.logger.Info(context.Background(), "stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupWatcher registers the project's inputs. A missing input directory is
// logged and skipped.
func setupWatcher(ctx context.Context, fw *watcher.FileWatcher, cfg *config.Config, logger logging.Logger) {
	extensions := append([]string{".svg", ".scss", ".sass"}, cfg.Templates.Extensions...)

	fw.AddFilter(watcher.NoEditorFilter)
	fw.AddFilter(watcher.ExcludeDirFilter(cfg.Paths.Dist))
	fw.AddFilter(watcher.AnyFilter(
		watcher.ExtensionFilter(extensions...),
		watcher.PathFilter(cfg.Paths.Document),
	))

	for _, dir := range []string{cfg.Paths.SVGs, cfg.Paths.Templates, cfg.Paths.Sass} {
		if err := fw.AddRecursive(dir); err != nil {
			logger.Warn(ctx, err, "not watching directory", "path", dir)
			continue
		}
		logger.Debug(ctx, "watching", "path", dir)
	}
	if err := fw.AddFile(cfg.Paths.Document); err != nil {
		logger.Warn(ctx, err, "not watching site document", "path", cfg.Paths.Document)
	}
}
