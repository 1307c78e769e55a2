package build

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/conneroisu/folio/internal/config"
	folioerrors "github.com/conneroisu/folio/internal/errors"
	"github.com/conneroisu/folio/internal/logging"
	"github.com/conneroisu/folio/internal/watcher"
)

// Classify maps a batch of file changes to the pipelines that must rerun.
// The site document feeds both sprites and templates.
func Classify(paths config.PathsConfig, events []watcher.ChangeEvent) Targets {
	var targets Targets
	for _, event := range events {
		switch {
		case samePath(event.Path, paths.Document):
			targets |= Sprites | Templates
		case within(paths.SVGs, event.Path):
			targets |= Sprites
		case within(paths.Templates, event.Path):
			targets |= Templates
		case within(paths.Sass, event.Path):
			targets |= Styles
		}
	}
	return targets
}

// Dispatcher feeds watcher batches to an Orchestrator. Batches that arrive
// while a rebuild is running are merged into the next one.
type Dispatcher struct {
	orchestrator *Orchestrator
	paths        config.PathsConfig
	logger       logging.Logger

	mu      sync.Mutex
	pending Targets
	wake    chan struct{}
}

// NewDispatcher creates a dispatcher for o.
func NewDispatcher(o *Orchestrator, paths config.PathsConfig, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		orchestrator: o,
		paths:        paths,
		logger:       logger.WithComponent("dispatcher"),
		wake:         make(chan struct{}, 1),
	}
}

// Handle is a watcher.ChangeHandler.
func (d *Dispatcher) Handle(events []watcher.ChangeEvent) error {
	targets := Classify(d.paths, events)
	if targets == None {
		return nil
	}
	d.logger.Debug(context.Background(), "changes queued", "events", len(events), "targets", targets.String())
	d.Enqueue(targets)
	return nil
}

// Enqueue schedules a rebuild of targets.
func (d *Dispatcher) Enqueue(targets Targets) {
	d.mu.Lock()
	d.pending |= targets
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run performs queued rebuilds one at a time until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		}

		d.mu.Lock()
		targets := d.pending
		d.pending = None
		d.mu.Unlock()

		if targets == None {
			continue
		}
		report := d.orchestrator.Run(ctx, targets)
		for _, err := range report.Errors {
			// Source errors go away with the next save; the rest need a
			// fix outside the watched tree, such as dist permissions.
			if !folioerrors.IsRecoverable(err) && !errors.Is(err, context.Canceled) {
				d.logger.Error(ctx, err, "rebuild error will repeat until fixed", "build_id", report.ID)
			}
		}
	}
}

func samePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(absPath(root), absPath(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}
