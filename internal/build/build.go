// Package build runs folio's pipelines as one rebuild: sprites first, then
// templates and stylesheets side by side. It also turns watcher batches into
// rebuilds of the pipelines they affect.
package build

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/folio/internal/config"
	"github.com/conneroisu/folio/internal/logging"
	"github.com/conneroisu/folio/internal/render"
	"github.com/conneroisu/folio/internal/sitedata"
	"github.com/conneroisu/folio/internal/sprite"
	"github.com/conneroisu/folio/internal/styles"
)

// Targets is a set of pipelines.
type Targets uint8

const (
	Sprites Targets = 1 << iota
	Templates
	Styles

	None Targets = 0
	All          = Sprites | Templates | Styles
)

// Has reports whether every pipeline in o is part of t.
func (t Targets) Has(o Targets) bool {
	return t&o == o && o != 0
}

func (t Targets) String() string {
	if t == None {
		return "none"
	}
	var names []string
	if t.Has(Sprites) {
		names = append(names, "sprites")
	}
	if t.Has(Templates) {
		names = append(names, "templates")
	}
	if t.Has(Styles) {
		names = append(names, "styles")
	}
	return strings.Join(names, "+")
}

// SpriteBuilder builds the per-page sprites of a site document.
type SpriteBuilder interface {
	Build(ctx context.Context, groups []sitedata.Group) (*sprite.Result, error)
}

// TemplateRenderer renders the page templates.
type TemplateRenderer interface {
	Render(ctx context.Context, opts render.Options) (*render.Result, error)
}

// StyleCompiler compiles the stylesheets.
type StyleCompiler interface {
	Compile(ctx context.Context) (*styles.Result, error)
}

// Report describes one rebuild.
type Report struct {
	ID       string
	Targets  Targets
	Started  time.Time
	Duration time.Duration
	// Pages are the sprite page names the templates saw.
	Pages []string
	// Files lists every file written, sorted.
	Files  []string
	Errors []error
}

// OK reports whether the rebuild finished without errors.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Summary is a one-line description for logs and the status page.
func (r *Report) Summary() string {
	status := "ok"
	if !r.OK() {
		status = fmt.Sprintf("%d error(s)", len(r.Errors))
	}
	return fmt.Sprintf("%s: %d file(s) in %s, %s", r.Targets, len(r.Files), r.Duration.Round(time.Millisecond), status)
}

// BuildCallback is called after every rebuild.
type BuildCallback func(report *Report)

// Orchestrator runs rebuilds. Rebuilds never overlap.
type Orchestrator struct {
	cfg       *config.Config
	sprites   SpriteBuilder
	templates TemplateRenderer
	styles    StyleCompiler
	logger    logging.Logger
	metrics   *BuildMetrics

	runMu sync.Mutex

	mu        sync.RWMutex
	pages     []string
	haveSpr   bool
	callbacks []BuildCallback
}

// NewOrchestrator wires the pipelines together. A nil pipeline is treated
// as having nothing to do.
func NewOrchestrator(cfg *config.Config, sprites SpriteBuilder, templates TemplateRenderer, styles StyleCompiler, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		sprites:   sprites,
		templates: templates,
		styles:    styles,
		logger:    logger.WithComponent("build"),
		metrics:   NewBuildMetrics(),
	}
}

// AddCallback registers cb to run after every rebuild.
func (o *Orchestrator) AddCallback(cb BuildCallback) {
	o.mu.Lock()
	o.callbacks = append(o.callbacks, cb)
	o.mu.Unlock()
}

// Pages returns the page names of the last sprite run.
func (o *Orchestrator) Pages() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return append([]string(nil), o.pages...)
}

// Metrics returns the rebuild counters.
func (o *Orchestrator) Metrics() *BuildMetrics {
	return o.metrics
}

// Run rebuilds the given pipelines. Pipeline failures end up in the report
// and never abort the other pipelines.
func (o *Orchestrator) Run(ctx context.Context, targets Targets) *Report {
	o.runMu.Lock()
	defer o.runMu.Unlock()

	report := &Report{
		ID:      uuid.NewString(),
		Targets: targets,
		Started: time.Now(),
	}
	logger := o.logger.With("build_id", report.ID)
	logger.Info(ctx, "rebuild started", "targets", targets.String())

	var (
		mu    sync.Mutex
		files []string
	)
	record := func(written []string, errs []error, err error) {
		mu.Lock()
		defer mu.Unlock()
		files = append(files, written...)
		report.Errors = append(report.Errors, errs...)
		// A pipeline that failed before producing a result only returns err.
		if err != nil && len(errs) == 0 {
			report.Errors = append(report.Errors, err)
		}
	}

	var doc *sitedata.Document
	if targets.Has(Sprites) || targets.Has(Templates) {
		doc = o.loadDocument(ctx, logger)
	}

	if targets.Has(Sprites) && o.sprites != nil {
		op := logging.StartOperation(logger, "sprites")
		res, err := o.sprites.Build(ctx, doc.Groups)
		if res != nil {
			o.setPages(res.Pages)
			record(res.Files, res.Errors, err)
			endPhase(ctx, op, len(res.Files), err)
		} else {
			record(nil, nil, err)
			endPhase(ctx, op, 0, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if targets.Has(Templates) && o.templates != nil {
		pages := o.pagesFor(doc)
		report.Pages = pages
		g.Go(func() error {
			op := logging.StartOperation(logger, "templates")
			res, err := o.templates.Render(gctx, o.renderOptions(doc, pages))
			if res != nil {
				record(values(res.Files), res.Errors, err)
				endPhase(gctx, op, len(res.Files), err)
			} else {
				record(nil, nil, err)
				endPhase(gctx, op, 0, err)
			}
			return nil
		})
	}
	if targets.Has(Styles) && o.styles != nil {
		g.Go(func() error {
			op := logging.StartOperation(logger, "styles")
			res, err := o.styles.Compile(gctx)
			if res != nil {
				record(values(res.Files), res.Errors, err)
				endPhase(gctx, op, len(res.Files), err)
			} else {
				record(nil, nil, err)
				endPhase(gctx, op, 0, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(files)
	report.Files = files
	report.Duration = time.Since(report.Started)
	if err := ctx.Err(); err != nil && !containsErr(report.Errors, err) {
		report.Errors = append(report.Errors, err)
	}

	if report.OK() {
		logger.Info(ctx, "rebuild finished", "files", len(report.Files), "duration", report.Duration)
	} else {
		logger.Warn(ctx, errors.Join(report.Errors...), "rebuild finished with errors",
			"files", len(report.Files), "errors", len(report.Errors), "duration", report.Duration)
	}

	o.metrics.RecordBuild(report)

	o.mu.RLock()
	callbacks := append([]BuildCallback(nil), o.callbacks...)
	o.mu.RUnlock()
	for _, cb := range callbacks {
		cb(report)
	}

	return report
}

func endPhase(ctx context.Context, op *logging.PerfLogger, files int, err error) {
	if err != nil {
		op.EndWithError(ctx, err, "files", files)
		return
	}
	op.End(ctx, "files", files)
}

// loadDocument re-reads the site document. A missing or broken document
// disables its features for this rebuild.
func (o *Orchestrator) loadDocument(ctx context.Context, logger logging.Logger) *sitedata.Document {
	doc, err := sitedata.Load(o.cfg.Paths.Document)
	if err != nil {
		logger.Warn(ctx, err, "site document unusable, continuing without it")
		return sitedata.Empty()
	}
	for _, w := range doc.Warnings {
		logger.Warn(ctx, nil, "site document feature ignored", "detail", w)
	}
	return doc
}

func (o *Orchestrator) setPages(pages []string) {
	o.mu.Lock()
	o.pages = append([]string(nil), pages...)
	o.haveSpr = true
	o.mu.Unlock()
}

// pagesFor returns the sprite pages templates should see. Until the first
// sprite run of this process the document's own group names are used.
func (o *Orchestrator) pagesFor(doc *sitedata.Document) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.haveSpr {
		return append([]string(nil), o.pages...)
	}
	return doc.Pages()
}

func (o *Orchestrator) renderOptions(doc *sitedata.Document, pages []string) render.Options {
	return render.Options{
		SourceDir:     o.cfg.Paths.Templates,
		OutputDir:     o.cfg.Paths.Dist,
		Root:          ".",
		Extensions:    o.cfg.Templates.Extensions,
		ExcludePrefix: o.cfg.Templates.ExcludePrefix,
		HideExtension: o.cfg.Templates.HideExtension,
		Indent:        o.cfg.Templates.Indent,
		Assets: render.Assets{
			CSS:    o.cfg.AssetURL(o.cfg.Paths.CSS),
			JS:     o.cfg.AssetURL(o.cfg.Paths.JS),
			Libs:   o.cfg.AssetURL(o.cfg.Paths.Libs),
			Images: o.cfg.AssetURL(o.cfg.Paths.Images),
		},
		Pages:    pages,
		Document: doc,
	}
}

func values(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func containsErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
