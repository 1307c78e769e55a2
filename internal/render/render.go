// Package render turns page templates into static HTML.
//
// Pug (.pug, .jade) pages are compiled to html/template text with
// github.com/Joker/jade; .html and .tmpl pages are parsed as html/template
// directly, together with every partial of the same extension. Files whose
// name starts with the exclude prefix are partials and are never written on
// their own.
package render

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Joker/jade"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	folioerrors "github.com/conneroisu/folio/internal/errors"
	"github.com/conneroisu/folio/internal/logging"
	"github.com/conneroisu/folio/internal/output"
	"github.com/conneroisu/folio/internal/sitedata"
)

// Assets holds the root-relative URL prefixes handed to templates.
type Assets struct {
	CSS    string
	JS     string
	Libs   string
	Images string
}

// Options describes one render run.
type Options struct {
	// SourceDir is the template tree.
	SourceDir string
	// OutputDir receives the rendered pages, mirroring SourceDir.
	OutputDir string
	// Root is the directory readFile resolves against. Defaults to ".".
	Root string

	Extensions    []string
	ExcludePrefix string
	// HideExtension writes <dir>/<name>.html as <dir>/<slug>/index.html.
	HideExtension bool
	// Indent is the prettifier indent width; 0 leaves the HTML untouched.
	Indent int

	Assets Assets
	// Pages are the sprite page names, exposed as svgs.
	Pages    []string
	Document *sitedata.Document
}

// Result describes one render run.
type Result struct {
	// Files maps each source template to the page written for it.
	Files  map[string]string
	Errors []error
}

// Renderer renders page templates.
type Renderer struct {
	logger   logging.Logger
	markdown goldmark.Markdown
}

// NewRenderer creates a Renderer.
func NewRenderer(logger logging.Logger) *Renderer {
	return &Renderer{
		logger:   logger.WithComponent("templates"),
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// page is one template selected for rendering.
type page struct {
	source string // relative to SourceDir, slash separated
	base   string // file name without extension
	ext    string
}

// Render renders every page template. A failing page is logged and skipped;
// the returned error joins all page failures.
func (r *Renderer) Render(ctx context.Context, opts Options) (*Result, error) {
	if opts.Document == nil {
		opts.Document = sitedata.Empty()
	}
	if opts.Root == "" {
		opts.Root = "."
	}

	pages, partials, err := r.collect(opts)
	if err != nil {
		return nil, folioerrors.NewIOError(folioerrors.ErrCodeFileNotFound, "cannot list templates", err).
			WithComponent("templates").
			WithFile(opts.SourceDir)
	}

	result := &Result{Files: make(map[string]string, len(pages))}
	collector := folioerrors.NewCollector()
	funcs := r.funcMap(opts)

	for _, p := range pages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dest, err := r.renderPage(p, partials[p.ext], funcs, opts)
		if err != nil {
			r.logger.Error(ctx, err, "template failed", "template", p.source)
			collector.Add(err)
			continue
		}

		r.logger.Debug(ctx, "page written", "template", p.source, "path", dest)
		result.Files[p.source] = dest
	}

	result.Errors = collector.Errors()
	return result, collector.Err()
}

// collect walks SourceDir and splits the templates into pages and partials.
// Partials are grouped by extension; only html/template pages use them,
// Pug resolves its own includes.
func (r *Renderer) collect(opts Options) ([]page, map[string][]string, error) {
	extensions := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		extensions[strings.ToLower(ext)] = true
	}

	var pages []page
	partials := make(map[string][]string)

	err := filepath.WalkDir(opts.SourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !extensions[ext] {
			return nil
		}

		rel, err := filepath.Rel(opts.SourceDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		name := d.Name()
		if opts.ExcludePrefix != "" && strings.HasPrefix(name, opts.ExcludePrefix) {
			partials[ext] = append(partials[ext], rel)
			return nil
		}

		pages = append(pages, page{
			source: rel,
			base:   strings.TrimSuffix(name, filepath.Ext(name)),
			ext:    ext,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].source < pages[j].source })
	return pages, partials, nil
}

func (r *Renderer) renderPage(p page, partials []string, funcs template.FuncMap, opts Options) (string, error) {
	fail := func(msg string, cause error) error {
		return folioerrors.NewBuildError(folioerrors.ErrCodeTemplateFailed, msg, cause).
			WithComponent("templates").
			WithFile(filepath.Join(opts.SourceDir, filepath.FromSlash(p.source)))
	}

	tmpl, err := r.parse(p, partials, funcs, opts)
	if err != nil {
		return "", fail("cannot compile template", err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, r.pageData(p, opts)); err != nil {
		return "", fail("cannot render template", err)
	}

	html := sb.String()
	if opts.Indent > 0 {
		if html, err = Prettify(html, opts.Indent); err != nil {
			return "", fail("cannot format html", err)
		}
	}

	dest := filepath.Join(opts.OutputDir, filepath.FromSlash(OutputPath(p.source, opts.HideExtension, opts.Document)))
	if err := output.WriteString(dest, html); err != nil {
		return "", err
	}

	return dest, nil
}

func (r *Renderer) parse(p page, partials []string, funcs template.FuncMap, opts Options) (*template.Template, error) {
	switch p.ext {
	case ".pug", ".jade":
		text, err := jade.ParseFileFromFileSystem(p.source, http.Dir(opts.SourceDir))
		if err != nil {
			return nil, err
		}
		return template.New(p.source).Funcs(funcs).Parse(text)
	default:
		tmpl := template.New(p.source).Funcs(funcs)
		for _, partial := range partials {
			data, err := os.ReadFile(filepath.Join(opts.SourceDir, filepath.FromSlash(partial)))
			if err != nil {
				return nil, err
			}
			if _, err := tmpl.New(partial).Parse(string(data)); err != nil {
				return nil, fmt.Errorf("partial %s: %w", partial, err)
			}
		}
		data, err := os.ReadFile(filepath.Join(opts.SourceDir, filepath.FromSlash(p.source)))
		if err != nil {
			return nil, err
		}
		return tmpl.Parse(string(data))
	}
}

// pageData is the context every page is executed with.
func (r *Renderer) pageData(p page, opts Options) map[string]any {
	pages := opts.Pages
	if pages == nil {
		pages = []string{}
	}

	return map[string]any{
		"css_path": opts.Assets.CSS,
		"js_path":  opts.Assets.JS,
		"lib_path": opts.Assets.Libs,
		"img_path": opts.Assets.Images,
		"svgs":     pages,
		"config":   opts.Document.Raw,
		"page":     p.base,
		"slug":     Slug(p.base, opts.Document),
		"title":    Title(p.base, opts.Document),
	}
}

// Slug returns the URL slug of a template base name: the slug metadata when
// present, the base name otherwise.
func Slug(base string, doc *sitedata.Document) string {
	if s, ok := doc.Slug(base); ok && s.Slug != "" {
		return s.Slug
	}
	return base
}

// Title returns the page title: the slug metadata title when present,
// otherwise the base name in title case.
func Title(base string, doc *sitedata.Document) string {
	if s, ok := doc.Slug(base); ok && s.Title != "" {
		return s.Title
	}
	return titleCase(strings.NewReplacer("-", " ", "_", " ").Replace(base))
}

// OutputPath maps a template path (relative, slash separated) to the page it
// produces. With hideExtension, every page not named index moves to
// <dir>/<slug>/index.html.
func OutputPath(source string, hideExtension bool, doc *sitedata.Document) string {
	dir, name := splitSlash(source)
	base := strings.TrimSuffix(name, extOf(name))

	if !hideExtension || base == "index" {
		return joinSlash(dir, base+".html")
	}
	return joinSlash(dir, Slug(base, doc), "index.html")
}

func splitSlash(p string) (string, string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}

func joinSlash(parts ...string) string {
	var kept []string
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "/")
}
