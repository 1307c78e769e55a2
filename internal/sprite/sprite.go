// Package sprite merges groups of SVG files into per-page inline sprites.
//
// Each source file becomes a <symbol> named after the file. Ids inside a file
// are prefixed with the file's base name, so fragments that reuse the same
// ids never collide once merged.
package sprite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	folioerrors "github.com/conneroisu/folio/internal/errors"
	"github.com/conneroisu/folio/internal/logging"
	"github.com/conneroisu/folio/internal/output"
	"github.com/conneroisu/folio/internal/sitedata"
)

const (
	svgNamespace   = "http://www.w3.org/2000/svg"
	xlinkNamespace = "http://www.w3.org/1999/xlink"
	svgMediaType   = "image/svg+xml"
)

// Options configures a Builder.
type Options struct {
	// SourceDir holds the SVG files named in the site document.
	SourceDir string
	// OutputDir receives one <page>.svg per group.
	OutputDir string
	// MinifyIDs shortens every id to <file>-<a|b|...>.
	MinifyIDs bool
	// Minify runs the merged sprite through the SVG minifier.
	Minify bool
}

// Fragment is one SVG file to be merged.
type Fragment struct {
	Name string
	Data []byte
}

// Result describes one Build call.
type Result struct {
	// Pages lists the groups whose sprite was written, in document order.
	Pages []string
	// Files lists the written sprite paths.
	Files []string
	// Errors holds one entry per failed group.
	Errors []error
}

// Builder writes sprites for the groups of a site document.
type Builder struct {
	opts     Options
	logger   logging.Logger
	minifier *minify.M
	readFile func(string) ([]byte, error)
}

// NewBuilder creates a sprite builder.
func NewBuilder(opts Options, logger logging.Logger) *Builder {
	m := minify.New()
	m.AddFunc(svgMediaType, svg.Minify)

	return &Builder{
		opts:     opts,
		logger:   logger.WithComponent("sprite"),
		minifier: m,
		readFile: os.ReadFile,
	}
}

// Build writes one sprite per group. A failing group is logged and skipped;
// the remaining groups are still built. The returned error joins the
// per-group failures and is nil when every group succeeded. A nil groups
// slice means the document has no grouping feature and nothing is written.
func (b *Builder) Build(ctx context.Context, groups []sitedata.Group) (*Result, error) {
	result := &Result{Pages: []string{}}
	if groups == nil {
		b.logger.Debug(ctx, "site document has no sprite grouping, skipping")
		return result, nil
	}

	collector := folioerrors.NewCollector()
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		path, err := b.buildGroup(group)
		if err != nil {
			b.logger.Error(ctx, err, "sprite group failed", "page", group.Page)
			collector.Add(err)
			continue
		}
		if path == "" {
			b.logger.Warn(ctx, nil, "sprite group is empty, nothing written", "page", group.Page)
			continue
		}

		b.logger.Info(ctx, "sprite written", "page", group.Page, "files", len(group.Files), "path", path)
		result.Pages = append(result.Pages, group.Page)
		result.Files = append(result.Files, path)
	}

	result.Errors = collector.Errors()
	return result, collector.Err()
}

func (b *Builder) buildGroup(group sitedata.Group) (string, error) {
	fail := func(msg string, cause error) *folioerrors.FolioError {
		return folioerrors.NewBuildError(folioerrors.ErrCodeSpriteFailed, fmt.Sprintf("%s (page %q)", msg, group.Page), cause).
			WithComponent("sprite").
			WithContext("page", group.Page)
	}

	if err := validatePageName(group.Page); err != nil {
		return "", fail("invalid page name", err)
	}
	if len(group.Files) == 0 {
		return "", nil
	}

	fragments := make([]Fragment, 0, len(group.Files))
	for _, name := range group.Files {
		source, err := b.sourcePath(name)
		if err != nil {
			return "", fail("invalid svg name", err)
		}
		data, err := b.readFile(source)
		if err != nil {
			return "", fail("cannot read svg", err).WithFile(source)
		}
		fragments = append(fragments, Fragment{Name: baseName(name), Data: data})
	}

	doc, err := Merge(fragments, b.opts.MinifyIDs)
	if err != nil {
		return "", fail("cannot merge svgs", err)
	}

	content, err := doc.WriteToString()
	if err != nil {
		return "", fail("cannot serialise sprite", err)
	}
	if b.opts.Minify {
		if content, err = b.minifier.String(svgMediaType, content); err != nil {
			return "", fail("cannot minify sprite", err)
		}
	}

	path := filepath.Join(b.opts.OutputDir, group.Page+".svg")
	if err := output.WriteString(path, content); err != nil {
		return "", err
	}

	return path, nil
}

// sourcePath resolves an SVG base name from the site document. Names may
// contain sub directories but must stay inside the source directory.
func (b *Builder) sourcePath(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q escapes the svg directory", name)
	}
	return filepath.Join(b.opts.SourceDir, clean+".svg"), nil
}

func validatePageName(page string) error {
	if page == "" || page == "." || page == ".." || strings.ContainsAny(page, `/\`) {
		return fmt.Errorf("%q cannot be used as a file name", page)
	}
	return nil
}

func baseName(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Merge combines fragments into a single sprite document. Every fragment is
// wrapped in a <symbol id="<name>"> and its ids are prefixed with "<name>-".
// Definitions are hoisted into one shared <defs> block.
func Merge(fragments []Fragment, minifyIDs bool) (*etree.Document, error) {
	doc := etree.NewDocument()
	root := doc.CreateElement("svg")
	root.CreateAttr("xmlns", svgNamespace)
	defs := root.CreateElement("defs")

	// Symbol ids are reserved up front so no prefixed id can take one.
	used := make(map[string]bool, len(fragments))
	for _, fragment := range fragments {
		if used[fragment.Name] {
			return nil, fmt.Errorf("file name %q is used twice in one sprite", fragment.Name)
		}
		used[fragment.Name] = true
	}
	usesXlink := false

	for _, fragment := range fragments {
		src := etree.NewDocument()
		if err := src.ReadFromBytes(fragment.Data); err != nil {
			return nil, fmt.Errorf("%s.svg: %w", fragment.Name, err)
		}
		svgRoot := src.Root()
		if svgRoot == nil || svgRoot.Tag != "svg" {
			return nil, fmt.Errorf("%s.svg: root element is not <svg>", fragment.Name)
		}

		prefixIDs(svgRoot, fragment.Name+"-", minifyIDs, used)

		symbol := root.CreateElement("symbol")
		symbol.CreateAttr("id", fragment.Name)
		for _, key := range []string{"viewBox", "preserveAspectRatio"} {
			if attr := svgRoot.SelectAttr(key); attr != nil {
				symbol.CreateAttr(key, attr.Value)
			}
		}
		if !usesXlink {
			usesXlink = hasXlink(svgRoot)
		}

		for _, child := range svgRoot.ChildElements() {
			if child.Tag == "defs" {
				for _, def := range child.ChildElements() {
					defs.AddChild(def.Copy())
				}
				continue
			}
			symbol.AddChild(child.Copy())
		}
	}

	if usesXlink {
		root.CreateAttr("xmlns:xlink", xlinkNamespace)
	}
	if len(defs.ChildElements()) == 0 {
		root.RemoveChild(defs)
	}

	return doc, nil
}

func hasXlink(root *etree.Element) bool {
	for _, el := range descendants(root) {
		for _, attr := range el.Attr {
			if attr.Space == "xlink" || (attr.Space == "xmlns" && attr.Key == "xlink") {
				return true
			}
		}
	}
	return false
}
