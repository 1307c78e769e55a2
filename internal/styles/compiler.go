// Package styles compiles the project's Sass sources into the CSS served from
// the dist tree.
//
// Every non-partial .scss or .sass file is compiled in expanded style, its
// top level @media blocks are merged per query, vendor prefixes are added for
// the configured browsers, and the source map is either inlined, written
// beside the CSS, or dropped.
package styles

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	folioerrors "github.com/conneroisu/folio/internal/errors"
	"github.com/conneroisu/folio/internal/logging"
	"github.com/conneroisu/folio/internal/output"
	"github.com/conneroisu/folio/internal/stylesheet"
)

// Source map modes.
const (
	SourceMapInline = "inline"
	SourceMapFile   = "file"
	SourceMapNone   = "none"
)

// Options configures a Compiler.
type Options struct {
	SourceDir string
	OutputDir string
	// Browsers are queries such as "ie > 9" that decide which prefixes
	// are added.
	Browsers          []string
	SourceMap         string
	MergeMediaQueries bool
}

// Result describes one Compile call.
type Result struct {
	// Files maps each compiled source to the CSS file written for it.
	Files  map[string]string
	Errors []error
}

// Compiler compiles and post-processes stylesheets.
type Compiler struct {
	opts     Options
	sass     Transpiler
	prefixer *stylesheet.Prefixer
	logger   logging.Logger
}

// NewCompiler validates opts and creates a Compiler.
func NewCompiler(opts Options, sass Transpiler, logger logging.Logger) (*Compiler, error) {
	switch opts.SourceMap {
	case "":
		opts.SourceMap = SourceMapInline
	case SourceMapInline, SourceMapFile, SourceMapNone:
	default:
		return nil, folioerrors.NewValidationError(folioerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown source map mode %q", opts.SourceMap))
	}

	targets, err := stylesheet.ParseBrowsers(opts.Browsers)
	if err != nil {
		return nil, folioerrors.NewConfigError(folioerrors.ErrCodeConfigInvalid, "invalid browser list", err)
	}

	logger = logger.WithComponent("sass")
	logger.Debug(context.Background(), "prefix targets", "browsers", targets.String())

	return &Compiler{
		opts:     opts,
		sass:     sass,
		prefixer: stylesheet.NewPrefixer(targets),
		logger:   logger,
	}, nil
}

// Compile compiles every stylesheet. A file that fails is logged and
// produces no output; the returned error joins those failures.
func (c *Compiler) Compile(ctx context.Context) (*Result, error) {
	sources, err := c.sources()
	if err != nil {
		return nil, folioerrors.NewIOError(folioerrors.ErrCodeFileNotFound, "cannot list stylesheets", err).
			WithComponent("sass").
			WithFile(c.opts.SourceDir)
	}

	result := &Result{Files: make(map[string]string, len(sources))}
	collector := folioerrors.NewCollector()

	for _, rel := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		dest, err := c.compileFile(ctx, rel)
		if err != nil {
			c.logger.Error(ctx, err, "stylesheet failed", "source", rel)
			collector.Add(err)
			continue
		}
		c.logger.Debug(ctx, "stylesheet written", "source", rel, "path", dest)
		result.Files[rel] = dest
	}

	result.Errors = collector.Errors()
	return result, collector.Err()
}

// sources lists the non-partial stylesheets, relative to SourceDir.
func (c *Compiler) sources() ([]string, error) {
	var out []string
	err := filepath.WalkDir(c.opts.SourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), "_") {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".scss", ".sass":
		default:
			return nil
		}
		rel, err := filepath.Rel(c.opts.SourceDir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(out)
	return out, err
}

func (c *Compiler) compileFile(ctx context.Context, rel string) (string, error) {
	src := filepath.Join(c.opts.SourceDir, filepath.FromSlash(rel))
	fail := func(msg string, cause error) error {
		return folioerrors.NewBuildError(folioerrors.ErrCodeStylesheet, msg, cause).
			WithComponent("sass").
			WithFile(src)
	}

	wantMap := c.opts.SourceMap != SourceMapNone
	css, mapJSON, err := c.sass.Transpile(src, wantMap)
	if err != nil {
		return "", fail("cannot compile", err)
	}

	sheet, err := stylesheet.Parse(css)
	if err != nil {
		return "", fail("cannot parse compiled css", err)
	}
	if c.opts.MergeMediaQueries {
		stylesheet.MergeMediaQueries(sheet, func(e stylesheet.MergeEvent) {
			c.logger.Debug(ctx, "merged media query", "source", rel, "query", e.Query, "line", e.Line+1)
		})
	}
	c.prefixer.Apply(sheet)
	printed := stylesheet.Print(sheet)

	dest := filepath.Join(c.opts.OutputDir, strings.TrimSuffix(filepath.FromSlash(rel), filepath.Ext(rel))+".css")
	text := printed.CSS

	if wantMap && mapJSON != "" {
		comment, err := c.sourceMap(mapJSON, css, printed, dest)
		if err != nil {
			return "", fail("cannot write source map", err)
		}
		text += comment + "\n"
	}

	if err := output.WriteString(dest, text); err != nil {
		return "", err
	}
	return dest, nil
}

// sourceMap rewrites the compiler's map for the printed CSS and returns the
// sourceMappingURL comment to append. In file mode the map is written next
// to dest.
func (c *Compiler) sourceMap(mapJSON, css string, printed stylesheet.Printed, dest string) (string, error) {
	m, err := stylesheet.ParseSourceMap([]byte(mapJSON))
	if err != nil {
		return "", err
	}
	if err := m.Remap(css, printed); err != nil {
		return "", err
	}

	m.File = filepath.Base(dest)
	destDir, err := filepath.Abs(filepath.Dir(dest))
	if err != nil {
		return "", err
	}
	for i, entry := range m.Sources {
		if p, ok := sourcePath(entry); ok {
			if rel, err := filepath.Rel(destDir, p); err == nil {
				m.Sources[i] = filepath.ToSlash(rel)
			}
		}
	}

	if c.opts.SourceMap == SourceMapInline {
		return m.InlineComment()
	}

	data, err := m.JSON()
	if err != nil {
		return "", err
	}
	if err := output.WriteFile(dest+".map", data); err != nil {
		return "", err
	}
	return "/*# sourceMappingURL=" + path.Base(filepath.ToSlash(dest)) + ".map */", nil
}

// Close releases the Sass compiler.
func (c *Compiler) Close() error {
	return c.sass.Close()
}
