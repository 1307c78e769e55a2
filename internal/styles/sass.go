package styles

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bep/godartsass/v2"

	"github.com/conneroisu/folio/internal/logging"
)

// Transpiler compiles one Sass file to CSS.
type Transpiler interface {
	// Transpile returns the expanded CSS of the file at path and, when
	// sourceMap is set, its JSON source map.
	Transpile(path string, sourceMap bool) (css string, sourceMapJSON string, err error)
	Close() error
}

// DartSass runs the Dart Sass embedded compiler. The sass process is started
// on first use and kept for later builds.
type DartSass struct {
	binary string
	logger logging.Logger

	once  sync.Once
	err   error
	mu    sync.Mutex
	trans *godartsass.Transpiler
}

// NewDartSass creates a Transpiler backed by the given sass executable.
func NewDartSass(binary string, logger logging.Logger) *DartSass {
	return &DartSass{binary: binary, logger: logger.WithComponent("sass")}
}

func (d *DartSass) start() (*godartsass.Transpiler, error) {
	d.once.Do(func() {
		d.trans, d.err = godartsass.Start(godartsass.Options{
			DartSassEmbeddedFilename: d.binary,
			LogEventHandler: func(e godartsass.LogEvent) {
				ctx := context.Background()
				switch e.Type {
				case godartsass.LogEventTypeDebug:
					d.logger.Debug(ctx, e.Message)
				default:
					d.logger.Warn(ctx, nil, e.Message)
				}
			},
		})
		if d.err != nil {
			d.err = fmt.Errorf("start %s: %w", d.binary, d.err)
		}
	})
	return d.trans, d.err
}

// Transpile implements Transpiler.
func (d *DartSass) Transpile(path string, sourceMap bool) (string, string, error) {
	t, err := d.start()
	if err != nil {
		return "", "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}

	syntax := godartsass.SourceSyntaxSCSS
	if strings.EqualFold(filepath.Ext(path), ".sass") {
		syntax = godartsass.SourceSyntaxSASS
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := t.Execute(godartsass.Args{
		Source:                  string(data),
		URL:                     fileURL(abs),
		OutputStyle:             godartsass.OutputStyleExpanded,
		SourceSyntax:            syntax,
		IncludePaths:            []string{filepath.Dir(abs)},
		EnableSourceMap:         sourceMap,
		SourceMapIncludeSources: sourceMap,
	})
	if err != nil {
		return "", "", err
	}
	return res.CSS, res.SourceMap, nil
}

// Close stops the sass process if it was started.
func (d *DartSass) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.trans == nil {
		return nil
	}
	return d.trans.Close()
}

func fileURL(abs string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// sourcePath turns a source map entry back into a file path. Entries that
// are not file URLs are returned unchanged with ok false.
func sourcePath(entry string) (string, bool) {
	u, err := url.Parse(entry)
	if err != nil || u.Scheme != "file" {
		return entry, false
	}
	return filepath.FromSlash(u.Path), true
}
