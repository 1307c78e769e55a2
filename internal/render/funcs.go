package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (r *Renderer) funcMap(opts Options) template.FuncMap {
	return template.FuncMap{
		"readFile": func(name string) (string, error) {
			return readFile(opts.Root, name)
		},
		"markdown": r.renderMarkdown,
		"sprite": func(page string) string {
			return path.Join(opts.Assets.Images, page+".svg")
		},
		"titleCase": titleCase,
	}
}

// readFile returns the contents of name, which must stay inside root.
func readFile(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("readFile: %q is outside the project", name)
	}

	data, err := os.ReadFile(filepath.Join(root, clean))
	if err != nil {
		return "", fmt.Errorf("readFile: %w", err)
	}
	return string(data), nil
}

// renderMarkdown converts Markdown to HTML. A leading front matter block is
// dropped.
func (r *Renderer) renderMarkdown(source string) (template.HTML, error) {
	var meta map[string]any
	body, err := frontmatter.Parse(strings.NewReader(source), &meta)
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}

	var buf bytes.Buffer
	if err := r.markdown.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // authored content
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
