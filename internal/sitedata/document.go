// Package sitedata loads the site document: the JSON (or YAML) file that
// groups SVG icons into per-page sprites and maps template names to URL
// slugs. The document is re-read from disk on every call so edits are picked
// up by the next build without restarting the process.
package sitedata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	folioerrors "github.com/conneroisu/folio/internal/errors"
)

// Top-level keys understood by the build. Everything else in the document is
// still handed to templates through Raw.
const (
	GroupingKey       = "sprite-grouping"
	LegacyGroupingKey = "svg-grouping"
	SlugsKey          = "slugs"
)

// Slug is the URL metadata of one template.
type Slug struct {
	Title string `json:"title" yaml:"title"`
	Slug  string `json:"slug" yaml:"slug"`
}

// Group is one sprite: the page name and the SVG base names merged into it,
// in document order.
type Group struct {
	Page  string
	Files []string
}

// Document is a parsed site document.
type Document struct {
	// Groups is nil when the document has no grouping feature.
	Groups []Group
	// Slugs is nil when the document has no slugs feature.
	Slugs map[string]Slug
	// Raw is the whole document, exposed to templates as-is.
	Raw map[string]any
	// Warnings lists feature keys that were present but unusable and were
	// therefore treated as absent.
	Warnings []string
}

// Empty returns a document with every feature disabled.
func Empty() *Document {
	return &Document{Raw: map[string]any{}}
}

// Pages returns the page names of all groups in document order.
func (d *Document) Pages() []string {
	pages := make([]string, 0, len(d.Groups))
	for _, g := range d.Groups {
		pages = append(pages, g.Page)
	}
	return pages
}

// Slug looks up the slug metadata of a template base name.
func (d *Document) Slug(base string) (Slug, bool) {
	if d == nil || d.Slugs == nil {
		return Slug{}, false
	}
	s, ok := d.Slugs[base]
	return s, ok
}

// Load reads and parses the document at path. YAML is used for .yaml and
// .yml files, JSON for everything else.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, folioerrors.NewConfigError(folioerrors.ErrCodeConfigRead, "cannot read site document", err).
			WithFile(path)
	}

	var doc *Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = ParseYAML(data)
	default:
		doc, err = ParseJSON(data)
	}
	if err != nil {
		return nil, folioerrors.NewConfigError(folioerrors.ErrCodeConfigInvalid, "cannot parse site document", err).
			WithFile(path)
	}

	return doc, nil
}

// ParseJSON parses a JSON site document. Object key order of the grouping
// feature is preserved.
func ParseJSON(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}

	doc := Empty()
	if err := json.Unmarshal(data, &doc.Raw); err != nil {
		return nil, err
	}

	if raw, key, ok := groupingJSON(top); ok {
		groups, err := decodeGroupsJSON(raw)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s ignored: %v", key, err))
		} else {
			doc.Groups = groups
		}
	}

	if raw, ok := top[SlugsKey]; ok {
		var slugs map[string]Slug
		if err := json.Unmarshal(raw, &slugs); err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s ignored: %v", SlugsKey, err))
		} else {
			doc.Slugs = slugs
		}
	}

	return doc, nil
}

func groupingJSON(top map[string]json.RawMessage) (json.RawMessage, string, bool) {
	if raw, ok := top[GroupingKey]; ok {
		return raw, GroupingKey, true
	}
	if raw, ok := top[LegacyGroupingKey]; ok {
		return raw, LegacyGroupingKey, true
	}
	return nil, "", false
}

func decodeGroupsJSON(raw json.RawMessage) ([]Group, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("value is null")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object of page names")
	}

	groups := []Group{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		page, _ := tok.(string)

		var files []string
		if err := dec.Decode(&files); err != nil {
			return nil, fmt.Errorf("page %q: %w", page, err)
		}
		groups = addGroup(groups, Group{Page: page, Files: files})
	}

	return groups, nil
}

// ParseYAML parses a YAML site document. Mapping order of the grouping
// feature is preserved.
func ParseYAML(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	doc := Empty()
	if len(root.Content) == 0 {
		return doc, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("site document must be a mapping")
	}
	if err := top.Decode(&doc.Raw); err != nil {
		return nil, err
	}

	var grouping, legacy *yaml.Node
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		switch key.Value {
		case GroupingKey:
			grouping = value
		case LegacyGroupingKey:
			legacy = value
		case SlugsKey:
			var slugs map[string]Slug
			if err := value.Decode(&slugs); err != nil {
				doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s ignored: %v", SlugsKey, err))
				continue
			}
			doc.Slugs = slugs
		}
	}

	key := GroupingKey
	if grouping == nil {
		grouping, key = legacy, LegacyGroupingKey
	}
	if grouping != nil {
		groups, err := decodeGroupsYAML(grouping)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s ignored: %v", key, err))
		} else {
			doc.Groups = groups
		}
	}

	return doc, nil
}

func decodeGroupsYAML(node *yaml.Node) ([]Group, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping of page names")
	}

	groups := []Group{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		page := node.Content[i].Value
		var files []string
		if err := node.Content[i+1].Decode(&files); err != nil {
			return nil, fmt.Errorf("page %q: %w", page, err)
		}
		groups = addGroup(groups, Group{Page: page, Files: files})
	}

	return groups, nil
}

// addGroup appends g, replacing an earlier group with the same page name the
// way a repeated object key overrides the previous one.
func addGroup(groups []Group, g Group) []Group {
	for i := range groups {
		if groups[i].Page == g.Page {
			groups[i] = g
			return groups
		}
	}
	return append(groups, g)
}
