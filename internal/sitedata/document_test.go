package sitedata

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	folioerrors "github.com/conneroisu/folio/internal/errors"
)

const sampleJSON = `{
  "sprite-grouping": {
    "home": ["logo", "arrow"],
    "about": ["logo"],
    "contact": []
  },
  "slugs": {
    "about": {"title": "O nas", "slug": "o-nas"}
  },
  "site": {"name": "Example"}
}`

func TestParseJSON(t *testing.T) {
	doc, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"home", "about", "contact"}, doc.Pages())
	assert.Equal(t, []string{"logo", "arrow"}, doc.Groups[0].Files)
	assert.Empty(t, doc.Groups[2].Files)

	slug, ok := doc.Slug("about")
	require.True(t, ok)
	assert.Equal(t, Slug{Title: "O nas", Slug: "o-nas"}, slug)

	_, ok = doc.Slug("home")
	assert.False(t, ok)

	site, ok := doc.Raw["site"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Example", site["name"])
	assert.Empty(t, doc.Warnings)
}

func TestParseJSONPreservesOrder(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"sprite-grouping": {"z": ["a"], "a": ["b"], "m": ["c"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, doc.Pages())
}

func TestParseJSONLegacyKey(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"svg-grouping": {"home": ["logo"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, doc.Pages())

	doc, err = ParseJSON([]byte(`{"svg-grouping": {"old": ["x"]}, "sprite-grouping": {"new": ["y"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, doc.Pages())
}

func TestParseJSONMissingFeatures(t *testing.T) {
	doc, err := ParseJSON([]byte(`{"title": "nothing else"}`))
	require.NoError(t, err)

	assert.Nil(t, doc.Groups)
	assert.Nil(t, doc.Slugs)
	assert.Empty(t, doc.Pages())
	assert.Empty(t, doc.Warnings)
}

func TestParseJSONUnusableFeatures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"grouping is a list", `{"sprite-grouping": ["home"]}`},
		{"grouping is null", `{"sprite-grouping": null}`},
		{"group is not a list", `{"sprite-grouping": {"home": "logo"}}`},
		{"slugs is a string", `{"slugs": "about"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseJSON([]byte(tt.doc))
			require.NoError(t, err)
			assert.Nil(t, doc.Groups)
			assert.Nil(t, doc.Slugs)
			assert.Len(t, doc.Warnings, 1)
		})
	}
}

func TestParseJSONSyntaxError(t *testing.T) {
	_, err := ParseJSON([]byte(`{"sprite-grouping": {`))
	assert.Error(t, err)
}

func TestParseYAML(t *testing.T) {
	doc, err := ParseYAML([]byte(`
sprite-grouping:
  home: [logo, arrow]
  about:
    - logo
slugs:
  about:
    title: O nas
    slug: o-nas
site:
  name: Example
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"home", "about"}, doc.Pages())
	assert.Equal(t, []string{"logo", "arrow"}, doc.Groups[0].Files)
	slug, ok := doc.Slug("about")
	require.True(t, ok)
	assert.Equal(t, "o-nas", slug.Slug)
	assert.Contains(t, doc.Raw, "site")
}

func TestParseYAMLEmpty(t *testing.T) {
	doc, err := ParseYAML([]byte(""))
	require.NoError(t, err)
	assert.Nil(t, doc.Groups)
	assert.NotNil(t, doc.Raw)
}

func TestLoadRereadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"sprite-grouping": {"home": ["logo"]}}`), 0o644))
	first, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, first.Pages())

	require.NoError(t, os.WriteFile(path, []byte(`{"sprite-grouping": {"home": ["logo"], "blog": ["rss"]}}`), 0o644))
	second, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "blog"}, second.Pages())
}

func TestLoadYAMLByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yml")
	require.NoError(t, os.WriteFile(path, []byte("sprite-grouping:\n  home: [logo]\n"), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, doc.Pages())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.True(t, folioerrors.IsConfigError(err))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{not json`), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.True(t, folioerrors.IsConfigError(err))
	assert.Contains(t, err.Error(), "bad.json")
}
