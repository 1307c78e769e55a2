package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()

	config, err := Load()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "config.json", config.Paths.Document)
	assert.Equal(t, "templates", config.Paths.Templates)
	assert.Equal(t, "sass", config.Paths.Sass)
	assert.Equal(t, "bundle-svgs", config.Paths.SVGs)
	assert.Equal(t, "dist", config.Paths.Dist)
	assert.Equal(t, "dist/assets/images", config.Paths.Images)

	assert.Equal(t, []string{".pug", ".html"}, config.Templates.Extensions)
	assert.Equal(t, "_", config.Templates.ExcludePrefix)
	assert.False(t, config.Templates.HideExtension)
	assert.Equal(t, 4, config.Templates.Indent)

	assert.Equal(t, []string{"ie > 9", "safari > 6"}, config.Styles.Browsers)
	assert.Equal(t, SourceMapInline, config.Styles.SourceMap)
	assert.True(t, config.Styles.MergeMediaQueries)

	assert.True(t, config.Sprites.MinifyIDs)
	assert.Equal(t, 4300, config.Server.Port)
	assert.Equal(t, "localhost:4300", config.Addr())
	assert.Equal(t, 300*time.Millisecond, config.Watch.Debounce)
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("server.port", 8080)
	v.Set("templates.hide_extension", true)
	v.Set("templates.extensions", []string{"pug"})
	v.Set("styles.source_map", "file")
	v.Set("watch.debounce", "1s")

	config, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.True(t, config.Templates.HideExtension)
	assert.Equal(t, []string{".pug"}, config.Templates.Extensions)
	assert.Equal(t, SourceMapFile, config.Styles.SourceMap)
	assert.Equal(t, time.Second, config.Watch.Debounce)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"port out of range", "server.port", 70000},
		{"port not a number", "server.port", "invalid_port"},
		{"dangerous host", "server.host", "localhost;rm"},
		{"unknown source map mode", "styles.source_map", "external"},
		{"absolute dist", "paths.dist", "/var/www"},
		{"dist traversal", "paths.dist", "../public"},
		{"empty document path", "paths.document", ""},
		{"indent too large", "templates.indent", 40},
		{"negative debounce", "watch.debounce", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			config, err := LoadFrom(v)
			assert.Error(t, err)
			assert.Nil(t, config)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".folio.yml")
	content := `
paths:
  dist: public
  css: public/css
server:
  port: 5000
templates:
  hide_extension: true
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())

	config, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "public", config.Paths.Dist)
	assert.Equal(t, 5000, config.Server.Port)
	assert.True(t, config.Templates.HideExtension)
	assert.Equal(t, "/css/", config.AssetURL(config.Paths.CSS))
}

func TestLoadWithEnvironment(t *testing.T) {
	t.Setenv("FOLIO_SERVER_PORT", "9999")

	v := viper.New()
	BindEnvironment(v)

	config, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 9999, config.Server.Port)
}

func TestAssetURL(t *testing.T) {
	config := &Config{Paths: PathsConfig{Dist: "dist"}}

	tests := []struct {
		dir      string
		expected string
	}{
		{"dist/assets/css", "/assets/css/"},
		{"dist/assets/images/", "/assets/images/"},
		{"dist", "/"},
		{"vendor/libs", "/vendor/libs/"},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			assert.Equal(t, tt.expected, config.AssetURL(tt.dir))
		})
	}
}
