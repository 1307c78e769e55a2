// Package config provides the tool settings for folio using Viper, so values
// can come from a .folio.yml file, FOLIO_ environment variables, or
// command-line flags.
//
// These settings describe where things live on disk and how each pipeline
// behaves. The site document (sprite groups and slugs) is separate; see
// package sitedata.
package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Styles    StylesConfig    `mapstructure:"styles"`
	Sprites   SpritesConfig   `mapstructure:"sprites"`
	Server    ServerConfig    `mapstructure:"server"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// PathsConfig holds every input and output location, relative to the
// project root.
type PathsConfig struct {
	Document  string `mapstructure:"document"`
	Templates string `mapstructure:"templates"`
	Sass      string `mapstructure:"sass"`
	SVGs      string `mapstructure:"svgs"`
	Dist      string `mapstructure:"dist"`
	CSS       string `mapstructure:"css"`
	JS        string `mapstructure:"js"`
	Images    string `mapstructure:"images"`
	Libs      string `mapstructure:"libs"`
}

type TemplatesConfig struct {
	Extensions    []string `mapstructure:"extensions"`
	ExcludePrefix string   `mapstructure:"exclude_prefix"`
	HideExtension bool     `mapstructure:"hide_extension"`
	Indent        int      `mapstructure:"indent"`
}

type StylesConfig struct {
	Browsers          []string `mapstructure:"browsers"`
	SourceMap         string   `mapstructure:"source_map"`
	SassBinary        string   `mapstructure:"sass_binary"`
	MergeMediaQueries bool     `mapstructure:"merge_media_queries"`
}

type SpritesConfig struct {
	MinifyIDs bool `mapstructure:"minify_ids"`
	Minify    bool `mapstructure:"minify"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	LiveReload bool   `mapstructure:"live_reload"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Source map modes.
const (
	SourceMapInline = "inline"
	SourceMapFile   = "file"
	SourceMapNone   = "none"
)

// SetDefaults registers the default layout. It reproduces the fixed layout
// of a gulp-style project: templates/, sass/, bundle-svgs/, config.json
// and a dist/ tree served on port 4300.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.document", "config.json")
	v.SetDefault("paths.templates", "templates")
	v.SetDefault("paths.sass", "sass")
	v.SetDefault("paths.svgs", "bundle-svgs")
	v.SetDefault("paths.dist", "dist")
	v.SetDefault("paths.css", "dist/assets/css")
	v.SetDefault("paths.js", "dist/assets/js")
	v.SetDefault("paths.images", "dist/assets/images")
	v.SetDefault("paths.libs", "dist/assets/libs")

	v.SetDefault("templates.extensions", []string{".pug", ".html"})
	v.SetDefault("templates.exclude_prefix", "_")
	v.SetDefault("templates.hide_extension", false)
	v.SetDefault("templates.indent", 4)

	v.SetDefault("styles.browsers", []string{"ie > 9", "safari > 6"})
	v.SetDefault("styles.source_map", SourceMapInline)
	v.SetDefault("styles.sass_binary", "sass")
	v.SetDefault("styles.merge_media_queries", true)

	v.SetDefault("sprites.minify_ids", true)
	v.SetDefault("sprites.minify", true)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 4300)
	v.SetDefault("server.live_reload", true)

	v.SetDefault("watch.debounce", 300*time.Millisecond)
}

// EnvPrefix is the prefix of environment overrides, e.g. FOLIO_SERVER_PORT.
const EnvPrefix = "FOLIO"

// BindEnvironment enables FOLIO_<SECTION>_<OPTION> overrides on v.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// Load reads the global viper state into a validated Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the given viper instance into a validated Config.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Slices set through env vars arrive as a single space separated string.
	if v.IsSet("templates.extensions") && len(config.Templates.Extensions) == 0 {
		config.Templates.Extensions = v.GetStringSlice("templates.extensions")
	}
	for i, ext := range config.Templates.Extensions {
		if !strings.HasPrefix(ext, ".") {
			config.Templates.Extensions[i] = "." + ext
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Addr is the listen address of the development server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AssetURL turns an output directory into the root-relative URL prefix
// templates use to reference it, e.g. dist/assets/css -> /assets/css/.
func (c *Config) AssetURL(dir string) string {
	rel, err := filepath.Rel(c.Paths.Dist, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = dir
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "/"
	}

	return path.Clean("/"+rel) + "/"
}

// validateConfig validates configuration values for correctness
func validateConfig(config *Config) error {
	if err := validatePathsConfig(&config.Paths); err != nil {
		return fmt.Errorf("paths config: %w", err)
	}
	if err := validateTemplatesConfig(&config.Templates); err != nil {
		return fmt.Errorf("templates config: %w", err)
	}
	if err := validateStylesConfig(&config.Styles); err != nil {
		return fmt.Errorf("styles config: %w", err)
	}
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: negative debounce %s", config.Watch.Debounce)
	}

	return nil
}

func validatePathsConfig(config *PathsConfig) error {
	inputs := map[string]string{
		"document":  config.Document,
		"templates": config.Templates,
		"sass":      config.Sass,
		"svgs":      config.SVGs,
	}
	for name, p := range inputs {
		if p == "" {
			return fmt.Errorf("%s path is empty", name)
		}
	}

	outputs := map[string]string{
		"dist":   config.Dist,
		"css":    config.CSS,
		"js":     config.JS,
		"images": config.Images,
		"libs":   config.Libs,
	}
	for name, p := range outputs {
		if err := validateOutputPath(p); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	return nil
}

// validateOutputPath keeps generated files inside the project.
func validateOutputPath(p string) error {
	if p == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(p)
	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("output path should be relative: %s", p)
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path contains traversal: %s", p)
	}

	return nil
}

func validateTemplatesConfig(config *TemplatesConfig) error {
	if len(config.Extensions) == 0 {
		return fmt.Errorf("no template extensions configured")
	}
	if config.Indent < 0 || config.Indent > 16 {
		return fmt.Errorf("indent %d is not in range 0-16", config.Indent)
	}

	return nil
}

func validateStylesConfig(config *StylesConfig) error {
	switch config.SourceMap {
	case SourceMapInline, SourceMapFile, SourceMapNone:
	default:
		return fmt.Errorf("unknown source_map mode %q (want inline, file or none)", config.SourceMap)
	}
	if config.SassBinary == "" {
		return fmt.Errorf("sass_binary is empty")
	}

	return nil
}

func validateServerConfig(config *ServerConfig) error {
	// 0 lets the OS pick a port, which the tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %q", char)
			}
		}
	}

	return nil
}
