package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/folio/internal/config"
	"github.com/conneroisu/folio/internal/logging"
)

// chdirProject writes a small project into a temp directory and makes it the
// working directory for the rest of the test.
func chdirProject(t *testing.T, files map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	// Settings read by an earlier test must not leak into this one.
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

const logoSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><path id="p" d="M0 0h10v10z"/></svg>`

func TestGenerateSVGCommand(t *testing.T) {
	chdirProject(t, map[string]string{
		"config.json":          `{"sprite-grouping": {"home": ["logo"]}}`,
		"bundle-svgs/logo.svg": logoSVG,
	})

	out := execute(t, "generate-svg", "--log-level", "error")

	assert.Contains(t, out, "sprites: 1 file(s)")
	assert.FileExists(t, filepath.Join("dist", "assets", "images", "home.svg"))
	assert.NoFileExists(t, filepath.Join("dist", "index.html"))
}

func TestTemplatesCommand(t *testing.T) {
	chdirProject(t, map[string]string{
		"config.json":           `{"slugs": {"about": {"title": "About us", "slug": "o-nas"}}}`,
		".folio.yml":            "templates:\n  hide_extension: true\n",
		"templates/index.html":  `<html><body><h1>{{.title}}</h1></body></html>`,
		"templates/about.html":  `<html><body><h1>{{.title}}</h1>{{template "_footer.html" .}}</body></html>`,
		"templates/_footer.html": `<footer>{{.css_path}}</footer>`,
	})

	out := execute(t, "templates", "--log-level", "error")
	assert.Contains(t, out, "templates: 2 file(s)")

	index, err := os.ReadFile(filepath.Join("dist", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "<h1>Index</h1>")

	about, err := os.ReadFile(filepath.Join("dist", "o-nas", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(about), "<h1>About us</h1>")
	assert.Contains(t, string(about), "<footer>/assets/css/</footer>")

	assert.NoFileExists(t, filepath.Join("dist", "_footer.html"))
}

func TestBuildFailuresDoNotFailTheCommand(t *testing.T) {
	chdirProject(t, map[string]string{
		"config.json":          `{"sprite-grouping": {"home": ["missing"]}}`,
		"templates/index.html": `{{.broken`,
	})

	out := execute(t, "run", "--log-level", "error")
	assert.Contains(t, out, "error(s)")
	assert.Contains(t, out, "missing")
}

func TestInvalidSettingsFail(t *testing.T) {
	chdirProject(t, map[string]string{
		".folio.yml": "styles:\n  source_map: sometimes\n",
	})

	rootCmd.SetArgs([]string{"sass"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_map")
}

func TestLevelValue(t *testing.T) {
	var l levelValue
	require.NoError(t, l.Set("debug"))
	assert.Equal(t, "debug", l.String())
	assert.Equal(t, levelValue(logging.LevelDebug), l)
	assert.Error(t, l.Set("chatty"))
	assert.Equal(t, "level", l.Type())
}

func TestFlagValidation(t *testing.T) {
	assert.NoError(t, ValidatePort("4300"))
	assert.Error(t, ValidatePort("0"))
	assert.Error(t, ValidatePort("70000"))
	assert.Error(t, ValidatePort("http"))

	assert.NoError(t, ValidateLogFormat("JSON"))
	assert.Error(t, ValidateLogFormat("xml"))

	c := &cobra.Command{Use: "x"}
	addServerFlags(c)
	assert.Error(t, c.Flags().Set("port", "99999"))
	require.NoError(t, c.Flags().Set("port", "8080"))
	require.NoError(t, c.Flags().Set("host", "0.0.0.0"))

	cfg := &config.Config{Server: config.ServerConfig{Host: "localhost", Port: 4300}}
	applyServerFlags(c, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestUnchangedServerFlagsKeepSettings(t *testing.T) {
	c := &cobra.Command{Use: "x"}
	addServerFlags(c)

	cfg := &config.Config{Server: config.ServerConfig{Host: "example.test", Port: 9000}}
	applyServerFlags(c, cfg)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "example.test", cfg.Server.Host)
}
