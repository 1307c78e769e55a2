//go:build property
// +build property

package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestServerConfigProperties tests server configuration properties
func TestServerConfigProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("port validation", prop.ForAll(
		func(port int) bool {
			err := validateServerConfig(&ServerConfig{Port: port, Host: "localhost"})
			if port >= 0 && port <= 65535 {
				return err == nil
			}
			return err != nil
		},
		gen.IntRange(-1000, 70000),
	))

	properties.Property("hosts with shell characters are rejected", prop.ForAll(
		func(host string, bad string) bool {
			err := validateServerConfig(&ServerConfig{Port: 4300, Host: host + bad})
			return err != nil
		},
		gen.RegexMatch(`^[a-z0-9.-]{1,20}$`),
		gen.OneConstOf(";", "&", "|", "$", "`", "<", ">"),
	))

	properties.TestingRun(t)
}

// TestOutputPathProperties tests that generated files stay in the project
func TestOutputPathProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("relative paths without traversal are accepted", prop.ForAll(
		func(segments []string) bool {
			p := filepath.Join(append([]string{"dist"}, segments...)...)
			return validateOutputPath(p) == nil
		},
		gen.SliceOfN(3, gen.RegexMatch(`^[a-z][a-z0-9_-]{0,8}$`)),
	))

	properties.Property("escaping the project is rejected", prop.ForAll(
		func(segment string) bool {
			up := validateOutputPath(filepath.Join("..", segment)) != nil
			abs := validateOutputPath(string(filepath.Separator)+segment) != nil
			return up && abs
		},
		gen.RegexMatch(`^[a-z]{1,8}$`),
	))

	properties.Property("asset URLs are rooted and end in a slash", prop.ForAll(
		func(segments []string) bool {
			cfg := &Config{Paths: PathsConfig{Dist: "dist"}}
			url := cfg.AssetURL(filepath.Join(append([]string{"dist"}, segments...)...))
			return strings.HasPrefix(url, "/") && strings.HasSuffix(url, "/") && !strings.Contains(url, "dist")
		},
		gen.SliceOfN(2, gen.RegexMatch(`^[a-c]{1,4}$`)),
	))

	properties.TestingRun(t)
}
