// Package version reports which folio build is running.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// These variables are set at build time using -ldflags
var (
	// Version is the semantic version of the application
	Version = "dev"

	// GitCommit is the git commit hash when the binary was built
	GitCommit = "unknown"
)

// GetVersion returns the application version, falling back to the module
// version recorded by the Go toolchain.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			return info.Main.Version
		}
	}

	return "dev"
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				return setting.Value
			}
		}
	}

	return "unknown"
}

// GetShortVersion returns a short version string suitable for display
func GetShortVersion() string {
	return shortVersion(GetVersion(), GetGitCommit())
}

func shortVersion(version, commit string) string {
	if commit == "unknown" || len(commit) < 7 {
		return version
	}
	if version != "dev" {
		return fmt.Sprintf("%s (%s)", version, commit[:7])
	}
	return "dev-" + commit[:7]
}

// GetDetailedVersion is the multi-line form printed by folio --version.
func GetDetailedVersion() string {
	parts := []string{"folio " + GetShortVersion()}
	if commit := GetGitCommit(); commit != "unknown" {
		parts = append(parts, "Commit: "+commit)
	}
	parts = append(parts,
		"Go: "+runtime.Version(),
		fmt.Sprintf("Platform: %s/%s", runtime.GOOS, runtime.GOARCH),
	)

	return strings.Join(parts, "\n")
}
