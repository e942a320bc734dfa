package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Version variables injected at build time via ldflags
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the short git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns a formatted version string with all build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile fills build info still at its defaults from a
// .version file (BOLSA_VERSION=, BOLSA_BUILD=, BOLSA_COMMIT=) next to the
// binary.
func LoadVersionFromFile() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	loadVersionFile(filepath.Join(filepath.Dir(exe), ".version"))
}

func loadVersionFile(path string) {
	values, err := godotenv.Read(path)
	if err != nil {
		return
	}
	if v := values["BOLSA_VERSION"]; v != "" && Version == "dev" {
		Version = v
	}
	if v := values["BOLSA_BUILD"]; v != "" && Build == "unknown" {
		Build = v
	}
	if v := values["BOLSA_COMMIT"]; v != "" && GitCommit == "unknown" {
		GitCommit = v
	}
}
