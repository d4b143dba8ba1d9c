// Package config provides configuration types and defaults for relcomp.
package config

import (
	"os"
	"path/filepath"
)

// DefaultReleasesRepo is cloned when no local releases dir is configured
// and no previous clone exists.
const DefaultReleasesRepo = "https://github.com/relware/releases"

// Config holds all configuration options for relcomp.
type Config struct {
	// ReleasesDir is the path to a local clone of the releases repo. When
	// empty, ReleasesRepo is cloned into the state dir on first use.
	ReleasesDir string `mapstructure:"releases_dir"`

	// ReleasesRepo is the repository cloned when ReleasesDir is not set.
	ReleasesRepo string `mapstructure:"releases_repo"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"debug"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		ReleasesRepo: DefaultReleasesRepo,
	}
}

// StateDir returns the directory used for the managed clone of the
// releases repo.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".relcomp"
	}
	return filepath.Join(home, ".relcomp", "releases")
}
