package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Config is the parsed tool configuration.
type Config struct {
	Natives  NativesConfig
	Manifest string // path to the version manifest JSON
	Options  Options
}

// NativesConfig names the directories the sync works with.
type NativesConfig struct {
	// Dir is the target extraction directory. Owned by the sync; wiped
	// and rebuilt on refresh.
	Dir string

	// CacheDir is the root under which downloaded jars are stored.
	CacheDir string

	// CustomDir, when set, points at a user-managed natives directory
	// and disables downloading and extraction entirely.
	CustomDir string
}

// Options holds sync behavior flags.
type Options struct {
	// Offline disables all network activity.
	Offline bool

	// RefreshDeps forces re-extraction regardless of marker state.
	RefreshDeps bool

	// Keyring is a GPG keyring path; when set, downloaded jars must
	// carry a valid detached signature.
	Keyring string
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	dir := filepath.Clean(c.Natives.Dir)
	cache := filepath.Clean(c.Natives.CacheDir)

	// The target directory is wiped on refresh; a cache located inside
	// it would be destroyed on every rebuild.
	if c.Natives.Dir != "" && c.Natives.CacheDir != "" {
		if cache == dir || strings.HasPrefix(cache, dir+string(filepath.Separator)) {
			return fmt.Errorf("natives.cache_dir %q must not be inside natives.dir %q", c.Natives.CacheDir, c.Natives.Dir)
		}
	}

	return nil
}
