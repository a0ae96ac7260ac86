package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvHome overrides the root directory for natives and the jar cache.
	EnvHome = "LOOM_HOME"

	// DefaultHomeDirName is the per-user root directory name.
	DefaultHomeDirName = ".loom"

	// NativesDirName is the extraction directory name under the home root.
	NativesDirName = "natives"

	// JarStoreDirName is the jar cache directory name under the home root.
	JarStoreDirName = "jars"

	// DefaultConfigName is the configuration file looked up in the
	// working directory when no -config flag is given.
	DefaultConfigName = "loom.lua"
)

// Home returns the root directory for tool state: $LOOM_HOME if set,
// otherwise ~/.loom.
func Home() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userHome, DefaultHomeDirName), nil
}

// ApplyDefaults fills unset directories from the home root.
func (c *Config) ApplyDefaults() error {
	if c.Natives.Dir != "" && c.Natives.CacheDir != "" {
		return nil
	}

	home, err := Home()
	if err != nil {
		return err
	}

	if c.Natives.Dir == "" {
		c.Natives.Dir = filepath.Join(home, NativesDirName)
	}
	if c.Natives.CacheDir == "" {
		c.Natives.CacheDir = filepath.Join(home, JarStoreDirName)
	}

	return nil
}
