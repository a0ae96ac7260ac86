// Package testutil provides utilities for testing the tool in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SetupTestEnv points the tool's home directory at an isolated temp
// location so tests never touch the user's real natives or jar cache.
// Cleanup is handled by t.TempDir() and t.Setenv().
func SetupTestEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	home := filepath.Join(tmpDir, "loom-home")

	t.Setenv("LOOM_HOME", home)

	// Keep CI detection deterministic regardless of the host environment
	t.Setenv("LOOM_CI", "false")

	if err := os.MkdirAll(home, 0o750); err != nil {
		t.Fatalf("failed to create test home directory %s: %v", home, err)
	}

	return home
}
