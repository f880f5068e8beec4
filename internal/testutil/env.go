// Package testutil provides utilities for testing pgp-cp in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Root    string // temp root, auto-cleaned
	Home    string // $HOME for the test
	GPGHome string // keyring home, created empty
	Quar    string // quarantine path, NOT created
	Work    string // scratch directory for inputs and outputs
}

// SetupTestEnv creates isolated test directories for each test.
// This ensures tests never touch the user's real keyring or home
// quarantine directory.
//
// The cleanup function is automatically handled by t.TempDir(),
// so callers don't need to manually clean up.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Root:    tmpDir,
		Home:    filepath.Join(tmpDir, "home"),
		GPGHome: filepath.Join(tmpDir, "home", ".gnupg"),
		Quar:    filepath.Join(tmpDir, "home", "pgp-cp_quar"),
		Work:    filepath.Join(tmpDir, "work"),
	}

	// Point every path default at the temp location
	t.Setenv("HOME", env.Home)
	t.Setenv("GNUPGHOME", env.GPGHome)

	for _, dir := range []string{env.Home, env.Work} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	if err := os.MkdirAll(env.GPGHome, 0o700); err != nil {
		t.Fatalf("failed to create keyring home %s: %v", env.GPGHome, err)
	}

	return env
}

// WriteFile writes content below the work directory and returns its path.
func (e *Env) WriteFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(e.Work, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
