// Package testutil provides common test utilities for the demeter project.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestEnv is a sandboxed directory for a single test. Every path handed out
// is validated to stay inside the sandbox, and the directory is removed when
// the test completes.
type TestEnv struct {
	t       *testing.T
	rootDir string
}

// NewTestEnv creates a sandboxed test environment rooted in t.TempDir().
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return &TestEnv{t: t, rootDir: t.TempDir()}
}

// RootDir returns the sandbox root.
func (e *TestEnv) RootDir() string {
	return e.rootDir
}

// Path joins elem into an absolute path inside the sandbox. The test fails
// if the resulting path escapes it.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	abs := filepath.Clean(filepath.Join(e.rootDir, filepath.Join(elem...)))
	if !e.isWithinSandbox(abs) {
		e.t.Fatalf("path %q escapes the sandbox %q", abs, e.rootDir)
	}
	return abs
}

func (e *TestEnv) isWithinSandbox(path string) bool {
	root := filepath.Clean(e.rootDir)
	path = filepath.Clean(path)
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}

// WriteFile writes content to a file inside the sandbox, creating parent
// directories as needed.
func (e *TestEnv) WriteFile(path string, content []byte) {
	e.t.Helper()

	abs := e.Path(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		e.t.Fatalf("failed to create directory for %q: %v", abs, err)
	}
	if err := os.WriteFile(abs, content, 0o644); err != nil {
		e.t.Fatalf("failed to write %q: %v", abs, err)
	}
}

// WriteFileString writes a string to a file inside the sandbox.
func (e *TestEnv) WriteFileString(path, content string) {
	e.t.Helper()
	e.WriteFile(path, []byte(content))
}

// ReadFile reads a file from inside the sandbox.
func (e *TestEnv) ReadFile(path string) []byte {
	e.t.Helper()

	data, err := os.ReadFile(e.Path(path))
	if err != nil {
		e.t.Fatalf("failed to read %q: %v", path, err)
	}
	return data
}

// ReadFileString reads a file from inside the sandbox as a string.
func (e *TestEnv) ReadFileString(path string) string {
	e.t.Helper()
	return string(e.ReadFile(path))
}

// Remove removes a file or empty directory inside the sandbox.
func (e *TestEnv) Remove(path string) {
	e.t.Helper()

	if err := os.Remove(e.Path(path)); err != nil {
		e.t.Fatalf("failed to remove %q: %v", path, err)
	}
}

// FileExists reports whether a file exists inside the sandbox.
func (e *TestEnv) FileExists(path string) bool {
	e.t.Helper()

	_, err := os.Stat(e.Path(path))
	return err == nil
}

// RequireFileExists fails the test when the file is missing.
func (e *TestEnv) RequireFileExists(path string) {
	e.t.Helper()

	if !e.FileExists(path) {
		e.t.Fatalf("expected %q to exist", e.Path(path))
	}
}

// RequireFileNotExists fails the test when the file is present.
func (e *TestEnv) RequireFileNotExists(path string) {
	e.t.Helper()

	if e.FileExists(path) {
		e.t.Fatalf("expected %q not to exist", e.Path(path))
	}
}

// AssertFileContains checks that a file contains the expected substring.
func (e *TestEnv) AssertFileContains(path, expected string) {
	e.t.Helper()

	content := e.ReadFileString(path)
	if !strings.Contains(content, expected) {
		e.t.Errorf("file %q does not contain %q", path, expected)
	}
}

// AssertFileEquals checks that a file exactly matches the expected content.
func (e *TestEnv) AssertFileEquals(path, expected string) {
	e.t.Helper()

	content := e.ReadFileString(path)
	if content != expected {
		e.t.Errorf("content mismatch in %q:\ngot:\n%s\nwant:\n%s", path, content, expected)
	}
}
