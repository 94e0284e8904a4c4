package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenHelper compares generated content against golden files. Setting the
// UPDATE_GOLDEN environment variable to "true" rewrites the golden files
// instead of comparing.
type GoldenHelper struct {
	t      *testing.T
	dir    string
	update bool
}

// NewGoldenHelper creates a golden file helper rooted at goldenDir.
func NewGoldenHelper(t *testing.T, goldenDir string) *GoldenHelper {
	t.Helper()

	return &GoldenHelper{
		t:      t,
		dir:    goldenDir,
		update: os.Getenv("UPDATE_GOLDEN") == "true",
	}
}

// GoldenPath returns the full path to a golden file.
func (g *GoldenHelper) GoldenPath(name string) string {
	return filepath.Join(g.dir, name)
}

// AssertGolden compares actual content with the named golden file, or
// rewrites the golden file in update mode.
func (g *GoldenHelper) AssertGolden(name string, actual []byte) {
	g.t.Helper()

	path := g.GoldenPath(name)
	if g.update {
		g.writeGolden(path, actual)
		return
	}

	want, err := os.ReadFile(path)
	require.NoError(g.t, err, "failed to read golden file %s", path)

	assert.Equal(g.t, string(want), string(actual),
		"content does not match golden file %s", name)
}

// AssertGoldenString is a convenience method for string content.
func (g *GoldenHelper) AssertGoldenString(name, actual string) {
	g.t.Helper()
	g.AssertGolden(name, []byte(actual))
}

func (g *GoldenHelper) writeGolden(path string, content []byte) {
	g.t.Helper()

	require.NoError(g.t, os.MkdirAll(filepath.Dir(path), 0o755),
		"failed to create golden file directory")
	require.NoError(g.t, os.WriteFile(path, content, 0o644),
		"failed to update golden file")

	g.t.Logf("Updated golden file: %s", path)
}
