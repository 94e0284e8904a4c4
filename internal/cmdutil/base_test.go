package cmdutil

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func setOutputRoots(t *testing.T) string {
	t.Helper()
	t.Cleanup(viper.Reset)

	root := t.TempDir()
	viper.Set("markdownoutputdir", filepath.Join(root, "markdown"))
	viper.Set("jsonoutputdir", filepath.Join(root, "json"))
	return root
}

func TestSetupOutputDirDefaultsToConfigKey(t *testing.T) {
	root := setOutputRoots(t)

	cfg := &BaseCommandConfig{ConfigKey: "fda", WriteJSON: true}
	require.NoError(t, SetupOutputDir(cfg))

	require.Equal(t, filepath.Join(root, "markdown", "fda"), cfg.OutputDir)
	require.Equal(t, filepath.Join(root, "json", "fda.json"), cfg.JSONOutput)
	require.DirExists(t, cfg.OutputDir)
	require.DirExists(t, filepath.Dir(cfg.JSONOutput))
}

func TestSetupOutputDirPrefersExplicitSubdir(t *testing.T) {
	root := setOutputRoots(t)

	cfg := &BaseCommandConfig{OutputDir: "custom", ConfigKey: "fda"}
	require.NoError(t, SetupOutputDir(cfg))

	require.Equal(t, filepath.Join(root, "markdown", "custom"), cfg.OutputDir)
	require.DirExists(t, cfg.OutputDir)
	require.Empty(t, cfg.JSONOutput)
}

func TestSetupOutputDirReadsConfiguredSubdir(t *testing.T) {
	root := setOutputRoots(t)
	viper.Set("fda.output", "recalls")

	cfg := &BaseCommandConfig{ConfigKey: "fda"}
	require.NoError(t, SetupOutputDir(cfg))

	require.Equal(t, filepath.Join(root, "markdown", "recalls"), cfg.OutputDir)
	require.DirExists(t, cfg.OutputDir)
}
