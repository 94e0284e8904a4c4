// Package cmdutil holds helpers shared by the import commands.
package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// BaseCommandConfig carries the output settings shared by import commands.
// SetupOutputDir fills in the resolved paths.
type BaseCommandConfig struct {
	OutputDir  string
	ConfigKey  string
	JSONOutput string
	WriteJSON  bool
	Overwrite  bool
}

// SetupOutputDir resolves the markdown output directory and, when JSON
// output is requested, the JSON export path, creating both directories.
// The subdirectory under the markdown root comes from the explicit
// OutputDir, then <configkey>.output, then the config key itself.
func SetupOutputDir(cfg *BaseCommandConfig) error {
	subDir := cfg.OutputDir
	if subDir == "" {
		subDir = viper.GetString(cfg.ConfigKey + ".output")
	}
	if subDir == "" && cfg.ConfigKey != "" {
		subDir = cfg.ConfigKey
	}

	baseDir := viper.GetString("markdownoutputdir")
	if baseDir == "" {
		baseDir = "markdown"
	}
	cfg.OutputDir = filepath.Clean(filepath.Join(baseDir, subDir))

	if cfg.WriteJSON && cfg.JSONOutput == "" {
		jsonBaseDir := viper.GetString("jsonoutputdir")
		if jsonBaseDir == "" {
			jsonBaseDir = "json"
		}
		cfg.JSONOutput = filepath.Clean(filepath.Join(jsonBaseDir, cfg.ConfigKey+".json"))
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if cfg.WriteJSON {
		if err := os.MkdirAll(filepath.Dir(cfg.JSONOutput), 0755); err != nil {
			return fmt.Errorf("failed to create JSON output directory: %w", err)
		}
	}

	return nil
}
