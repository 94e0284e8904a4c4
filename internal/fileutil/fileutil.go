// Package fileutil handles file writes for the export commands: markdown
// notes, JSON exports, and page snapshots.
package fileutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var filenameSanitizer = strings.NewReplacer(":", " -", "/", "-", "\\", "-")

// SanitizeFilename replaces characters that are unsafe in note filenames.
func SanitizeFilename(name string) string {
	return filenameSanitizer.Replace(name)
}

// GetMarkdownFilePath returns the note path for a name, sanitized.
func GetMarkdownFilePath(name string, directory string) string {
	return filepath.Join(directory, SanitizeFilename(name)+".md")
}

// FileExists reports whether path is an existing regular file.
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	return err == nil && !info.IsDir()
}

// WriteFileWithOverwrite writes data to a file, creating parent directories
// as needed. An existing file is left alone unless overwrite is set; the
// bool result reports whether the file was written.
func WriteFileWithOverwrite(filePath string, data []byte, perm os.FileMode, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return false, err
	}

	if err := os.WriteFile(filePath, data, perm); err != nil {
		return false, err
	}

	return true, nil
}

// LogFileWriteResult logs whether a file was written or skipped.
func LogFileWriteResult(written bool, filePath string) {
	if written {
		slog.Info("Wrote file", "path", filePath)
	} else {
		slog.Info("File already exists, skipping", "path", filePath)
	}
}

// WriteJSONFile writes data to filePath as indented JSON, respecting the
// overwrite flag. The bool result reports whether the file was written.
func WriteJSONFile(data any, filePath string, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		slog.Info("JSON export already exists, skipping", "path", filePath)
		return false, nil
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode JSON: %w", err)
	}

	slog.Info("Writing JSON export", "path", filePath)
	written, err := WriteFileWithOverwrite(filePath, encoded, 0o644, overwrite)
	if err != nil {
		return false, fmt.Errorf("failed to write JSON export: %w", err)
	}
	return written, nil
}
