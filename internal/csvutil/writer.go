package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// WriteOptions configures CSV export behavior.
type WriteOptions struct {
	// Overwrite controls whether an existing file is replaced.
	Overwrite bool
}

// WriteCSV writes a header row followed by data rows to filename, creating
// parent directories as needed. Returns whether a file was written; an
// existing file is left untouched unless Overwrite is set.
func WriteCSV(filename string, header []string, rows [][]string, opts WriteOptions) (bool, error) {
	if _, err := os.Stat(filename); err == nil && !opts.Overwrite {
		slog.Info("File already exists, skipping", "file", filename)
		return false, nil
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	csvFile, err := os.Create(filename)
	if err != nil {
		return false, fmt.Errorf("failed to create CSV file: %w", err)
	}

	writer := csv.NewWriter(csvFile)
	writeErr := writer.Write(header)
	if writeErr == nil {
		writeErr = writer.WriteAll(rows)
	}
	if writeErr != nil {
		closeErr := csvFile.Close()
		return false, errors.Join(fmt.Errorf("failed to write CSV file: %w", writeErr), closeErr)
	}

	if err := csvFile.Close(); err != nil {
		return false, fmt.Errorf("failed to close CSV file: %w", err)
	}

	return true, nil
}
