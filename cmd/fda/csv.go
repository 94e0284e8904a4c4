package fda

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/lepinkainen/demeter/internal/csvutil"
	"github.com/lepinkainen/demeter/internal/fileutil"
	"github.com/lepinkainen/demeter/internal/unpack"
)

// writeCollectionToCSV writes one CSV file per table under the CSV output
// directory. A failed table costs only its own file.
func writeCollectionToCSV(coll *unpack.Collection, overwrite bool) error {
	csvDir := viper.GetString("csvoutputdir")
	if csvDir == "" {
		csvDir = "csv"
	}

	written := 0
	failed := 0
	for _, table := range coll.Tables() {
		filename := filepath.Join(csvDir, fileutil.SanitizeFilename(table.Name())+".csv")

		headers := table.Columns()
		rows := make([][]string, 0, table.RowCount())
		for _, row := range table.Rows() {
			cells := make([]string, len(headers))
			for i, col := range headers {
				cells[i] = cellString(row[col])
			}
			rows = append(rows, cells)
		}

		ok, err := csvutil.WriteCSV(filename, headers, rows, csvutil.WriteOptions{Overwrite: overwrite})
		if err != nil {
			slog.Error("Failed to write CSV file", "table", table.Name(), "error", err)
			failed++
			continue
		}
		if ok {
			written++
		}
	}

	slog.Info("Wrote CSV exports", "directory", csvDir, "files", written, "tables", coll.NumEntries())
	if failed > 0 {
		return fmt.Errorf("%d of %d tables failed to export", failed, coll.NumEntries())
	}
	return nil
}
