package fda

import (
	"log/slog"

	"github.com/lepinkainen/demeter/internal/fileutil"
	"github.com/lepinkainen/demeter/internal/unpack"
)

func writeCollectionToJSONIfEnabled(coll *unpack.Collection, writeJSON bool, jsonOutput string) {
	if !writeJSON {
		return
	}

	if err := writeCollectionToJSON(coll, jsonOutput); err != nil {
		slog.Error("Error writing tables to JSON", "error", err)
	}
}

// writeCollectionToJSON writes the collection back out in the scraped
// export shape, so a filtered import can itself be imported again.
func writeCollectionToJSON(coll *unpack.Collection, path string) error {
	records := collectionRecords(coll)
	written, err := fileutil.WriteJSONFile(records, path, true)
	if err != nil {
		return err
	}
	if written {
		slog.Info("Wrote JSON export", "path", path, "tables", len(records))
	}
	return nil
}

// collectionRecords converts the collection back into export records. Cell
// values render to strings; columns a row never had are left out.
func collectionRecords(coll *unpack.Collection) []TableRecord {
	records := make([]TableRecord, 0, coll.NumEntries())
	for _, table := range coll.Tables() {
		data := make([]map[string]string, 0, table.RowCount())
		for _, row := range table.Rows() {
			out := make(map[string]string, len(row))
			for _, col := range table.Columns() {
				if row[col] == nil {
					continue
				}
				out[col] = cellString(row[col])
			}
			data = append(data, out)
		}
		records = append(records, TableRecord{TableName: table.Name(), Data: data})
	}
	return records
}
