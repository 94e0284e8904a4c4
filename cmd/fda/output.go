package fda

import (
	"github.com/lepinkainen/demeter/internal/cmdutil"
)

const fdaImportsSchema = `CREATE TABLE IF NOT EXISTS fda_imports (
		id INTEGER PRIMARY KEY,
		source TEXT,
		tables INTEGER,
		total_rows INTEGER,
		total_columns INTEGER,
		notes_written INTEGER,
		snapshots_embedded INTEGER,
		skipped_tables TEXT,
		imported_at TEXT
	)`

func writeImportSummaryToDatasetteIfEnabled(summary ImportSummary) error {
	return cmdutil.WriteToDatastore([]ImportSummary{summary}, fdaImportsSchema, "fda_imports", "FDA import summary", importSummaryToMap)
}

func importSummaryToMap(summary ImportSummary) map[string]any {
	return cmdutil.StructToMap(summary, cmdutil.StructToMapOptions{JoinStringSlices: true})
}
