package fda

import "time"

// TableRecord is one scraped table in the JSON export: the table's display
// name and its rows as column/value pairs. The export file is a top-level
// array of these records.
type TableRecord struct {
	TableName string              `json:"tableName"`
	Data      []map[string]string `json:"data"`
}

// ImportSummary describes one completed import run, written to the
// datastore so repeated runs can be compared over time.
type ImportSummary struct {
	Source            string
	Tables            int
	TotalRows         int
	TotalColumns      int
	NotesWritten      int
	SnapshotsEmbedded int
	SkippedTables     []string
	ImportedAt        time.Time
}
