package fda

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/lepinkainen/demeter/internal/cmdutil"
	"github.com/lepinkainen/demeter/internal/datastore"
	"github.com/lepinkainen/demeter/internal/errors"
	"github.com/lepinkainen/demeter/internal/loader"
	"github.com/lepinkainen/demeter/internal/tui"
	"github.com/lepinkainen/demeter/internal/unpack"
)

// cacheRelation is the single SQLite relation holding every row of every
// imported table, keyed by the discriminator column.
const cacheRelation = "Food_Recalls"

// ImportWithParams unpacks a scraped JSON export and fans it out to the
// configured outputs: one markdown note per table, the shared cache
// relation, and optional JSON and CSV exports.
func ImportWithParams(input, outputDirParam string, writeJSONFlag bool, jsonOutputPath string, writeCSVFlag, selectTablesFlag, overwriteFlag bool) error {
	cfg := &cmdutil.BaseCommandConfig{
		OutputDir:  outputDirParam,
		ConfigKey:  "fda",
		WriteJSON:  writeJSONFlag,
		JSONOutput: jsonOutputPath,
		Overwrite:  overwriteFlag,
	}
	if err := cmdutil.SetupOutputDir(cfg); err != nil {
		return err
	}

	unpacker := unpack.NewUnpacker(input)
	coll, err := unpacker.Unpack()
	if err != nil {
		return err
	}

	if selectTablesFlag {
		coll, err = selectCollectionTables(filepath.Base(input), coll)
		if err != nil {
			return err
		}
	}

	notesWritten, snapshotsEmbedded := writeCollectionToMarkdown(coll, cfg.OutputDir)

	if err := writeIndexNote(coll, cfg.OutputDir); err != nil {
		slog.Error("Failed to write the index note", "error", err)
	}

	writeCollectionToJSONIfEnabled(coll, cfg.WriteJSON, cfg.JSONOutput)

	if writeCSVFlag {
		if err := writeCollectionToCSV(coll, cfg.Overwrite); err != nil {
			slog.Error("Failed to write CSV exports", "error", err)
		}
	}

	if err := cacheCollection(coll); err != nil {
		return err
	}

	summary := ImportSummary{
		Source:            input,
		Tables:            coll.NumEntries(),
		TotalRows:         coll.TotalRows(),
		TotalColumns:      len(loader.Schema(coll)) - 1,
		NotesWritten:      notesWritten,
		SnapshotsEmbedded: snapshotsEmbedded,
		SkippedTables:     unpacker.Skipped(),
		ImportedAt:        time.Now(),
	}
	if err := writeImportSummaryToDatasetteIfEnabled(summary); err != nil {
		slog.Error("Failed to write the import summary", "error", err)
	}

	slog.Info("Import complete",
		"source", input,
		"tables", coll.NumEntries(),
		"rows", coll.TotalRows(),
		"notes", notesWritten)
	return nil
}

// selectCollectionTables runs the interactive table picker and narrows the
// collection down to the picked tables. Skipping the picker keeps every
// table; stopping aborts the import.
func selectCollectionTables(source string, coll *unpack.Collection) (*unpack.Collection, error) {
	infos := make([]tui.TableInfo, 0, coll.NumEntries())
	for _, table := range coll.Tables() {
		infos = append(infos, tui.TableInfo{
			Name:    table.Name(),
			Rows:    table.RowCount(),
			Columns: len(table.Columns()),
		})
	}

	result, err := tui.SelectTables(source, infos)
	if err != nil {
		return nil, err
	}

	if result.Action == tui.ActionStopped {
		return nil, errors.NewStopProcessingError("import stopped from the table picker")
	}
	if result.Action != tui.ActionSelected || len(result.Selected) == 0 {
		slog.Info("No tables picked, importing all of them")
		return coll, nil
	}

	tables := make([]*unpack.Table, 0, len(result.Selected))
	for _, info := range result.Selected {
		if table, ok := coll.Get(info.Name); ok {
			tables = append(tables, table)
		}
	}

	filtered, err := unpack.NewCollection(tables)
	if err != nil {
		return nil, err
	}

	slog.Info("Importing selected tables",
		"selected", filtered.NumEntries(),
		"available", coll.NumEntries())
	return filtered, nil
}

// cacheCollection writes every table of the collection into the shared
// cache relation. The local SQLite store is the default; set datasette.mode
// to "remote" to post the same rows to a Datasette instance instead.
func cacheCollection(coll *unpack.Collection) error {
	if !viper.GetBool("datasette.enabled") {
		slog.Debug("Datasette output disabled, skipping the cache relation")
		return nil
	}

	if viper.GetString("datasette.mode") == "remote" {
		return cacheCollectionRemote(coll)
	}

	store := datastore.NewSQLiteStore(viper.GetString("datasette.dbfile"))
	if err := store.Connect(); err != nil {
		return fmt.Errorf("failed to open the cache database: %w", err)
	}
	defer func() { _ = store.Close() }()

	return loader.NewLoader(store, cacheRelation).Load(coll)
}

func cacheCollectionRemote(coll *unpack.Collection) error {
	client := datastore.NewDatasetteClient(
		viper.GetString("datasette.remote_url"),
		viper.GetString("datasette.api_token"),
	)
	if err := client.Connect(); err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	schema := loader.Schema(coll)
	records := make([]map[string]any, 0, coll.TotalRows())
	for _, row := range loader.Rows(coll, schema) {
		record := make(map[string]any, len(schema))
		for i, col := range schema {
			record[col] = row[i]
		}
		records = append(records, record)
	}

	if err := client.BatchInsert("demeter", cacheRelation, records); err != nil {
		return err
	}

	slog.Info("Cached collection to remote Datasette",
		"relation", cacheRelation,
		"rows", len(records))
	return nil
}
