package cmdutil

import (
	"log/slog"

	"github.com/lepinkainen/demeter/internal/datastore"
	"github.com/spf13/viper"
)

// WriteToDatastore writes items to the configured datastore when datasette
// output is enabled. The local SQLite store is the default; set
// datasette.mode to "remote" to post to a Datasette instance instead.
func WriteToDatastore[T any](items []T, schema, table, description string, toMap func(T) map[string]any) error {
	if !viper.GetBool("datasette.enabled") {
		return nil
	}

	records := make([]map[string]any, len(items))
	for i, item := range items {
		records[i] = toMap(item)
	}

	switch viper.GetString("datasette.mode") {
	case "remote":
		client := datastore.NewDatasetteClient(
			viper.GetString("datasette.remote_url"),
			viper.GetString("datasette.api_token"),
		)
		if err := client.Connect(); err != nil {
			slog.Error("Failed to connect to remote Datasette", "error", err)
			return err
		}
		defer func() { _ = client.Close() }()

		if err := client.BatchInsert("demeter", table, records); err != nil {
			slog.Error("Failed to insert records to remote Datasette", "error", err)
			return err
		}
		slog.Info("Successfully wrote "+description+" to remote Datasette", "count", len(records))
	default:
		store := datastore.NewSQLiteStore(viper.GetString("datasette.dbfile"))
		if err := store.Connect(); err != nil {
			slog.Error("Failed to connect to SQLite database", "error", err)
			return err
		}
		defer func() { _ = store.Close() }()

		if err := store.CreateTable(schema); err != nil {
			slog.Error("Failed to create table", "error", err)
			return err
		}

		if err := store.BatchInsert("demeter", table, records); err != nil {
			slog.Error("Failed to insert records", "error", err)
			return err
		}
		slog.Info("Successfully wrote "+description+" to SQLite database", "count", len(records))
	}

	return nil
}
