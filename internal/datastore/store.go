package datastore

// Store is the shared surface of the cache sinks: the local SQLite file and
// the remote Datasette instance.
type Store interface {
	// Connect prepares the sink for writes.
	Connect() error

	// CreateTable ensures the target table exists. Remote sinks may treat
	// this as a no-op when their insert API creates tables on demand.
	CreateTable(schema string) error

	// BatchInsert writes records into the named table of the database.
	BatchInsert(database string, table string, records []map[string]any) error

	// Close releases the underlying connection.
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*DatasetteClient)(nil)
)
