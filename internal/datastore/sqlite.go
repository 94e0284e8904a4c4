package datastore

import (
	"database/sql"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"
)

// SQLiteStore writes to a local SQLite file through the modernc.org/sqlite
// driver.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore returns a store for the database file at dbPath. Connect
// must be called before use.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{
		dbPath: dbPath,
	}
}

// Connect opens the database.
func (s *SQLiteStore) Connect() error {
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", s.dbPath, err)
	}
	s.db = db
	return nil
}

// CreateTable runs the given schema statement.
func (s *SQLiteStore) CreateTable(schema string) error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// DropTable removes the named table if it exists.
func (s *SQLiteStore) DropTable(table string) error {
	if _, err := s.db.Exec(DropTableStatement(table)); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	return nil
}

// TableNames returns the names of all tables in the database, read from the
// sqlite_master catalog.
func (s *SQLiteStore) TableNames() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// InsertRows inserts rows with an explicit column order inside a single
// transaction. Every identifier is quoted, so columns with spaces or '#'
// work.
func (s *SQLiteStore) InsertRows(table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback is a no-op once the transaction is committed
		_ = tx.Rollback()
	}()

	stmt, err := tx.Prepare(InsertStatement(table, columns))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row has %d values for %d columns", len(row), len(columns))
		}
		if _, err := stmt.Exec(row...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// BatchInsert inserts records into the named table. The column order comes
// from the first record, sorted for deterministic statements; keys missing
// from later records insert as NULL. The database argument is ignored; the
// file is the database.
func (s *SQLiteStore) BatchInsert(database string, table string, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}

	columns := make([]string, 0, len(records[0]))
	for col := range records[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	rows := make([][]any, len(records))
	for i, record := range records {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = record[col]
		}
		rows[i] = row
	}

	return s.InsertRows(table, columns, rows)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
