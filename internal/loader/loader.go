// Package loader caches an unpacked collection into a single SQLite
// relation. Every row of every table lands in the same relation, tagged
// with the name of the table it came from, so one query can span all
// investigation tables at once.
package loader

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/lepinkainen/demeter/internal/datastore"
	"github.com/lepinkainen/demeter/internal/errors"
	"github.com/lepinkainen/demeter/internal/unpack"
)

// DiscriminatorColumn is the leading relation column recording which
// source table each cached row belongs to.
const DiscriminatorColumn = "TableName"

// Loader writes an unpacked collection into one relation of a local
// SQLite database. The caller owns the store lifecycle; Load expects a
// connected store.
type Loader struct {
	store    *datastore.SQLiteStore
	relation string
}

// NewLoader creates a Loader bound to a connected store and a target
// relation name.
func NewLoader(store *datastore.SQLiteStore, relation string) *Loader {
	return &Loader{store: store, relation: relation}
}

// Schema returns the cache relation's columns: the discriminator first,
// then the union of every table's columns. The first table's columns
// lead, later tables contribute only columns not seen before.
func Schema(coll *unpack.Collection) []string {
	columns := []string{DiscriminatorColumn}
	seen := map[string]bool{DiscriminatorColumn: true}
	for _, table := range coll.Tables() {
		for _, col := range table.Columns() {
			if seen[col] {
				continue
			}
			seen[col] = true
			columns = append(columns, col)
		}
	}
	return columns
}

// Rows returns the relation rows for the collection in schema column
// order: every table's rows in input order, each prefixed with the owning
// table's name, columns a table lacks filled with nil. The collection is
// never mutated, so it stays reusable after a load.
func Rows(coll *unpack.Collection, schema []string) [][]any {
	out := make([][]any, 0, coll.TotalRows())
	for _, table := range coll.Tables() {
		for _, row := range table.Rows() {
			values := make([]any, len(schema))
			values[0] = table.Name()
			for i, col := range schema[1:] {
				values[i+1] = row[col]
			}
			out = append(out, values)
		}
	}
	return out
}

// Load derives the relation schema from the collection, recreates the
// relation, and inserts every row inside one transaction. A pre-existing
// relation of the same name is dropped first, so the cache always
// reflects exactly the latest unpack. The relation's presence is checked
// against the sqlite_master catalog afterwards.
func (l *Loader) Load(coll *unpack.Collection) error {
	if coll == nil {
		return errors.NewNotUnpackedError("load the cache")
	}

	schema := Schema(coll)
	rows := Rows(coll, schema)

	if err := l.store.DropTable(l.relation); err != nil {
		return errors.NewStoreError("drop relation", err)
	}
	if err := l.store.CreateTable(datastore.CreateTableStatement(l.relation, schema)); err != nil {
		return errors.NewStoreError("create relation", err)
	}
	if err := l.store.InsertRows(l.relation, schema, rows); err != nil {
		return errors.NewStoreError("insert rows", err)
	}

	names, err := l.store.TableNames()
	if err != nil {
		return errors.NewStoreError("verify relation", err)
	}
	if !slices.Contains(names, l.relation) {
		return errors.NewStoreError("verify relation",
			fmt.Errorf("%s is missing from the catalog after the load", l.relation))
	}

	slog.Info("Cached collection",
		"relation", l.relation,
		"tables", coll.NumEntries(),
		"rows", len(rows),
		"columns", len(schema))
	return nil
}
