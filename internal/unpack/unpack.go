// Package unpack reads a scraped JSON export of named tables and reshapes
// each table's nested row payload into independent flat tables.
//
// The export is a top-level array of records, each carrying a tableName and
// a data field. Regularly shaped data (a sequence of mappings) flattens with
// nested keys promoted to dotted columns; irregular shapes go through a
// best-effort fallback, and tables that defeat both paths are skipped with a
// warning rather than failing the whole document.
package unpack

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lepinkainen/demeter/internal/errors"
)

// Unpacker owns one source document and the result of unpacking it.
type Unpacker struct {
	path       string
	unpacked   bool
	collection *Collection
	skipped    []string
}

// NewUnpacker creates an Unpacker for the JSON document at path.
func NewUnpacker(path string) *Unpacker {
	return &Unpacker{path: path}
}

// Path returns the source document path.
func (u *Unpacker) Path() string {
	return u.path
}

// Unpacked reports whether the last Unpack call succeeded.
func (u *Unpacker) Unpacked() bool {
	return u.unpacked
}

// Collection returns the unpacked tables, or nil before a successful Unpack.
func (u *Unpacker) Collection() *Collection {
	return u.collection
}

// Skipped returns the names of tables dropped by the last Unpack because
// their rows could not be flattened.
func (u *Unpacker) Skipped() []string {
	skipped := make([]string, len(u.skipped))
	copy(skipped, u.skipped)
	return skipped
}

// Unpack parses the source document, flattens each named table and collects
// the survivors in input order. Duplicate names keep their first position
// but the newest data wins. Unpack fails only when the document itself is
// unreadable or when zero tables normalize; individual table failures are
// logged and skipped.
func (u *Unpacker) Unpack() (*Collection, error) {
	u.unpacked = false
	u.collection = nil
	u.skipped = nil

	records, err := u.readSource()
	if err != nil {
		return nil, err
	}

	var tables []*Table
	index := make(map[string]int)
	for _, rec := range records {
		table, err := normalize(rec.name, rec.data)
		if err != nil {
			slog.Warn("Skipping table", "table", rec.name, "error", err)
			u.skipped = append(u.skipped, rec.name)
			continue
		}
		if pos, ok := index[rec.name]; ok {
			slog.Warn("Duplicate table name, keeping the newest data", "table", rec.name)
			tables[pos] = table
			continue
		}
		index[rec.name] = len(tables)
		tables = append(tables, table)
	}

	if len(tables) == 0 {
		return nil, fmt.Errorf("none of the %d tables could be unpacked", len(records))
	}

	collection, err := NewCollection(tables)
	if err != nil {
		return nil, err
	}

	if len(u.skipped) > 0 {
		slog.Warn("Some tables were not unpacked", "skipped", len(u.skipped), "unpacked", len(tables))
	}

	u.collection = collection
	u.unpacked = true
	return collection, nil
}

// rawRecord is one (tableName, data) pair from the source document.
type rawRecord struct {
	name string
	data any
}

// readSource parses the document into its raw records, validating the
// required fields on every record before any normalization starts.
func (u *Unpacker) readSource() ([]rawRecord, error) {
	f, err := os.Open(u.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSourceNotFoundError(u.path, err)
		}
		return nil, fmt.Errorf("opening %s: %w", u.path, err)
	}
	defer func() { _ = f.Close() }()

	doc, err := decodeDocument(f)
	if err != nil {
		return nil, errors.NewMalformedSourceError(fmt.Sprintf("could not parse %s as JSON: %v", u.path, err))
	}

	entries, ok := doc.([]any)
	if !ok {
		return nil, errors.NewMalformedSourceError("top-level value is not an array of table records")
	}
	if len(entries) == 0 {
		return nil, errors.NewMalformedSourceError("document contains no table records")
	}

	records := make([]rawRecord, 0, len(entries))
	for i, entry := range entries {
		obj, ok := entry.(object)
		if !ok {
			return nil, errors.NewMalformedSourceError(fmt.Sprintf("record %d is not an object", i))
		}

		var missing []string
		nameVal, ok := obj.get("tableName")
		if !ok {
			missing = append(missing, "tableName")
		}
		data, ok := obj.get("data")
		if !ok {
			missing = append(missing, "data")
		}
		if len(missing) > 0 {
			return nil, errors.NewMissingColumnsError(missing...)
		}

		name, ok := nameVal.(string)
		if !ok {
			return nil, errors.NewMalformedSourceError(fmt.Sprintf("record %d has a non-string tableName", i))
		}

		records = append(records, rawRecord{name: name, data: data})
	}
	return records, nil
}
