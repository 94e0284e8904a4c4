package unpack

import (
	"fmt"
)

// Table is one flattened table: an ordered column list and rows keyed by
// column name. Tables are built by the normalizer and read-only afterwards;
// downstream consumers must not mutate the returned rows.
type Table struct {
	name    string
	columns []string
	rows    []map[string]any
}

// NewTable validates and builds a Table. Every row must conform to the
// column list: no extra keys, missing values filled with nil.
func NewTable(name string, columns []string, rows []map[string]any) (*Table, error) {
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		if seen[col] {
			return nil, fmt.Errorf("table %s has a duplicate column %q", name, col)
		}
		seen[col] = true
	}

	for i, row := range rows {
		if row == nil {
			return nil, fmt.Errorf("table %s has a nil row at index %d", name, i)
		}
		for key := range row {
			if !seen[key] {
				return nil, fmt.Errorf("table %s row %d has a value for unknown column %q", name, i, key)
			}
		}
		for _, col := range columns {
			if _, ok := row[col]; !ok {
				row[col] = nil
			}
		}
	}

	return &Table{name: name, columns: columns, rows: rows}, nil
}

// Name returns the table's name from the source document.
func (t *Table) Name() string {
	return t.name
}

// Columns returns the column names in discovery order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Rows returns the table's rows in source order. The returned slice and its
// maps are shared, not copied; treat them as read-only.
func (t *Table) Rows() []map[string]any {
	return t.rows
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.rows)
}

// Collection is the unpacker's output: an ordered mapping from table name to
// flattened table. It is constructed once and read-only afterwards.
type Collection struct {
	names  []string
	tables map[string]*Table
}

// NewCollection validates and builds a Collection from tables in their input
// order. The collection must be non-empty and names must be unique; the
// unpacker resolves duplicates before construction.
func NewCollection(tables []*Table) (*Collection, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("a collection needs at least one table")
	}

	names := make([]string, 0, len(tables))
	byName := make(map[string]*Table, len(tables))
	for i, table := range tables {
		if table == nil {
			return nil, fmt.Errorf("nil table at index %d", i)
		}
		if _, ok := byName[table.name]; ok {
			return nil, fmt.Errorf("duplicate table name %q", table.name)
		}
		names = append(names, table.name)
		byName[table.name] = table
	}

	return &Collection{names: names, tables: byName}, nil
}

// Keys returns the table names in input order.
func (c *Collection) Keys() []string {
	keys := make([]string, len(c.names))
	copy(keys, c.names)
	return keys
}

// Tables returns the tables in input order.
func (c *Collection) Tables() []*Table {
	tables := make([]*Table, len(c.names))
	for i, name := range c.names {
		tables[i] = c.tables[name]
	}
	return tables
}

// Get returns the named table and whether it exists.
func (c *Collection) Get(name string) (*Table, bool) {
	table, ok := c.tables[name]
	return table, ok
}

// NumEntries returns the number of tables.
func (c *Collection) NumEntries() int {
	return len(c.names)
}

// TotalRows returns the row count summed over all tables.
func (c *Collection) TotalRows() int {
	total := 0
	for _, table := range c.tables {
		total += len(table.rows)
	}
	return total
}

// Structure returns a short description of how the unpacked data is shaped,
// one line per string.
func (c *Collection) Structure() []string {
	return []string{
		"The scraped data is structured as an ordered collection",
		fmt.Sprintf("with %d entries. Each entry key is a table name and", len(c.names)),
		"each value is the table data as a flat table of named",
		fmt.Sprintf("columns, %d rows in total.", c.TotalRows()),
	}
}
