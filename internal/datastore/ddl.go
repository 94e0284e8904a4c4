package datastore

import (
	"fmt"
	"strings"
)

// QuoteIdentifier quotes a table or column name for SQLite, doubling any
// embedded double quotes. Scraped column names carry spaces, '#' and
// parentheses, so every identifier goes through this.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) []string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = QuoteIdentifier(name)
	}
	return quoted
}

// CreateTableStatement builds a CREATE TABLE IF NOT EXISTS statement with an
// untyped column list. SQLite leaves such columns without affinity, which
// suits scraped values of mixed shape.
func CreateTableStatement(table string, columns []string) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		QuoteIdentifier(table),
		strings.Join(quoteAll(columns), ", "),
	)
}

// DropTableStatement builds a DROP TABLE IF EXISTS statement.
func DropTableStatement(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", QuoteIdentifier(table))
}

// InsertStatement builds a parameterized INSERT statement for the given
// column order. Values always travel through bound placeholders, never
// through string assembly.
func InsertStatement(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdentifier(table),
		strings.Join(quoteAll(columns), ", "),
		strings.Join(placeholders, ", "),
	)
}
