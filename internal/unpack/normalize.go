package unpack

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/lepinkainen/demeter/internal/errors"
)

// normalize converts a table's raw row payload into a flat Table. The
// structure-aware path runs first; if the payload's shape defeats it, a
// direct tabular conversion is tried before giving up on the table.
func normalize(name string, data any) (*Table, error) {
	table, err := flattenRecords(name, data)
	if err == nil {
		return table, nil
	}
	slog.Warn("Could not normalize table, trying direct conversion", "table", name, "error", err)

	table, fallbackErr := tabulate(name, data)
	if fallbackErr != nil {
		return nil, errors.NewNormalizationError(name, fallbackErr)
	}
	return table, nil
}

// flattenRecords is the structure-aware path: data must be a sequence of
// mappings (or a single mapping, which becomes a one-row table). Nested
// mappings are promoted into dotted flat keys; other values stay as cells.
// Columns are the union across rows, in document discovery order, and rows
// are filled with nil for columns they lack.
func flattenRecords(name string, data any) (*Table, error) {
	var entries []any
	switch v := data.(type) {
	case []any:
		entries = v
	case object:
		entries = []any{v}
	default:
		return nil, fmt.Errorf("data is not a sequence of mappings")
	}

	var columns []string
	seen := make(map[string]bool)
	rows := make([]map[string]any, 0, len(entries))
	for i, entry := range entries {
		obj, ok := entry.(object)
		if !ok {
			return nil, fmt.Errorf("entry %d is not a mapping", i)
		}
		row := make(map[string]any)
		flattenInto("", obj, row, &columns, seen)
		rows = append(rows, row)
	}

	return NewTable(name, columns, rows)
}

// flattenInto walks one mapping, promoting nested mappings into dotted keys
// and recording newly discovered columns in document order.
func flattenInto(prefix string, obj object, row map[string]any, columns *[]string, seen map[string]bool) {
	for _, field := range obj {
		key := field.key
		if prefix != "" {
			key = prefix + "." + field.key
		}
		if nested, ok := field.val.(object); ok {
			flattenInto(key, nested, row, columns, seen)
			continue
		}
		if !seen[key] {
			seen[key] = true
			*columns = append(*columns, key)
		}
		row[key] = cellValue(field.val)
	}
}

// cellValue reduces a decoded value to a scalar cell. Sequences that survive
// flattening are serialized to their JSON text rather than dropped.
func cellValue(val any) any {
	switch v := val.(type) {
	case nil, bool, json.Number, string:
		return v
	default:
		b, err := json.Marshal(plain(v))
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// tabulate is the fallback path: a best-effort conversion of shapes the
// structure-aware path rejects. A sequence of scalars becomes a single
// "value" column; a sequence of sequences becomes positional columns padded
// to the widest row.
func tabulate(name string, data any) (*Table, error) {
	if data == nil {
		return nil, fmt.Errorf("data is null")
	}
	entries, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("cannot build a table from a bare %T value", data)
	}
	if len(entries) == 0 {
		return NewTable(name, nil, nil)
	}

	switch entries[0].(type) {
	case []any:
		return tabulateSequences(name, entries)
	case object:
		return nil, fmt.Errorf("entries have mixed shapes")
	default:
		return tabulateScalars(name, entries)
	}
}

func tabulateScalars(name string, entries []any) (*Table, error) {
	rows := make([]map[string]any, 0, len(entries))
	for i, entry := range entries {
		switch entry.(type) {
		case []any, object:
			return nil, fmt.Errorf("entry %d is not a scalar", i)
		}
		rows = append(rows, map[string]any{"value": cellValue(entry)})
	}
	return NewTable(name, []string{"value"}, rows)
}

func tabulateSequences(name string, entries []any) (*Table, error) {
	width := 0
	for i, entry := range entries {
		seq, ok := entry.([]any)
		if !ok {
			return nil, fmt.Errorf("entry %d is not a sequence", i)
		}
		if len(seq) > width {
			width = len(seq)
		}
	}

	columns := make([]string, width)
	for i := range columns {
		columns[i] = strconv.Itoa(i)
	}

	rows := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		seq := entry.([]any)
		row := make(map[string]any, width)
		for i, cell := range seq {
			row[columns[i]] = cellValue(cell)
		}
		rows = append(rows, row)
	}
	return NewTable(name, columns, rows)
}
