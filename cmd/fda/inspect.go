package fda

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/lepinkainen/demeter/internal/errors"
	"github.com/lepinkainen/demeter/internal/tui"
	"github.com/lepinkainen/demeter/internal/unpack"
)

const (
	// maxHeadRows caps how many rows of the previewed table the report shows.
	maxHeadRows = 5
	// maxCellWidth keeps long scraped cells from wrapping the whole report.
	maxCellWidth = 48
)

// InspectWithParams unpacks the export at input and prints a metadata
// report to stdout. Interactive mode opens a picker for which table to
// preview; otherwise the first table is shown.
func InspectWithParams(input string, interactive bool) error {
	unpacker := unpack.NewUnpacker(input)
	if _, err := unpacker.Unpack(); err != nil {
		return err
	}

	table, picked, err := reportTable(unpacker, input, interactive)
	if err != nil {
		return err
	}

	return writeReport(os.Stdout, unpacker, table, picked)
}

// reportTable decides which table the report previews. Interactive mode
// asks the user; skipping the picker falls back to the first table.
func reportTable(u *unpack.Unpacker, source string, interactive bool) (*unpack.Table, bool, error) {
	coll := u.Collection()
	first := coll.Tables()[0]
	if !interactive {
		return first, false, nil
	}

	infos := make([]tui.TableInfo, 0, coll.NumEntries())
	for _, table := range coll.Tables() {
		infos = append(infos, tui.TableInfo{
			Name:    table.Name(),
			Rows:    table.RowCount(),
			Columns: len(table.Columns()),
		})
	}

	result, err := tui.SelectTable(source, infos)
	if err != nil {
		return nil, false, err
	}

	switch result.Action {
	case tui.ActionStopped:
		return nil, false, errors.NewStopProcessingError("inspect stopped from the table picker")
	case tui.ActionSelected:
		if table, ok := coll.Get(result.Selection.Name); ok {
			return table, true, nil
		}
	}
	return first, false, nil
}

// writeReport prints the metadata of the unpacked document followed by a
// preview of one table.
func writeReport(w io.Writer, u *unpack.Unpacker, table *unpack.Table, picked bool) error {
	if !u.Unpacked() {
		return errors.NewNotUnpackedError("read the metadata")
	}
	coll := u.Collection()

	fmt.Fprintln(w, "The attributes of the unpacked data include:")
	for _, line := range coll.Structure() {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Keys:")
	for _, key := range coll.Keys() {
		fmt.Fprintf(w, "  - %s\n", key)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Number of entries: %d\n", coll.NumEntries())
	fmt.Fprintln(w)

	if picked {
		fmt.Fprintf(w, "Here is the table: %s\n", table.Name())
	} else {
		fmt.Fprintln(w, "Here is the first table:")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Columns:")
	for _, col := range table.Columns() {
		fmt.Fprintf(w, "  - %s\n", col)
	}
	fmt.Fprintln(w)

	writeHeadRows(w, table)
	return nil
}

// writeHeadRows prints the first rows of the table in aligned columns.
func writeHeadRows(w io.Writer, table *unpack.Table) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(table.Columns(), "\t"))

	columns := table.Columns()
	for i, row := range table.Rows() {
		if i == maxHeadRows {
			break
		}
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = truncateCell(cellString(row[col]), maxCellWidth)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()

	if table.RowCount() > maxHeadRows {
		fmt.Fprintf(w, "... and %d more rows\n", table.RowCount()-maxHeadRows)
	}
}

func truncateCell(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	if len(value) <= width {
		return value
	}
	return value[:width-3] + "..."
}
