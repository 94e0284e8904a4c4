package fda

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/demeter/internal/config"
	"github.com/lepinkainen/demeter/internal/fileutil"
	"github.com/lepinkainen/demeter/internal/obsidian"
	"github.com/lepinkainen/demeter/internal/unpack"
)

const (
	defaultSnapshotEmbedWidth = 600

	indexNoteTitle = "FDA Investigations"
)

// writeCollectionToMarkdown writes one note per table. A failed note costs
// only that table. Returns how many notes were written and how many of them
// embed a page snapshot.
func writeCollectionToMarkdown(coll *unpack.Collection, directory string) (notes, snapshots int) {
	for _, table := range coll.Tables() {
		written, embedded, err := writeTableToMarkdown(table, directory)
		if err != nil {
			slog.Error("Failed to write table note", "table", table.Name(), "error", err)
			continue
		}
		if written {
			notes++
			if embedded {
				snapshots++
			}
		}
	}
	return notes, snapshots
}

func writeTableToMarkdown(table *unpack.Table, directory string) (written, embedded bool, err error) {
	filePath := fileutil.GetMarkdownFilePath(table.Name(), directory)

	mb := fileutil.NewMarkdownBuilder()
	mb.AddTitle(fileutil.SanitizeFilename(table.Name()))
	mb.AddType("fda-table")
	mb.AddField("rows", table.RowCount())
	mb.AddField("columns", len(table.Columns()))

	closed := strings.HasPrefix(table.Name(), closedTablePrefix)
	mb.AddField("closed", closed)

	year := tableYear(table.Name())
	if year > 0 {
		mb.AddField("year", year)
	}

	tc := obsidian.NewTagSet()
	tc.Add("fda/table")
	tc.AddIf(closed, "fda/closed")
	tc.AddIf(!closed, "fda/active")
	if year > 0 {
		tc.AddFormat("year/%d", year)
	}
	mb.AddTags(tc.GetSorted()...)

	embedded = fileutil.AddSnapshotToMarkdown(mb, fileutil.AddSnapshotOptions{
		Title:     table.Name(),
		Directory: directory,
		Width:     defaultSnapshotEmbedWidth,
	})

	headers := table.Columns()
	rows := make([][]string, 0, table.RowCount())
	for _, row := range table.Rows() {
		cells := make([]string, len(headers))
		for i, col := range headers {
			cells[i] = cellString(row[col])
		}
		rows = append(rows, cells)
	}
	mb.AddTable(headers, rows)
	mb.AddExternalLink("View on fda.gov", config.FDAURL)

	written, err = fileutil.WriteFileWithOverwrite(filePath, []byte(mb.Build()), 0644, config.OverwriteFiles)
	if err != nil {
		return false, false, err
	}

	fileutil.LogFileWriteResult(written, filePath)
	return written, embedded, nil
}

// writeIndexNote maintains one overview note linking to every table note.
// An existing index is parsed first so hand-added frontmatter and tags
// survive; the body is always regenerated from the collection.
func writeIndexNote(coll *unpack.Collection, directory string) error {
	indexPath := fileutil.GetMarkdownFilePath(indexNoteTitle, directory)

	fm := obsidian.NewFrontmatter()
	if fileutil.FileExists(indexPath) {
		content, err := os.ReadFile(indexPath)
		if err != nil {
			return fmt.Errorf("failed to read the index note: %w", err)
		}
		parsed, err := obsidian.ParseMarkdown(content)
		if err != nil {
			return fmt.Errorf("failed to parse the index note: %w", err)
		}
		fm = parsed.Frontmatter
	}

	fm.Set("title", indexNoteTitle)
	fm.Set("type", "fda-index")
	fm.Set("tables", coll.NumEntries())
	fm.Set("rows", coll.TotalRows())
	fm.Set("updated", time.Now().Format("2006-01-02"))
	fm.Set("tags", obsidian.MergeTags(fm.GetStringArray("tags"), []string{"fda", "fda/index"}))

	var body strings.Builder
	body.WriteString("## Tables\n\n")
	for _, table := range coll.Tables() {
		fmt.Fprintf(&body, "- [[%s]] (%d rows)\n", fileutil.SanitizeFilename(table.Name()), table.RowCount())
	}

	markdown, err := obsidian.BuildNoteMarkdown(fm, body.String())
	if err != nil {
		return fmt.Errorf("failed to build the index note: %w", err)
	}

	// The index reflects the latest import, so it is always rewritten
	written, err := fileutil.WriteFileWithOverwrite(indexPath, markdown, 0644, true)
	if err != nil {
		return err
	}
	fileutil.LogFileWriteResult(written, indexPath)
	return nil
}

// tableYear extracts a trailing four-digit year from a table name, 0 when
// the name has none. The active table carries no year.
func tableYear(name string) int {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return 0
	}
	last := fields[len(fields)-1]
	if len(last) != 4 {
		return 0
	}
	year, err := strconv.Atoi(last)
	if err != nil {
		return 0
	}
	return year
}

// cellString renders one unpacked cell for display. Scalars keep their JSON
// text, lists join with commas, anything still nested serializes back to
// JSON.
func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = cellString(item)
		}
		return strings.Join(parts, ", ")
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
