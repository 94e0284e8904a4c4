package fileutil

import (
	"fmt"
	"strings"
)

// MarkdownBuilder assembles an Obsidian note: YAML frontmatter first, the
// markdown body after. Add calls are chainable and no-ops on empty input,
// so callers can feed scraped values without guarding each one.
type MarkdownBuilder struct {
	fields strings.Builder
	body   strings.Builder
}

// NewMarkdownBuilder returns an empty builder.
func NewMarkdownBuilder() *MarkdownBuilder {
	return &MarkdownBuilder{}
}

// AddTitle sets the note title in the frontmatter.
func (b *MarkdownBuilder) AddTitle(title string) *MarkdownBuilder {
	fmt.Fprintf(&b.fields, "title: %q\n", title)
	return b
}

// AddType sets the note type used by vault queries.
func (b *MarkdownBuilder) AddType(noteType string) *MarkdownBuilder {
	fmt.Fprintf(&b.fields, "type: %s\n", noteType)
	return b
}

// AddField writes a scalar frontmatter field. Zero scalars are skipped so
// absent data never shows up as "0" or "" in the note; booleans are always
// written.
func (b *MarkdownBuilder) AddField(key string, value any) *MarkdownBuilder {
	switch v := value.(type) {
	case string:
		if v != "" {
			fmt.Fprintf(&b.fields, "%s: %q\n", key, v)
		}
	case int:
		if v != 0 {
			fmt.Fprintf(&b.fields, "%s: %d\n", key, v)
		}
	case float64:
		if v > 0 {
			fmt.Fprintf(&b.fields, "%s: %.1f\n", key, v)
		}
	case bool:
		fmt.Fprintf(&b.fields, "%s: %t\n", key, v)
	}
	return b
}

// AddTags writes the tags list, skipping empty entries.
func (b *MarkdownBuilder) AddTags(tags ...string) *MarkdownBuilder {
	if len(tags) == 0 {
		return b
	}

	b.fields.WriteString("tags:\n")
	for _, tag := range tags {
		if tag != "" {
			fmt.Fprintf(&b.fields, "  - %s\n", tag)
		}
	}
	return b
}

// AddEmbed writes an Obsidian attachment embed, optionally with a display
// width.
func (b *MarkdownBuilder) AddEmbed(filename string, width int) *MarkdownBuilder {
	if filename == "" {
		return b
	}

	if width > 0 {
		fmt.Fprintf(&b.body, "![[%s|%d]]\n\n", filename, width)
	} else {
		fmt.Fprintf(&b.body, "![[%s]]\n\n", filename)
	}
	return b
}

// AddTable renders headers and rows as a markdown table. Pipes inside
// cells are escaped so scraped values cannot break the table layout.
func (b *MarkdownBuilder) AddTable(headers []string, rows [][]string) *MarkdownBuilder {
	if len(headers) == 0 {
		return b
	}

	writeRow := func(cells []string) {
		b.body.WriteString("|")
		for _, cell := range cells {
			b.body.WriteString(" " + strings.ReplaceAll(cell, "|", "\\|") + " |")
		}
		b.body.WriteString("\n")
	}

	writeRow(headers)
	b.body.WriteString("|")
	for range headers {
		b.body.WriteString(" --- |")
	}
	b.body.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}
	b.body.WriteString("\n")
	return b
}

// AddExternalLink writes a markdown link on its own line.
func (b *MarkdownBuilder) AddExternalLink(title, url string) *MarkdownBuilder {
	if url == "" {
		return b
	}

	fmt.Fprintf(&b.body, "[%s](%s)\n\n", title, url)
	return b
}

// Build assembles the final document. The frontmatter block is emitted only
// when at least one field was added.
func (b *MarkdownBuilder) Build() string {
	if b.fields.Len() == 0 {
		return b.body.String()
	}

	var doc strings.Builder
	doc.WriteString("---\n")
	doc.WriteString(b.fields.String())
	doc.WriteString("---\n\n")
	doc.WriteString(b.body.String())
	return doc.String()
}
