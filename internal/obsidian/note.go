// Package obsidian builds and parses markdown notes with YAML frontmatter.
package obsidian

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note is a markdown document split into YAML frontmatter and body content.
type Note struct {
	Frontmatter *Frontmatter
	Body        string
}

// Frontmatter gives typed access to YAML frontmatter. Keys are kept sorted
// so serialization is deterministic.
type Frontmatter struct {
	fields map[string]any
	keys   []string
}

// NewFrontmatter creates an empty Frontmatter.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{fields: make(map[string]any), keys: []string{}}
}

// splitFrontmatter splits a document into its raw frontmatter block and body.
// found is false when the document carries no frontmatter, in which case body
// is the whole document.
func splitFrontmatter(content string) (frontmatter, body string, found bool) {
	var nl string
	switch {
	case strings.HasPrefix(content, "---\n"):
		nl = "\n"
	case strings.HasPrefix(content, "---\r\n"):
		nl = "\r\n"
	default:
		return "", content, false
	}

	// Keep the newline after the opening dashes attached to the block so an
	// empty frontmatter still matches the closing delimiter.
	rest := content[3:]
	closing := nl + "---" + nl
	idx := strings.Index(rest, closing)
	if idx == -1 {
		// Unterminated block, treat the whole document as body
		return "", content, false
	}

	return rest[:idx], strings.TrimPrefix(rest[idx+len(closing):], nl), true
}

// ParseMarkdown parses a markdown document with optional YAML frontmatter.
// A document without frontmatter yields an empty Frontmatter.
func ParseMarkdown(content []byte) (*Note, error) {
	raw, body, found := splitFrontmatter(string(content))
	if !found {
		return &Note{Frontmatter: NewFrontmatter(), Body: body}, nil
	}

	var data map[string]any
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("invalid frontmatter YAML: %w", err)
	}

	fm := NewFrontmatter()
	for k, v := range data {
		fm.Set(k, v)
	}

	return &Note{Frontmatter: fm, Body: body}, nil
}

// Build serializes the note back to markdown. Frontmatter keys come out in
// alphabetical order and tags always render flow-style: [a, b, c].
func (n *Note) Build() ([]byte, error) {
	var buf bytes.Buffer

	if len(n.Frontmatter.keys) > 0 {
		buf.WriteString("---\n")

		encoded, err := yaml.Marshal(n.Frontmatter)
		if err != nil {
			return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
		}

		buf.Write(encoded)
		buf.WriteString("---\n")
	}

	buf.WriteString(n.Body)

	return buf.Bytes(), nil
}

// BuildNoteMarkdown builds a note from frontmatter and a body, trimming
// surrounding whitespace from the body first.
func BuildNoteMarkdown(fm *Frontmatter, body string) ([]byte, error) {
	note := &Note{
		Frontmatter: fm,
		Body:        strings.TrimSpace(body),
	}
	return note.Build()
}

// Get retrieves a raw value from frontmatter.
func (f *Frontmatter) Get(key string) (any, bool) {
	val, ok := f.fields[key]
	return val, ok
}

// Set stores a value, keeping the key order sorted.
func (f *Frontmatter) Set(key string, value any) {
	if i, found := slices.BinarySearch(f.keys, key); !found {
		f.keys = slices.Insert(f.keys, i, key)
	}
	f.fields[key] = value
}

// Delete removes a key from frontmatter.
func (f *Frontmatter) Delete(key string) {
	delete(f.fields, key)
	if i, found := slices.BinarySearch(f.keys, key); found {
		f.keys = slices.Delete(f.keys, i, i+1)
	}
}

// Keys returns a copy of the sorted frontmatter keys.
func (f *Frontmatter) Keys() []string {
	return slices.Clone(f.keys)
}

// GetString returns the string under key, or "" when missing or not a string.
func (f *Frontmatter) GetString(key string) string {
	if str, ok := f.fields[key].(string); ok {
		return str
	}
	return ""
}

// GetInt returns the int under key, or 0 when missing or not an int.
func (f *Frontmatter) GetInt(key string) int {
	if i, ok := f.fields[key].(int); ok {
		return i
	}
	return 0
}

// GetBool returns the bool under key, or false when missing or not a bool.
func (f *Frontmatter) GetBool(key string) bool {
	if b, ok := f.fields[key].(bool); ok {
		return b
	}
	return false
}

// GetStringArray returns the strings under key. YAML can hand back either
// []string or []any; both are handled.
func (f *Frontmatter) GetStringArray(key string) []string {
	if val, ok := f.fields[key]; ok {
		return TagsFromAny(val)
	}
	return []string{}
}

// MarshalYAML emits the frontmatter as a mapping with sorted keys. The tags
// field is rendered as a flow-style sequence, everything else encodes as-is.
func (f *Frontmatter) MarshalYAML() (any, error) {
	mapping := &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: make([]*yaml.Node, 0, 2*len(f.keys)),
	}

	for _, key := range f.keys {
		val := f.fields[key]

		var valueNode *yaml.Node
		if key == "tags" {
			valueNode = flowSequenceNode(TagsFromAny(val))
		} else {
			valueNode = &yaml.Node{}
			if err := valueNode.Encode(val); err != nil {
				return nil, err
			}
		}

		mapping.Content = append(mapping.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			valueNode)
	}

	return mapping, nil
}

func flowSequenceNode(values []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range values {
		seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
	}
	return seq
}
