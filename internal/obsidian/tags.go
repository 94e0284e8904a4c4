package obsidian

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	hyphenRun     = regexp.MustCompile(`-+`)
)

// NormalizeTag cleans a single tag for use in Obsidian. Case is preserved,
// a leading # is stripped, whitespace runs become single hyphens, & becomes
// "and", and the / hierarchy separator survives untouched. Tags that
// normalize to nothing come back as "".
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	if tag == "" {
		return ""
	}

	tag = strings.ReplaceAll(tag, "&", "and")
	tag = strings.ReplaceAll(tag, "#", "")
	tag = whitespaceRun.ReplaceAllString(tag, "-")
	tag = hyphenRun.ReplaceAllString(tag, "-")
	return strings.Trim(tag, "-")
}

// NormalizeTags normalizes a slice of tags and drops empty results.
// The returned slice is sorted and deduplicated.
func NormalizeTags(tags []string) []string {
	set := NewTagSet()
	for _, tag := range tags {
		set.Add(tag)
	}
	return set.GetSorted()
}

// MergeTags combines two tag slices into one sorted, deduplicated,
// normalized result.
func MergeTags(existing, extra []string) []string {
	merged := make([]string, 0, len(existing)+len(extra))
	merged = append(merged, existing...)
	merged = append(merged, extra...)
	return NormalizeTags(merged)
}

// TagSet collects tags with automatic normalization and deduplication.
type TagSet struct {
	tags map[string]struct{}
}

// NewTagSet creates an empty TagSet.
func NewTagSet() *TagSet {
	return &TagSet{tags: make(map[string]struct{})}
}

// Add normalizes a tag and adds it to the set. Tags that normalize to
// nothing are dropped.
func (ts *TagSet) Add(tag string) {
	if normalized := NormalizeTag(tag); normalized != "" {
		ts.tags[normalized] = struct{}{}
	}
}

// AddIf adds the tag only when the condition holds.
func (ts *TagSet) AddIf(condition bool, tag string) {
	if condition {
		ts.Add(tag)
	}
}

// AddFormat adds a tag built with fmt.Sprintf.
func (ts *TagSet) AddFormat(format string, args ...any) {
	ts.Add(fmt.Sprintf(format, args...))
}

// GetSorted returns the collected tags as a sorted slice.
func (ts *TagSet) GetSorted() []string {
	result := make([]string, 0, len(ts.tags))
	for tag := range ts.tags {
		result = append(result, tag)
	}
	slices.Sort(result)
	return result
}

// TagsFromAny extracts a string slice from a polymorphic YAML value.
// Unmarshaling can produce []string or []interface{}; both are handled and
// empty strings are dropped.
func TagsFromAny(val any) []string {
	switch v := val.(type) {
	case []string:
		result := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				result = append(result, s)
			}
		}
		return result
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok && str != "" {
				result = append(result, str)
			}
		}
		return result
	default:
		return []string{}
	}
}
