package cache

import (
	"maps"
	"slices"
)

// FDATable is the cache table for scraped FDA investigation pages.
const FDATable = "fda_cache"

const fdaSchema = `
CREATE TABLE IF NOT EXISTS fda_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_fda_cached_at ON fda_cache(cached_at);
`

// cacheSources maps each scrape source to its cache table. Every table has
// the same shape: a cache_key primary key, a JSON payload and an insert
// timestamp.
var cacheSources = map[string]struct {
	table  string
	schema string
}{
	"fda": {table: FDATable, schema: fdaSchema},
}

// SourceTableName resolves a source name like "fda" to its cache table.
func SourceTableName(source string) (string, bool) {
	src, ok := cacheSources[source]
	return src.table, ok
}

// SourceNames returns the known source names, sorted.
func SourceNames() []string {
	return slices.Sorted(maps.Keys(cacheSources))
}

// isCacheTable reports whether name is one of the registered cache tables.
// Table names are interpolated into SQL, so only registered names pass.
func isCacheTable(name string) bool {
	for _, src := range cacheSources {
		if src.table == name {
			return true
		}
	}
	return false
}
