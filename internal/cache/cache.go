package cache

import (
	"cmp"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/viper"
	_ "modernc.org/sqlite"
)

// DefaultCacheTTL is how long scraped page data stays fresh when no
// cache.ttl is configured (30 days).
const DefaultCacheTTL = 720 * time.Hour

// FetchFunc produces a value for the cache when no fresh entry exists.
type FetchFunc[T any] func() (T, error)

// CacheDB wraps the SQLite database that holds scraped page data between runs.
type CacheDB struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

var (
	globalCache     *CacheDB
	globalCacheOnce sync.Once
)

// GetGlobalCache returns the shared cache instance, opening the database,
// creating the per-source tables and sweeping out expired rows on first use.
func GetGlobalCache() (*CacheDB, error) {
	var initErr error
	globalCacheOnce.Do(func() {
		path := cmp.Or(viper.GetString("cache.dbfile"), "./cache.db")
		globalCache, initErr = NewCacheDB(path)
		if initErr != nil {
			return
		}
		for _, src := range cacheSources {
			if err := globalCache.CreateTable(src.schema); err != nil {
				initErr = fmt.Errorf("failed to create %s: %w", src.table, err)
				return
			}
		}
		globalCache.sweepExpired(configuredTTL())
	})
	if initErr != nil {
		return nil, initErr
	}
	return globalCache, nil
}

// ResetGlobalCache closes the shared instance so the next GetGlobalCache
// call opens a fresh one. Tests use this to point the cache at a sandbox.
func ResetGlobalCache() error {
	var err error
	if globalCache != nil {
		err = globalCache.Close()
	}
	globalCache = nil
	globalCacheOnce = sync.Once{}
	return err
}

// NewCacheDB opens the cache database at dbPath.
func NewCacheDB(dbPath string) (*CacheDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", dbPath, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("cache database ping failed: %w", err), closeErr)
	}

	return &CacheDB{db: db, path: dbPath}, nil
}

// CreateTable runs a schema statement against the cache database.
func (c *CacheDB) CreateTable(schema string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply cache schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (c *CacheDB) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached payload for key, reporting whether a fresh entry
// was found. Entries older than ttl count as absent.
func (c *CacheDB) Get(tableName, key string, ttl time.Duration) (string, bool, error) {
	if err := validateTableName(tableName); err != nil {
		return "", false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var payload string
	var cachedAt time.Time
	query := fmt.Sprintf("SELECT data, cached_at FROM %s WHERE cache_key = ?", tableName)
	err := c.db.QueryRow(query, key).Scan(&payload, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if age := time.Now().UTC().Sub(cachedAt); age > ttl {
		slog.Debug("Cache entry expired", "table", tableName, "key", key, "age", age)
		return "", false, nil
	}
	return payload, true, nil
}

// Set stores the payload for key, replacing any previous entry.
func (c *CacheDB) Set(tableName, key, data string) error {
	if err := validateTableName(tableName); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (cache_key, data, cached_at) VALUES (?, ?, CURRENT_TIMESTAMP)", tableName)
	if _, err := c.db.Exec(query, key, data); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// InvalidateSource drops every entry from one source's cache table and
// returns how many rows were removed.
func (c *CacheDB) InvalidateSource(tableName string) (int64, error) {
	if err := validateTableName(tableName); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s", tableName))
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", tableName, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	slog.Debug("Cleared cache table", "table", tableName, "deleted", deleted)
	return deleted, nil
}

// sweepExpired deletes entries past their TTL from every known cache table.
// Sweep failures are logged and ignored.
func (c *CacheDB) sweepExpired(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().UTC().Add(-ttl)
	for _, src := range cacheSources {
		result, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE cached_at < ?", src.table), cutoff)
		if err != nil {
			slog.Warn("Failed to sweep expired cache entries", "table", src.table, "error", err)
			continue
		}
		if rows, err := result.RowsAffected(); err == nil && rows > 0 {
			slog.Info("Swept expired cache entries", "table", src.table, "count", rows)
		}
	}
}

// validateTableName guards the table names interpolated into SQL above.
func validateTableName(tableName string) error {
	if !isCacheTable(tableName) {
		return fmt.Errorf("unknown cache table: %s", tableName)
	}
	return nil
}

// configuredTTL reads cache.ttl, falling back to the default on a missing
// or unparseable value.
func configuredTTL() time.Duration {
	raw := viper.GetString("cache.ttl")
	if raw == "" {
		return DefaultCacheTTL
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid cache TTL, using default", "ttl", raw, "error", err)
		return DefaultCacheTTL
	}
	return ttl
}

// GetOrFetchWithPolicy returns the cached value for cacheKey when a fresh
// entry exists, otherwise it calls fetchFunc and stores the result. The
// shouldCache hook decides whether a fetched value is worth keeping; nil
// caches everything. The bool result reports whether the value came from
// the cache.
func GetOrFetchWithPolicy[T any](tableName, cacheKey string, fetchFunc FetchFunc[T], shouldCache func(T) bool) (T, bool, error) {
	var zero T

	cache, err := GetGlobalCache()
	if err != nil {
		// A broken cache should not block the scrape
		slog.Warn("Cache unavailable, fetching directly", "error", err)
		data, fetchErr := fetchFunc()
		return data, false, fetchErr
	}

	cached, fromCache, err := cache.Get(tableName, cacheKey, configuredTTL())
	if err == nil && fromCache {
		var result T
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			slog.Debug("Using cached data", "table", tableName, "key", cacheKey)
			return result, true, nil
		}
		slog.Warn("Cached data failed to decode, refetching", "table", tableName, "key", cacheKey, "error", err)
	}

	slog.Debug("Cache miss", "table", tableName, "key", cacheKey)
	data, err := fetchFunc()
	if err != nil {
		return zero, false, fmt.Errorf("failed to fetch data: %w", err)
	}

	if shouldCache != nil && !shouldCache(data) {
		slog.Debug("Policy rejected result, not caching", "table", tableName, "key", cacheKey)
		return data, false, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to encode result for caching", "table", tableName, "key", cacheKey, "error", err)
		return data, false, nil
	}
	if err := cache.Set(tableName, cacheKey, string(jsonData)); err != nil {
		slog.Warn("Failed to store result in cache", "table", tableName, "key", cacheKey, "error", err)
	}
	return data, false, nil
}
