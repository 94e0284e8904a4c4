package cache

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lepinkainen/demeter/internal/testutil"
	"github.com/spf13/viper"
)

type pageData struct {
	TableName string `json:"tableName"`
	Rows      int    `json:"rows"`
}

func setupTestCache(t *testing.T) *CacheDB {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	env := testutil.NewTestEnv(t)
	cache, err := NewCacheDB(env.Path("fda-cache.db"))
	if err != nil {
		t.Fatalf("Failed to create cache database: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	if err := cache.CreateTable(fdaSchema); err != nil {
		t.Fatalf("Failed to create fda_cache table: %v", err)
	}

	viper.Set("cache.ttl", "1h")

	return cache
}

// withGlobalCache swaps the package singleton for the duration of a test so
// GetOrFetchWithPolicy operates on the sandboxed database.
func withGlobalCache(t *testing.T, cache *CacheDB) {
	t.Helper()

	prev := globalCache
	globalCacheOnce = sync.Once{}
	globalCacheOnce.Do(func() { globalCache = cache })

	t.Cleanup(func() {
		globalCache = prev
		globalCacheOnce = sync.Once{}
	})
}

func setCachedAt(t *testing.T, cache *CacheDB, key string, at time.Time) {
	t.Helper()

	if _, err := cache.db.Exec("UPDATE fda_cache SET cached_at = ? WHERE cache_key = ?", at.UTC(), key); err != nil {
		t.Fatalf("Failed to update cached_at: %v", err)
	}
}

func TestCacheDB_SetGet(t *testing.T) {
	cache := setupTestCache(t)

	key := "https://fda.test/outbreaks?years=2025"
	payload := `[{"tableName":"Active Investigations","data":[]}]`
	if err := cache.Set("fda_cache", key, payload); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, found, err := cache.Get("fda_cache", key, time.Hour)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Expected a cache hit for a fresh entry")
	}
	if data != payload {
		t.Errorf("Get() = %q, want %q", data, payload)
	}
}

func TestCacheDB_GetMissing(t *testing.T) {
	cache := setupTestCache(t)

	data, found, err := cache.Get("fda_cache", "https://fda.test/unknown", time.Hour)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected a miss for an unknown key")
	}
	if data != "" {
		t.Errorf("Get() = %q, want empty string", data)
	}
}

func TestCacheDB_GetExpired(t *testing.T) {
	cache := setupTestCache(t)

	key := "https://fda.test/outbreaks"
	if err := cache.Set("fda_cache", key, "{}"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	setCachedAt(t, cache, key, time.Now().Add(-2*time.Hour))

	_, found, err := cache.Get("fda_cache", key, time.Hour)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected an entry older than the TTL to count as a miss")
	}
}

func TestCacheDB_SetReplaces(t *testing.T) {
	cache := setupTestCache(t)

	key := "https://fda.test/outbreaks"
	if err := cache.Set("fda_cache", key, "first"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set("fda_cache", key, "second"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	data, found, err := cache.Get("fda_cache", key, time.Hour)
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if data != "second" {
		t.Errorf("Get() = %q, want %q", data, "second")
	}
}

func TestCacheDB_RejectsUnknownTable(t *testing.T) {
	cache := setupTestCache(t)

	if err := cache.Set("unknown_cache", "key", "data"); err == nil {
		t.Error("Set() should reject an unknown table name")
	}
	if _, _, err := cache.Get("unknown_cache", "key", time.Hour); err == nil {
		t.Error("Get() should reject an unknown table name")
	}
	if _, err := cache.InvalidateSource("unknown_cache"); err == nil {
		t.Error("InvalidateSource() should reject an unknown table name")
	}
}

func TestCacheDB_InvalidateSource(t *testing.T) {
	cache := setupTestCache(t)

	for _, key := range []string{"a", "b", "c"} {
		if err := cache.Set("fda_cache", key, "{}"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	deleted, err := cache.InvalidateSource("fda_cache")
	if err != nil {
		t.Fatalf("InvalidateSource() error = %v", err)
	}
	if deleted != 3 {
		t.Errorf("InvalidateSource() = %d rows, want 3", deleted)
	}

	_, found, err := cache.Get("fda_cache", "a", time.Hour)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected the table to be empty after invalidation")
	}
}

func TestCacheDB_InvalidateSource_EmptyTable(t *testing.T) {
	cache := setupTestCache(t)

	deleted, err := cache.InvalidateSource("fda_cache")
	if err != nil {
		t.Fatalf("InvalidateSource() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("InvalidateSource() = %d rows, want 0", deleted)
	}
}

func TestSweepExpired(t *testing.T) {
	cache := setupTestCache(t)

	if err := cache.Set("fda_cache", "stale", "{}"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set("fda_cache", "fresh", "{}"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	setCachedAt(t, cache, "stale", time.Now().Add(-48*time.Hour))

	cache.sweepExpired(time.Hour)

	if _, found, _ := cache.Get("fda_cache", "stale", 72*time.Hour); found {
		t.Error("Expected the stale entry to be swept")
	}
	if _, found, _ := cache.Get("fda_cache", "fresh", time.Hour); !found {
		t.Error("Expected the fresh entry to survive the sweep")
	}
}

func TestGetOrFetchWithPolicy_CacheHit(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	key := "https://fda.test/outbreaks?years=2025,2024"
	if err := cache.Set("fda_cache", key, `{"tableName":"Active Investigations","rows":12}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	fetchCalled := false
	result, fromCache, err := GetOrFetchWithPolicy("fda_cache", key, func() (pageData, error) {
		fetchCalled = true
		return pageData{}, nil
	}, nil)
	if err != nil {
		t.Fatalf("GetOrFetchWithPolicy() error = %v", err)
	}
	if !fromCache {
		t.Error("Expected the value to come from the cache")
	}
	if fetchCalled {
		t.Error("Fetch should not run on a cache hit")
	}
	if result.TableName != "Active Investigations" || result.Rows != 12 {
		t.Errorf("Result = %+v, want the cached table", result)
	}
}

func TestGetOrFetchWithPolicy_CacheMiss(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	key := "https://fda.test/outbreaks"
	fetchCalls := 0
	fetch := func() (pageData, error) {
		fetchCalls++
		return pageData{TableName: "Closed Investigations 2024", Rows: 18}, nil
	}

	result, fromCache, err := GetOrFetchWithPolicy("fda_cache", key, fetch, nil)
	if err != nil {
		t.Fatalf("GetOrFetchWithPolicy() error = %v", err)
	}
	if fromCache {
		t.Error("First call should fetch, not hit the cache")
	}
	if fetchCalls != 1 {
		t.Fatalf("Fetch ran %d times, want 1", fetchCalls)
	}
	if result.Rows != 18 {
		t.Errorf("Result rows = %d, want 18", result.Rows)
	}

	// Second call is served from the stored entry
	result, fromCache, err = GetOrFetchWithPolicy("fda_cache", key, fetch, nil)
	if err != nil {
		t.Fatalf("GetOrFetchWithPolicy() error = %v", err)
	}
	if !fromCache || fetchCalls != 1 {
		t.Errorf("Second call: fromCache=%v fetchCalls=%d, want cached result without a refetch", fromCache, fetchCalls)
	}
	if result.TableName != "Closed Investigations 2024" {
		t.Errorf("Result table = %q, want the cached table", result.TableName)
	}
}

func TestGetOrFetchWithPolicy_TTLExpiry(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	key := "https://fda.test/outbreaks"
	if err := cache.Set("fda_cache", key, `{"tableName":"Active Investigations","rows":3}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	setCachedAt(t, cache, key, time.Now().Add(-2*time.Hour))

	fetchCalled := false
	result, fromCache, err := GetOrFetchWithPolicy("fda_cache", key, func() (pageData, error) {
		fetchCalled = true
		return pageData{TableName: "Active Investigations", Rows: 5}, nil
	}, nil)
	if err != nil {
		t.Fatalf("GetOrFetchWithPolicy() error = %v", err)
	}
	if fromCache || !fetchCalled {
		t.Errorf("fromCache=%v fetchCalled=%v, want a refetch past the TTL", fromCache, fetchCalled)
	}
	if result.Rows != 5 {
		t.Errorf("Result rows = %d, want the refetched value", result.Rows)
	}
}

func TestGetOrFetchWithPolicy_FetchError(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	_, fromCache, err := GetOrFetchWithPolicy("fda_cache", "key", func() (pageData, error) {
		return pageData{}, &timeoutError{}
	}, nil)
	if err == nil {
		t.Fatal("Expected the fetch error to propagate")
	}
	if !strings.Contains(err.Error(), "failed to fetch data") {
		t.Errorf("Error = %q, want it wrapped as a fetch failure", err)
	}
	if fromCache {
		t.Error("fromCache should be false on a fetch error")
	}
}

type timeoutError struct{}

func (*timeoutError) Error() string { return "page load timed out" }

func TestGetOrFetchWithPolicy_SkipCaching(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	key := "https://fda.test/outbreaks"
	result, fromCache, err := GetOrFetchWithPolicy("fda_cache", key, func() (pageData, error) {
		return pageData{TableName: "Active Investigations", Rows: 0}, nil
	}, func(d pageData) bool {
		return d.Rows > 0
	})
	if err != nil {
		t.Fatalf("GetOrFetchWithPolicy() error = %v", err)
	}
	if fromCache {
		t.Error("fromCache should be false on a fetch")
	}
	if result.TableName != "Active Investigations" {
		t.Errorf("Result table = %q, want the fetched table", result.TableName)
	}

	// The empty result must not have been stored
	if _, found, _ := cache.Get("fda_cache", key, time.Hour); found {
		t.Error("A value rejected by the policy should not be cached")
	}
}

func TestGetOrFetchWithPolicy_CorruptEntry(t *testing.T) {
	cache := setupTestCache(t)
	withGlobalCache(t, cache)

	key := "https://fda.test/outbreaks"
	if err := cache.Set("fda_cache", key, "not json"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	fetchCalled := false
	result, fromCache, err := GetOrFetchWithPolicy("fda_cache", key, func() (pageData, error) {
		fetchCalled = true
		return pageData{TableName: "Active Investigations", Rows: 7}, nil
	}, nil)
	if err != nil {
		t.Fatalf("GetOrFetchWithPolicy() error = %v", err)
	}
	if fromCache || !fetchCalled {
		t.Errorf("fromCache=%v fetchCalled=%v, want a refetch over the corrupt entry", fromCache, fetchCalled)
	}
	if result.Rows != 7 {
		t.Errorf("Result rows = %d, want the refetched value", result.Rows)
	}

	// The refetch overwrites the corrupt payload
	data, found, err := cache.Get("fda_cache", key, time.Hour)
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if data == "not json" {
		t.Error("Expected the corrupt entry to be replaced")
	}
}

func TestGlobalCacheLifecycle(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	env := testutil.NewTestEnv(t)
	viper.Set("cache.dbfile", env.Path("cache.db"))
	viper.Set("cache.ttl", "24h")

	if err := ResetGlobalCache(); err != nil {
		t.Fatalf("ResetGlobalCache() error = %v", err)
	}
	t.Cleanup(func() { _ = ResetGlobalCache() })

	first, err := GetGlobalCache()
	if err != nil {
		t.Fatalf("GetGlobalCache() error = %v", err)
	}

	// Table creation happened on init
	if err := first.Set("fda_cache", "key", "{}"); err != nil {
		t.Fatalf("Set() on the initialized cache failed: %v", err)
	}

	second, err := GetGlobalCache()
	if err != nil {
		t.Fatalf("GetGlobalCache() error = %v", err)
	}
	if first != second {
		t.Error("GetGlobalCache() should return the same instance")
	}
}
