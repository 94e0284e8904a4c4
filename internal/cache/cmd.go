package cache

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// InvalidateCacheCmd clears the cached page data for one source.
type InvalidateCacheCmd struct {
	Source string `arg:"" help:"Cache source to invalidate: fda" required:""`
}

func (i *InvalidateCacheCmd) Run() error {
	table, ok := SourceTableName(i.Source)
	if !ok {
		return fmt.Errorf("unknown cache source %q (valid sources: %s)", i.Source, strings.Join(SourceNames(), ", "))
	}

	slog.Info("Invalidating cache", "source", i.Source, "database", viper.GetString("cache.dbfile"))

	cacheDB, err := GetGlobalCache()
	if err != nil {
		return fmt.Errorf("failed to open the cache database: %w", err)
	}

	deleted, err := cacheDB.InvalidateSource(table)
	if err != nil {
		return fmt.Errorf("failed to invalidate the cache: %w", err)
	}

	slog.Info("Cache invalidated", "source", i.Source, "deleted", deleted)
	return nil
}
