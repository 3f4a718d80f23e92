// Copyright 2025 James Ross
// Package cache is a short-TTL cache of path -> (absolute path, kind)
// fronting the Path Resolver, so repeated list/metaquery calls against the
// same collection in one stream don't re-stat on every item (spec SPEC_FULL
// §2.4). Grounded on the teacher's internal/redisclient client construction,
// standardized here on redis/go-redis/v9 to match the rest of the module.
package cache

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jamesross/dgrid-batch/internal/config"
)

// Entry is a cached resolution result.
type Entry struct {
	AbsolutePath string `json:"absolute_path"`
	Kind         int    `json:"kind"`
}

// PathCache is a thin wrapper over a redis client scoped to stat entries.
type PathCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New builds a PathCache from the cache section of cfg.
func New(cfg *config.Config) *PathCache {
	return &PathCache{
		rdb: redis.NewClient(&redis.Options{
			Addr:         cfg.Cache.RedisAddr,
			DB:           cfg.Cache.RedisDB,
			PoolSize:     10 * runtime.NumCPU(),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		}),
		ttl: cfg.Cache.StatTTL,
	}
}

func statKey(path string) string { return "dgrid:stat:" + path }

// Get returns a cached entry for path, if present and unexpired.
func (c *PathCache) Get(ctx context.Context, path string) (Entry, bool) {
	raw, err := c.rdb.Get(ctx, statKey(path)).Result()
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

// Set caches an entry for path with the configured TTL.
func (c *PathCache) Set(ctx context.Context, path string, e Entry) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, statKey(path), raw, c.ttl).Err()
}

// Invalidate drops any cached entry for path. Called by any primitive that
// mutates the target (metamod/chmod/put/move/remove/mkcoll/rmcoll).
func (c *PathCache) Invalidate(ctx context.Context, path string) {
	_ = c.rdb.Del(ctx, statKey(path)).Err()
}

// Close releases the underlying connection pool.
func (c *PathCache) Close() error {
	return c.rdb.Close()
}
