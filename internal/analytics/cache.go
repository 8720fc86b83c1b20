package analytics

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a short-TTL Redis read-through cache for dashboard stats. All
// methods are nil-safe and degrade to a miss on any Redis failure; caching
// never turns into a request failure.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache creates a cache with the given TTL.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// StatsKey names the cached dashboard entry for one user.
func StatsKey(userID string) string { return "rollcall:stats:" + userID }

// Get loads a cached value into dest, reporting whether it was a hit.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(payload, dest) == nil
}

// Set stores a value under key. Failures are logged and dropped.
func (c *Cache) Set(ctx context.Context, key string, v any) {
	if c == nil || c.rdb == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Printf("stats cache set failed: %v", err)
	}
}

// Invalidate drops the cached dashboards for the given users.
func (c *Cache) Invalidate(ctx context.Context, userIDs ...string) {
	if c == nil || c.rdb == nil || len(userIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, StatsKey(id))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("stats cache invalidate failed: %v", err)
	}
}
