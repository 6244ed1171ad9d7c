// Package cache wraps an optional Redis client used for cooldown markers and
// short-lived read caches. The whole package is built to degrade: when Redis
// is not configured, or a call fails, every cooldown check reports "not on
// cooldown" (fail open). Cooldown enforcement is an abuse-prevention nicety,
// not a correctness guarantee, so an unreachable cache must never block the
// bot.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache is a nil-tolerant wrapper around a Redis client. The zero value and
// a Cache constructed from an empty URL are both valid, disabled caches.
type Cache struct {
	rdb *redis.Client
}

// New constructs a Cache from a Redis URL. An empty URL returns a disabled
// cache; a malformed URL is an error so misconfiguration is caught at
// startup rather than silently running without cooldowns.
func New(url string) (*Cache, error) {
	if url == "" {
		return &Cache{}, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Cache{rdb: redis.NewClient(opt)}, nil
}

// Enabled reports whether a Redis backend is configured.
func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

// Ping verifies connectivity. Disabled caches always succeed.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

// CheckAndMark implements the cooldown check-and-mark for subject key with
// the given window.
//
// If no marker exists (or it has expired), a new marker is written with
// TTL = window and the call reports onCooldown=false. If a marker exists,
// the call reports onCooldown=true with the remaining window; the existing
// marker is left untouched so the window is preserved, not extended.
//
// Any backend failure, and the disabled cache, report onCooldown=false.
func (c *Cache) CheckAndMark(ctx context.Context, key string, window time.Duration) (onCooldown bool, remaining time.Duration) {
	if !c.Enabled() || window <= 0 {
		return false, 0
	}
	// SET NX is the atomic check-then-act: exactly one caller per window
	// writes the marker.
	set, err := c.rdb.SetNX(ctx, key, time.Now().UnixMilli(), window).Result()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cooldown check failed; failing open")
		return false, 0
	}
	if set {
		return false, 0
	}
	ttl, err := c.rdb.PTTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		// Marker vanished between SETNX and PTTL, or the read failed.
		return false, 0
	}
	return true, ttl
}

// RemainingSeconds converts a cooldown remainder to the whole seconds value
// used in user-facing messages, rounding up so "1ms left" reads as 1s.
func RemainingSeconds(remaining time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// Get reads a cached string value. A miss and a backend failure both report
// ok=false.
func (c *Cache) Get(ctx context.Context, key string) (value string, ok bool) {
	if !c.Enabled() {
		return "", false
	}
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

// SetTTL stores a string value with an expiry. Failures are logged and
// swallowed; a cache write is never worth failing an operation over.
func (c *Cache) SetTTL(ctx context.Context, key, value string, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Delete removes a key. Missing keys and backend failures are ignored.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}
