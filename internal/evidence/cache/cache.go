// Package cache wraps an evidence.Source with a Redis-backed query cache.
// Literature for a given query moves slowly, so repeat runs against the same
// procedure avoid re-hitting the search API.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"debrief/internal/evidence"
)

const (
	searchKeyPrefix = "ev:search:"
	countKeyPrefix  = "ev:count:"
)

// CachedSource serves snippet searches from Redis when possible, falling
// through to the inner source on miss or on any cache error.
type CachedSource struct {
	inner  evidence.Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(c *CachedSource)

func WithLogger(logger *slog.Logger) Option {
	return func(c *CachedSource) {
		c.logger = logger
	}
}

// New wraps inner with a Redis cache. A nil client returns inner unchanged,
// so wiring stays unconditional at startup.
func New(inner evidence.Source, client *redis.Client, ttl time.Duration, opts ...Option) evidence.Source {
	if client == nil {
		return inner
	}
	c := &CachedSource{inner: inner, client: client, ttl: ttl}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedSource) Configured() bool {
	return c.inner.Configured()
}

func (c *CachedSource) Search(ctx context.Context, query string, limit int) ([]evidence.Snippet, error) {
	key := searchKeyPrefix + hashKey(query, strconv.Itoa(limit))

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var snippets []evidence.Snippet
		if err := json.Unmarshal(data, &snippets); err == nil {
			return snippets, nil
		}
		// Corrupt entry: drop it and refetch.
		c.client.Del(ctx, key)
	}

	snippets, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snippets); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "evidence cache write failed", "error", err)
		}
	}
	return snippets, nil
}

func (c *CachedSource) CountByType(ctx context.Context, query string, citationType string) (int, error) {
	key := countKeyPrefix + citationType + ":" + hashKey(query)

	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		if count, err := strconv.Atoi(val); err == nil {
			return count, nil
		}
	}

	count, err := c.inner.CountByType(ctx, query, citationType)
	if err != nil {
		return 0, err
	}

	if err := c.client.Set(ctx, key, strconv.Itoa(count), c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "evidence cache write failed", "error", err)
	}
	return count, nil
}

func hashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%s\x00", p)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
