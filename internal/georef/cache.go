package georef

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "georef"

// CachedSource serves listings from Redis, falling back to the wrapped
// Source on a miss. Errors are never cached. Redis is best-effort: when it
// fails the listing is served from the wrapped Source.
type CachedSource struct {
	next   Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps next with a Redis cache. A nil client disables caching.
func NewCachedSource(next Source, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSource{next: next, client: client, ttl: ttl, logger: logger}
}

// Provinces implements Source.
func (c *CachedSource) Provinces(ctx context.Context) ([]Location, error) {
	return c.fetch(ctx, buildKey("provincias"), func(ctx context.Context) ([]Location, error) {
		return c.next.Provinces(ctx)
	})
}

// Departments implements Source.
func (c *CachedSource) Departments(ctx context.Context, provincia string) ([]Location, error) {
	return c.fetch(ctx, buildKey("departamentos", provincia), func(ctx context.Context) ([]Location, error) {
		return c.next.Departments(ctx, provincia)
	})
}

// Localities implements Source.
func (c *CachedSource) Localities(ctx context.Context, provincia, departamento string) ([]Location, error) {
	return c.fetch(ctx, buildKey("localidades", provincia, departamento), func(ctx context.Context) ([]Location, error) {
		return c.next.Localities(ctx, provincia, departamento)
	})
}

// Purge drops every cached listing.
func (c *CachedSource) Purge(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, cacheKeyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *CachedSource) fetch(ctx context.Context, key string, loader func(context.Context) ([]Location, error)) ([]Location, error) {
	if c.client == nil {
		return loader(ctx)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []Location
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("georef cache read", slog.String("key", key), slog.Any("error", err))
	}

	locations, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(locations)
	if err != nil {
		return locations, nil
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("georef cache write", slog.String("key", key), slog.Any("error", err))
	}
	return locations, nil
}

// buildKey folds the parent names so "Córdoba" and "CORDOBA" share an entry.
func buildKey(level string, parents ...string) string {
	parts := make([]string, 0, len(parents)+2)
	parts = append(parts, cacheKeyPrefix, level)
	for _, p := range parents {
		parts = append(parts, Fold(p))
	}
	return strings.Join(parts, ":")
}
