package perimeter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "perimeter:org:"

// Cache keeps perimeter lookups off Postgres for the hot membership-check
// path. Cache failures degrade to loader calls, never to request errors.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Fetch loads a cached perimeter or populates it using the loader. A nil
// cache passes straight through to the loader.
func (c *Cache) Fetch(ctx context.Context, orgID string, loader func(context.Context) (*Perimeter, error)) (*Perimeter, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	key := cacheKeyPrefix + orgID
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var p Perimeter
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			return &p, nil
		}
		// Corrupt entry: drop it and fall through to the loader.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		return loader(ctx)
	}

	p, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if data, jsonErr := json.Marshal(p); jsonErr == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return p, nil
}

// Invalidate removes the cached perimeter after a save.
func (c *Cache) Invalidate(ctx context.Context, orgID string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, cacheKeyPrefix+orgID).Err()
}
