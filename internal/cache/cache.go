package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"atelier-commission/internal/store"

	"go.uber.org/zap"
)

// DefaultTTL read-model entries expire after an hour; correctness never relies
// on expiry; every mutating operation invalidates its key-set synchronously.
const DefaultTTL = time.Hour

// Cache is a read-through JSON cache over the KV store.
type Cache struct {
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger
}

func New(kv store.KV, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{kv: kv, ttl: ttl, logger: logger}
}

// GetJSON returns the cached value under key if present and unexpired,
// otherwise computes it with load, stores it with the cache TTL and returns it.
// dest must be a pointer. Cache backend failures degrade to the loader: a
// broken Redis must not break reads.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any, load func(context.Context) (any, error)) error {
	raw, err := c.kv.Get(ctx, key)
	if err == nil {
		if uerr := json.Unmarshal([]byte(raw), dest); uerr == nil {
			return nil
		}
		// corrupted entry: drop it and recompute
		if derr := c.kv.Del(ctx, key); derr != nil {
			c.logger.Warn("Failed to drop corrupted cache entry", zap.String("key", key), zap.Error(derr))
		}
	} else if err != store.ErrMiss {
		c.logger.Warn("Cache read failed, falling through to store", zap.String("key", key), zap.Error(err))
	}

	value, err := load(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if serr := c.kv.Set(ctx, key, string(data), c.ttl); serr != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(serr))
	}

	return json.Unmarshal(data, dest)
}

// Invalidate deletes the given keys immediately. Mutating operations call this
// synchronously before reporting success, so readers inside the TTL window
// never observe a pre-write snapshot.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}
	c.logger.Debug("Invalidated cache keys", zap.Strings("keys", keys))
	return nil
}
