package infra

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a best-effort JSON read-through cache on top of Redis.
// A nil *Cache, or one built with a nil client, misses on every read and
// ignores writes, so callers never branch on whether Redis is configured.
type Cache struct {
	rdb *redis.Client
}

func NewCache(rdb *redis.Client) *Cache { return &Cache{rdb: rdb} }

// GetJSON decodes the cached value into dest. It reports false on a miss or
// on any Redis / decode error.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// Generation returns the invalidation counter of key. It is 0 before the
// first Invalidate and whenever Redis cannot be read.
func (c *Cache) Generation(ctx context.Context, key string) int64 {
	if c == nil || c.rdb == nil {
		return 0
	}
	n, err := c.rdb.Get(ctx, generationKey(key)).Int64()
	if err != nil {
		return 0
	}
	return n
}

// SetJSONIfCurrent stores v under key only while the key's generation still
// equals gen, so a value computed before an Invalidate is never written back.
// It reports whether the value was stored.
func (c *Cache) SetJSONIfCurrent(ctx context.Context, key string, v interface{}, ttl time.Duration, gen int64) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	gk := generationKey(key)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, gk)
	return err == nil
}

// Invalidate drops key and bumps its generation in one transaction.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c == nil || c.rdb == nil {
		return
	}
	_, _ = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Del(ctx, key)
		return nil
	})
}

var errStaleGeneration = errors.New("cache: generation changed")

func generationKey(key string) string { return key + ":gen" }
