package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when no value is stored for a key, or it
// has expired.
var ErrCacheMiss = errors.New("cache: miss")

// Cache is a type-safe, prefix-isolated view over a shared Client. Keys are
// hashed so arbitrarily long or binary application keys (full description
// text, for instance) never hit Redis's key-length or encoding limits.
type Cache[T any] struct {
	client *Client
	prefix string
	ttl    time.Duration
}

// NewCache returns a Cache storing values of type T under prefix with ttl.
func NewCache[T any](client *Client, prefix string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache[T]) hashedKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return c.prefix + ":" + hex.EncodeToString(sum[:])
}

// Set stores *value under key, replacing any existing entry and resetting
// its TTL.
func (c *Cache[T]) Set(ctx context.Context, key string, value *T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.rdb.Set(ctx, c.hashedKey(key), data, c.ttl).Err()
}

// Get returns the value stored under key, or ErrCacheMiss if absent or
// expired.
func (c *Cache[T]) Get(ctx context.Context, key string) (*T, error) {
	data, err := c.client.rdb.Get(ctx, c.hashedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return &value, nil
}

// Delete removes key's entry, if any.
func (c *Cache[T]) Delete(ctx context.Context, key string) error {
	return c.client.rdb.Del(ctx, c.hashedKey(key)).Err()
}
