package redis

import (
	"context"
	"time"

	"github.com/paldcore/paldcore/pkg/cache"
)

// ByteStore adapts a Client to the cache.Store interface, letting
// components written against cache.Store (the prerequisite validator's
// optional distributed checker-result cache) run against Redis without
// depending on this package's generic Cache[T] directly.
type ByteStore struct {
	raw *Cache[[]byte]
}

// NewByteStore returns a cache.Store backed by client, namespaced under
// prefix; every entry it writes gets the expiry ttl.
func NewByteStore(client *Client, prefix string, ttl time.Duration) *ByteStore {
	return &ByteStore{raw: NewCache[[]byte](client, prefix, ttl)}
}

// Get implements cache.Store.
func (b *ByteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := b.raw.Get(ctx, key)
	if err != nil {
		if err == ErrCacheMiss {
			return nil, false, nil
		}
		return nil, false, err
	}
	return *value, true, nil
}

// Set implements cache.Store. The TTL given to NewByteStore always
// applies; the ttl argument is accepted for interface conformance and is
// ignored.
func (b *ByteStore) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return b.raw.Set(ctx, key, &value)
}

// Delete implements cache.Store.
func (b *ByteStore) Delete(ctx context.Context, key string) error {
	return b.raw.Delete(ctx, key)
}

var _ cache.Store = (*ByteStore)(nil)
