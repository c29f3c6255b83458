// Package redis wraps a go-redis client with lazy, atomic connection
// establishment and a generic, prefix-isolated, JSON-serialising cache. Its
// ByteStore adapter backs the prerequisite validator's optional
// distributed checker-result cache via pkg/cache.Store, for deployments
// that run more than one instance of the core behind a shared Redis.
package redis

import (
	"context"
	"sync/atomic"

	"github.com/go-logr/logr"
	goredis "github.com/redis/go-redis/v9"
)

// Client owns one go-redis connection, establishing it lazily on first use
// and remembering success so later calls take an atomic fast path instead
// of re-pinging.
type Client struct {
	rdb       *goredis.Client
	log       logr.Logger
	connected atomic.Bool
}

// NewClient returns a Client wrapping opts without connecting yet.
func NewClient(opts *goredis.Options, log logr.Logger) *Client {
	return &Client{rdb: goredis.NewClient(opts), log: log}
}

// GetClient exposes the underlying go-redis client for callers needing
// operations this package does not wrap directly.
func (c *Client) GetClient() *goredis.Client {
	return c.rdb
}

// EnsureConnection pings Redis once and remembers success; subsequent
// calls skip the round trip entirely.
func (c *Client) EnsureConnection(ctx context.Context) error {
	if c.connected.Load() {
		return nil
	}

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.log.Error(err, "redis connection check failed")
		return err
	}

	c.connected.Store(true)
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
