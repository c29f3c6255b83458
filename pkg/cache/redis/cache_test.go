package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	goredis "github.com/redis/go-redis/v9"

	rediscache "github.com/paldcore/paldcore/pkg/cache/redis"
)

func TestRedisCache(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Redis Cache Suite")
}

var _ = Describe("Cache", func() {
	var (
		ctx       context.Context
		miniRedis *miniredis.Miniredis
		client    *rediscache.Client
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		miniRedis, err = miniredis.Run()
		Expect(err).ToNot(HaveOccurred())

		client = rediscache.NewClient(&goredis.Options{Addr: miniRedis.Addr()}, logr.Discard())
		Expect(client.EnsureConnection(ctx)).To(Succeed())
	})

	AfterEach(func() {
		if client != nil {
			_ = client.Close()
		}
		if miniRedis != nil {
			miniRedis.Close()
		}
	})

	It("stores and retrieves string values", func() {
		cache := rediscache.NewCache[string](client, "strings", 5*time.Minute)

		value := "hello pald"
		Expect(cache.Set(ctx, "key1", &value)).To(Succeed())

		got, err := cache.Get(ctx, "key1")
		Expect(err).ToNot(HaveOccurred())
		Expect(*got).To(Equal("hello pald"))
	})

	It("returns ErrCacheMiss for an absent key", func() {
		cache := rediscache.NewCache[string](client, "strings", 5*time.Minute)

		got, err := cache.Get(ctx, "missing")
		Expect(err).To(Equal(rediscache.ErrCacheMiss))
		Expect(got).To(BeNil())
	})

	It("expires entries after their TTL", func() {
		cache := rediscache.NewCache[string](client, "ttl", time.Second)

		value := "expires soon"
		Expect(cache.Set(ctx, "k", &value)).To(Succeed())

		miniRedis.FastForward(2 * time.Second)

		_, err := cache.Get(ctx, "k")
		Expect(err).To(Equal(rediscache.ErrCacheMiss))
	})

	It("isolates keys by prefix", func() {
		cacheA := rediscache.NewCache[string](client, "prefix-a", 5*time.Minute)
		cacheB := rediscache.NewCache[string](client, "prefix-b", 5*time.Minute)

		a, b := "from-a", "from-b"
		Expect(cacheA.Set(ctx, "shared", &a)).To(Succeed())
		Expect(cacheB.Set(ctx, "shared", &b)).To(Succeed())

		gotA, err := cacheA.Get(ctx, "shared")
		Expect(err).ToNot(HaveOccurred())
		Expect(*gotA).To(Equal("from-a"))

		gotB, err := cacheB.Get(ctx, "shared")
		Expect(err).ToNot(HaveOccurred())
		Expect(*gotB).To(Equal("from-b"))
	})

	It("deletes an entry", func() {
		cache := rediscache.NewCache[int](client, "ints", 5*time.Minute)

		value := 42
		Expect(cache.Set(ctx, "n", &value)).To(Succeed())
		Expect(cache.Delete(ctx, "n")).To(Succeed())

		_, err := cache.Get(ctx, "n")
		Expect(err).To(Equal(rediscache.ErrCacheMiss))
	})
})
