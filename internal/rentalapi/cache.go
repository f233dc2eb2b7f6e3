package rentalapi

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// cacheKeyPrefix namespaces cached list pages in Redis.
const cacheKeyPrefix = "rentalapi:page:"

// PageCache stores raw upstream list responses. A miss returns ok=false and
// a nil error.
type PageCache interface {
	Get(ctx context.Context, key string) (body []byte, ok bool, err error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
}

// RedisCache is a PageCache backed by Redis.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps a connected Redis client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get returns the cached body for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, cacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading page cache: %w", err)
	}
	return data, true, nil
}

// Set stores body under key with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, cacheKeyPrefix+key, body, ttl).Err(); err != nil {
		return fmt.Errorf("writing page cache: %w", err)
	}
	return nil
}

// cacheKey derives a fixed-length key from the request URL and the caller's
// token. Pages are scoped per token because the backend filters by role.
func cacheKey(rawURL, token string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(token))
	h.Write([]byte{0})
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}
