// Package idempotency records client-supplied Idempotency-Key values so a
// retried mint or resale is not applied twice.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idem"

// RedisDeduper stores submitted keys in Redis so every API instance sees the
// same set.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

// NewRedisClient builds a client from a redis:// URL, or a bare host:port.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		if rawURL == "" {
			return nil, fmt.Errorf("redis url is empty")
		}
		opts = &redis.Options{Addr: rawURL}
	}
	return redis.NewClient(opts), nil
}

func (r *RedisDeduper) key(scope, caller, key string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyPrefix, scope, caller, key)
}

// Add records the key for caller within scope. It returns false when the key
// was already present.
func (r *RedisDeduper) Add(ctx context.Context, scope, caller, key string) (bool, error) {
	return r.client.SetNX(ctx, r.key(scope, caller, key), 1, r.ttl).Result()
}

// Remove forgets a key so the caller may retry after a failed operation.
func (r *RedisDeduper) Remove(ctx context.Context, scope, caller, key string) error {
	return r.client.Del(ctx, r.key(scope, caller, key)).Err()
}
