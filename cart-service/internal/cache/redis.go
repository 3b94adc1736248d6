package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/cartstate/cart-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

const DefaultSessionTTL = 24 * time.Hour

// RedisStore implements repository.Store on top of redis string values.
// Every read and write pushes the expiry out by the session TTL, so an idle
// session's cart disappears on its own. A TTL of zero disables expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisStore {
	if ttl < 0 {
		ttl = DefaultSessionTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

var _ repository.Store = (*RedisStore)(nil)

func (r *RedisStore) Read(ctx context.Context, key string) ([]byte, error) {
	k := storeKey(key)

	data, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	// the value was read; a failed refresh only shortens the session
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, k, r.ttl).Err(); err != nil {
			r.log.WarnContext(ctx, "redis session ttl refresh failed", "key", k, "err", err)
		}
	}
	return data, nil
}

func (r *RedisStore) Write(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, storeKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func storeKey(key string) string {
	return fmt.Sprintf("cart:%s", key)
}
