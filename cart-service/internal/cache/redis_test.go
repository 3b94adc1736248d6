package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/cartstate/cart-service/internal/domain"
	"github.com/fjod/cartstate/cart-service/internal/repository"
	"github.com/fjod/cartstate/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStore bound to it
func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, ttl, logger.Discard()), mr
}

func TestRead_Success(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)

	require.NoError(t, mr.Set(storeKey("session-1"), `[{"id":1,"amount":2}]`))

	data, err := store.Read(context.Background(), "session-1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"amount":2}]`, string(data))
}

func TestRead_Missing(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)

	data, err := store.Read(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, data)
}

func TestRead_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t, time.Hour)
	mr.Close()

	_, err := store.Read(context.Background(), "session-1")
	require.ErrorContains(t, err, "redis get failed")
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}

// failingExpire rejects EXPIRE and lets every other command through.
type failingExpire struct{}

func (failingExpire) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failingExpire) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "expire" {
			err := errors.New("READONLY You can't write against a read only replica.")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failingExpire) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRead_ExpireFailureStillReturnsValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	client.AddHook(failingExpire{})

	var logs bytes.Buffer
	store := NewRedisStore(client, time.Hour, slog.New(slog.NewJSONHandler(&logs, nil)))
	require.NoError(t, mr.Set(storeKey("session-1"), `[{"id":1,"amount":2}]`))

	data, err := store.Read(context.Background(), "session-1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"amount":2}]`, string(data))
	assert.Contains(t, logs.String(), "redis session ttl refresh failed")
	assert.Equal(t, time.Duration(0), mr.TTL(storeKey("session-1")))
}

func TestWrite_SetsSessionTTL(t *testing.T) {
	store, mr := setupTestRedis(t, 30*time.Minute)

	require.NoError(t, store.Write(context.Background(), "session-1", []byte("[]")))

	stored, err := mr.Get(storeKey("session-1"))
	require.NoError(t, err)
	assert.Equal(t, "[]", stored)
	assert.Equal(t, 30*time.Minute, mr.TTL(storeKey("session-1")))
}

func TestRead_SlidesTTL(t *testing.T) {
	store, mr := setupTestRedis(t, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "session-1", []byte("[]")))
	mr.FastForward(20 * time.Minute)
	assert.Equal(t, 10*time.Minute, mr.TTL(storeKey("session-1")))

	_, err := store.Read(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, mr.TTL(storeKey("session-1")))
}

func TestSessionExpires(t *testing.T) {
	store, mr := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "session-1", []byte("[]")))
	mr.FastForward(2 * time.Minute)

	_, err := store.Read(ctx, "session-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestZeroTTL_NeverExpires(t *testing.T) {
	store, mr := setupTestRedis(t, 0)

	require.NoError(t, store.Write(context.Background(), "session-1", []byte("[]")))
	assert.Equal(t, time.Duration(0), mr.TTL(storeKey("session-1")))
}

func TestCartRoundTrip(t *testing.T) {
	store, _ := setupTestRedis(t, time.Hour)
	ctx := context.Background()
	cart := domain.Cart{
		{ID: 1, Title: "Tennis", Price: 139.9, Amount: 2},
		{ID: 2, Title: "Boot", Price: 219.9, Amount: 1},
	}

	require.NoError(t, repository.SaveCart(ctx, store, repository.DefaultKey, cart))

	loaded, err := repository.LoadCart(ctx, store, repository.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, cart, loaded)
}

func TestStoreKey_Format(t *testing.T) {
	assert.Equal(t, "cart:test123", storeKey("test123"))
}
