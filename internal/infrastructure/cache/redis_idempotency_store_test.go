package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisIdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIdempotencyStore(client, "test:"), mr
}

func TestRedisIdempotencyStore_Reserve(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	ok, err := store.MarkProcessed(ctx, "tenant:key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkProcessed(ctx, "tenant:key-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation must fail")
	assert.True(t, mr.Exists("test:tenant:key-1"))

	processed, err := store.IsProcessed(ctx, "tenant:key-1")
	require.NoError(t, err)
	assert.True(t, processed)

	mr.FastForward(2 * time.Minute)
	ok, err = store.MarkProcessed(ctx, "tenant:key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "reservation expires with its ttl")
}

func TestRedisIdempotencyStore_Results(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	got, err := store.GetResult(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = store.MarkProcessed(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.NoError(t, store.SaveResult(ctx, "k", []byte(`{"status":201}`), time.Minute))

	got, err = store.GetResult(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":201}`, string(got))

	require.NoError(t, store.Release(ctx, "k"))
	processed, err := store.IsProcessed(ctx, "k")
	require.NoError(t, err)
	assert.False(t, processed)
	got, err = store.GetResult(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisIdempotencyStore_ErrorsWhenDown(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.MarkProcessed(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}
