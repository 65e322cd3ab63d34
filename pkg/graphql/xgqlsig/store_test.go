package xgqlsig

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	client, mr := newTestRedis(t)
	store, err := NewRedisStore(client, WithRedisTTL(time.Hour), WithRedisPrefix("t:"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreMiss)

	sig, err := Compute(nil, "{ ping }", "")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "k", sig))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, sig, got)

	rk := "t:" + HashOf("k")
	assert.True(t, mr.Exists(rk))
	assert.Equal(t, time.Hour, mr.TTL(rk))
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	client, mr := newTestRedis(t)
	store, err := NewRedisStore(client)
	require.NoError(t, err)

	mr.HSet(DefaultRedisPrefix+HashOf("k"), fieldSignature, "query { a }", fieldHash, "bogus")
	_, err = store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestRedisStore_Validation(t *testing.T) {
	_, err := NewRedisStore(nil)
	assert.ErrorIs(t, err, ErrNilClient)

	client, _ := newTestRedis(t)
	_, err = NewRedisStore(client, WithRedisTTL(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestRepository_RedisUnavailableDegrades(t *testing.T) {
	client, mr := newTestRedis(t)
	store, err := NewRedisStore(client)
	require.NoError(t, err)
	r := newRepo(t, WithStore(store))

	mr.SetError("ERR store unavailable")
	sig, err := r.Resolve(context.Background(), "{ ping }", "")
	require.NoError(t, err)
	assert.NotEmpty(t, sig.Hash)
	assert.NotZero(t, r.Stats().StoreErrors)

	// 恢复后新的键写入 Redis
	mr.SetError("")
	_, err = r.Resolve(context.Background(), "{ pong }", "")
	require.NoError(t, err)
	assert.True(t, mr.Exists(DefaultRedisPrefix+HashOf(cacheKey("{ pong }", ""))))
}
