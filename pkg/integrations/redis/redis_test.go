package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "://nope")
	assert.Error(t, err)
}

func TestRunLocker(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	locker := NewRunLocker(RunLockerDependencies{Client: client})

	token, ok, err := locker.TryLock(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	// A stale token must not release someone else's lock.
	require.NoError(t, locker.Unlock(ctx, "stale"))
	assert.True(t, mr.Exists(runLockKey))

	require.NoError(t, locker.Unlock(ctx, token))
	assert.False(t, mr.Exists(runLockKey))

	_, ok, err = locker.TryLock(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLocker_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	locker := NewRunLocker(RunLockerDependencies{Client: client, Key: "test-lock"})

	_, ok, err := locker.TryLock(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunLocker_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	locker := NewRunLocker(RunLockerDependencies{Client: client})

	token, ok, err := locker.TryLock(ctx, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(8 * time.Second)

	renewed, err := locker.Extend(ctx, token, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, renewed)

	mr.FastForward(8 * time.Second)
	assert.True(t, mr.Exists(runLockKey), "renewed lease outlives the original ttl")

	renewed, err = locker.Extend(ctx, "stale", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, renewed)

	mr.FastForward(20 * time.Second)

	renewed, err = locker.Extend(ctx, token, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, renewed, "expired lease cannot be renewed")
}

func TestProxyCache(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	cache := NewProxyCache(ProxyCacheDependencies{Client: client})

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, cache.Put(ctx, "http://1.2.3.4:8080", time.Minute))

	got, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://1.2.3.4:8080", got)

	require.NoError(t, cache.Delete(ctx))
	assert.False(t, mr.Exists(proxyCacheKey))

	require.NoError(t, cache.Put(ctx, "http://1.2.3.4:8080", time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
