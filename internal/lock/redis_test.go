package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisLocker(client, "test:lock:"), mr
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, TeamKey(7), "a", 0, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := mr.Get("test:lock:team:7")
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	ok, err = l.TryAcquire(ctx, TeamKey(7), "b", 30*time.Millisecond, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, TeamKey(7), "a"))
	assert.False(t, mr.Exists("test:lock:team:7"))

	ok, err = l.TryAcquire(ctx, TeamKey(7), "b", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ReleaseIsTokenChecked(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, UserKey(1), "a", 0, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, UserKey(1), "intruder"))
	assert.True(t, mr.Exists("test:lock:user:1"))

	require.NoError(t, l.Release(ctx, UserKey(2), "a"), "releasing a free lock is a no-op")
}

func TestRedisLocker_ExpiresAfterTTL(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, TeamKey(1), "a", 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	ok, err = l.TryAcquire(ctx, TeamKey(1), "b", 0, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_SurfacesBackendErrors(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	mr.Close()

	_, err := l.TryAcquire(context.Background(), TeamKey(1), "a", 0, time.Second)
	assert.Error(t, err)
}

func TestRedisLocker_ExtendIsTokenChecked(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, TeamKey(3), "a", 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Extend(ctx, TeamKey(3), "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Second, mr.TTL("test:lock:team:3"))

	ok, err = l.Extend(ctx, TeamKey(3), "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("test:lock:team:3"))

	mr.FastForward(2 * time.Minute)
	ok, err = l.Extend(ctx, TeamKey(3), "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
