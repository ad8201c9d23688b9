package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_ExclusiveUntilRelease(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "team:1", "a", 0, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.TryAcquire(ctx, "team:1", "b", 30*time.Millisecond, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.TryAcquire(ctx, "team:2", "b", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different names do not contend")

	require.NoError(t, l.Release(ctx, "team:1", "a"))

	ok, err = l.TryAcquire(ctx, "team:1", "b", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLocker_ReleaseIsTokenChecked(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "team:1", "a", 0, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, "team:1", "intruder"))
	require.NoError(t, l.Release(ctx, "team:404", "a"))

	ok, err = l.TryAcquire(ctx, "team:1", "b", 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "foreign release must not free the lock")
}

func TestLocalLocker_ExpiresAfterTTL(t *testing.T) {
	l := NewLocalLocker()
	now := time.Now()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "team:1", "a", 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)

	ok, err = l.TryAcquire(ctx, "team:1", "b", 0, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// the stale holder's release must not drop the new holder's lock
	require.NoError(t, l.Release(ctx, "team:1", "a"))
	ok, err = l.TryAcquire(ctx, "team:1", "c", 0, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalLocker_WaitsForRelease(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "team:1", "a", 0, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = l.Release(ctx, "team:1", "a")
	}()

	ok, err = l.TryAcquire(ctx, "team:1", "b", 2*time.Second, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLocker_HonoursContext(t *testing.T) {
	l := NewLocalLocker()
	ok, err := l.TryAcquire(context.Background(), "team:1", "a", 0, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = l.TryAcquire(ctx, "team:1", "b", time.Second, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLocker_Extend(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, err := l.TryAcquire(ctx, "team:1", "a", 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Extend(ctx, "team:1", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "other token cannot extend")

	ok, err = l.Extend(ctx, "team:1", "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	ok, err = l.TryAcquire(ctx, "team:1", "b", 0, time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "extended lock still held")

	now = now.Add(time.Minute)
	ok, err = l.Extend(ctx, "team:1", "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "expired lock cannot be extended")
}
