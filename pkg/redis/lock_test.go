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

func TestLockerExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewLocker(rdb, "lock:", time.Minute, nil)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "h1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "h1")
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := l.Acquire(ctx, "h2")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists("lock:h1"))

	again, err := l.Acquire(ctx, "h1")
	require.NoError(t, err)
	again()
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewLocker(rdb, "lock:", time.Minute, nil)
	release, err := l.Acquire(context.Background(), "h1")
	require.NoError(t, err)

	// lock expired and was taken by someone else
	require.NoError(t, mr.Set("lock:h1", "someone-else"))
	release()

	v, err := mr.Get("lock:h1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestNilLockerAlwaysAcquires(t *testing.T) {
	var l *Locker
	release, err := l.Acquire(context.Background(), "x")
	require.NoError(t, err)
	release()

	l = NewLocker(nil, "lock:", time.Minute, nil)
	release, err = l.Acquire(context.Background(), "x")
	require.NoError(t, err)
	release()
}

func TestLockerRenewsTTLWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewLocker(rdb, "lock:", 300*time.Millisecond, nil)
	release, err := l.Acquire(context.Background(), "h1")
	require.NoError(t, err)

	// miniredis only ages keys on FastForward
	mr.FastForward(250 * time.Millisecond)
	require.Eventually(t, func() bool {
		return mr.TTL("lock:h1") > 200*time.Millisecond
	}, 2*time.Second, 20*time.Millisecond)

	release()
	release()
	assert.False(t, mr.Exists("lock:h1"))
}
