package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/dispatchsvc/domain"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLocker(client), mr
}

func TestLockers_Exclusive(t *testing.T) {
	redisLocker, _ := newRedisLocker(t)

	lockers := map[string]domain.KeyedLocker{
		"redis": redisLocker,
		"local": NewLocalLocker(),
	}

	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			unlock, ok, err := locker.TryLock(ctx, "otp:233241234567:login", time.Minute)
			require.NoError(t, err)
			require.True(t, ok)

			_, ok, err = locker.TryLock(ctx, "otp:233241234567:login", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "second lock on same key must fail")

			other, ok, err := locker.TryLock(ctx, "otp:233241234567:registration", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "different key must not contend")
			other()

			unlock()
			again, ok, err := locker.TryLock(ctx, "otp:233241234567:login", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "lock must be reusable after unlock")
			again()
		})
	}
}

func TestRedisLocker_ExpiresWithTTL(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	staleUnlock, ok, _ := locker.TryLock(ctx, "k", time.Second)
	require.True(t, ok)
	mr.FastForward(2 * time.Second)

	_, ok, _ = locker.TryLock(ctx, "k", time.Minute)
	require.True(t, ok)

	staleUnlock()
	assert.True(t, mr.Exists("lock:k"), "expired holder must not release the new owner's lock")
}

func TestLocalLocker_ExpiresWithTTL(t *testing.T) {
	locker := NewLocalLocker()
	now := time.Now()
	locker.now = func() time.Time { return now }

	_, ok, _ := locker.TryLock(context.Background(), "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = locker.TryLock(context.Background(), "k", time.Second)
	assert.True(t, ok)
}

func TestLocalLocker_ConcurrentSingleWinner(t *testing.T) {
	locker := NewLocalLocker()
	var winners int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := locker.TryLock(context.Background(), "k", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}
