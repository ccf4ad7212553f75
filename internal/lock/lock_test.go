package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/stockroom/internal/lock"
)

func newRedisLocker(t *testing.T) (*lock.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return lock.NewRedis(client, time.Minute), mr
}

func TestLockers_Exclusive(t *testing.T) {
	redisLocker, _ := newRedisLocker(t)

	lockers := map[string]lock.Locker{
		"local": lock.NewLocal(),
		"redis": redisLocker,
	}

	for name, l := range lockers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			unlock, err := l.TryLock(ctx, "import-scan")
			require.NoError(t, err)

			_, err = l.TryLock(ctx, "import-scan")
			assert.ErrorIs(t, err, lock.ErrHeld)

			// Other names are independent.
			other, err := l.TryLock(ctx, "something-else")
			require.NoError(t, err)
			defer other(ctx)

			require.NoError(t, unlock(ctx))

			again, err := l.TryLock(ctx, "import-scan")
			require.NoError(t, err)
			require.NoError(t, again(ctx))
		})
	}
}

func TestRedis_ExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	var (
		ctx       = context.Background()
		l, mr     = newRedisLocker(t)
		unlock, _ = l.TryLock(ctx, "import-scan")
	)
	require.NotNil(t, unlock)

	mr.FastForward(2 * time.Minute)

	// Someone else takes over after expiry.
	theirs, err := l.TryLock(ctx, "import-scan")
	require.NoError(t, err)

	assert.ErrorIs(t, unlock(ctx), lock.ErrNotHeld)
	assert.True(t, mr.Exists("stockroom:lock:import-scan"))
	require.NoError(t, theirs(ctx))
	assert.False(t, mr.Exists("stockroom:lock:import-scan"))
}

func TestRedis_Unavailable(t *testing.T) {
	l, mr := newRedisLocker(t)
	mr.Close()

	_, err := l.TryLock(context.Background(), "import-scan")
	require.Error(t, err)
	assert.NotErrorIs(t, err, lock.ErrHeld)
}
