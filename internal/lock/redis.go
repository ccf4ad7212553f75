package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL caps how long a crashed holder can keep others out.
	DefaultTTL = 10 * time.Minute

	keyPrefix = "stockroom:lock:"
)

// Deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Redis is a Locker shared by every process talking to the same redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) TryLock(ctx context.Context, name string) (Unlock, error) {
	var (
		key   = keyPrefix + name
		token = uuid.NewString()
	)

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return func(ctx context.Context) error {
		res, err := unlockScript.Run(ctx, r.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("failed to release lock: %w", err)
		}
		if res == 0 {
			return ErrNotHeld
		}
		return nil
	}, nil
}
