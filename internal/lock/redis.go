package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rental-modification-backend/internal/logger"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-taken by another replica is never released by us.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// redisClient is the subset of *redis.Client used here.
type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker is a Locker shared by every replica through Redis SET NX PX.
type RedisLocker struct {
	client   redisClient
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
}

// NewRedisLocker builds a locker whose keys expire after ttl. Acquire polls
// for at most wait before giving up with ErrBusy.
func NewRedisLocker(client redisClient, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait, interval: 25 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		logger.ExternalServiceCall("redis", "SETNX", "key", key)
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		logger.ExternalServiceResult("redis", "SETNX", err, "key", key, "acquired", ok)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.interval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's ctx may already be cancelled; release must still run.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
			if err != nil {
				logger.Warn("Failed to release sub-order lock; it will expire", "key", key, "error", err)
			}
		})
	}, nil
}
