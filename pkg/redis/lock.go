// pkg/redis/lock.go
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock taken over by another replica is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker is a best-effort distributed mutex built on SET NX PX.
type Locker struct {
	client *Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewLocker creates a locker whose keys are namespaced by prefix. ttl bounds
// how long a crashed holder can block others.
func NewLocker(client *Client, prefix string, ttl time.Duration, logger *zap.Logger) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		retry:  50 * time.Millisecond,
		logger: logger,
	}
}

// Lock blocks until the lock for key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := fmt.Sprintf("%s:%s", l.prefix, key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to acquire lock %s: %w", lockKey, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() { l.release(lockKey, token) }, nil
}

// release drops the lock if token still owns it. A failed release leaves
// the key to expire after the TTL.
func (l *Locker) release(lockKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client.client, []string{lockKey}, token).Err(); err != nil && err != redis.Nil {
		l.logger.Warn("failed to release lock, held until ttl expires",
			zap.String("key", lockKey),
			zap.Duration("ttl", l.ttl),
			zap.Error(err))
	}
}
