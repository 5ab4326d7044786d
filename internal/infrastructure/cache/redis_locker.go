package cache

import (
	"context"
	"fmt"
	"time"

	appfinance "github.com/dealerdesk/backend/internal/application/finance"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockPrefix = "dealerdesk:lock:"

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired holder never frees a lock that someone else took over
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements appfinance.Locker with SET NX PX. It is shared by
// every API instance, so only one of them reconciles a bank account at a time.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisLocker creates a locker over an existing client
func NewRedisLocker(client *redis.Client, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = defaultLockPrefix
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix}
}

// Acquire claims key for ttl or returns appfinance.ErrLockHeld
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, appfinance.ErrLockHeld
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		return nil
	}
	return release, nil
}

var _ appfinance.Locker = (*RedisLocker)(nil)
