package distlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotOwned is returned by Extend once the key expired or was taken over.
var ErrNotOwned = errors.New("lock no longer owned")

// ifOwner runs DEL (ARGV[2] empty) or PEXPIRE ARGV[2] on KEYS[1] only while
// it still holds the caller's token ARGV[1].
var ifOwner = redis.NewScript(`
if redis.call("get", KEYS[1]) ~= ARGV[1] then
	return 0
end
if ARGV[2] == "" then
	return redis.call("del", KEYS[1])
end
return redis.call("pexpire", KEYS[1], ARGV[2])
`)

// RedisLock is a SET NX PX lock under "pmo:lock:<key>". Each value carries
// its own token, so a holder whose TTL lapsed cannot free a successor's lock.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		key:    "pmo:lock:" + key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	return ifOwner.Run(ctx, l.client, []string{l.key}, l.token, "").Err()
}

// Extend resets the TTL for a cleanup cycle that outlives the original one.
func (l *RedisLock) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := ifOwner.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotOwned
	}
	return nil
}
