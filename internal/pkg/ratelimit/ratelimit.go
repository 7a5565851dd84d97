// Package ratelimit implements fixed-window request limits shared across
// server instances through Redis.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter reports whether another hit on key is allowed. When it is not,
// retryAfter tells the caller how long the current window still lasts.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

// The counter is incremented and its expiry set in one round trip so two
// instances can never both see the first hit of a window.
const windowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`

// RedisLimiter allows Limit hits per Window for each key.
type RedisLimiter struct {
	client *redis.Client
	script *redis.Script
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a limiter storing counters under
// "pmo:rl:<prefix>:<key>".
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(windowScript),
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (l *RedisLimiter) key(k string) string {
	return fmt.Sprintf("pmo:rl:%s:%s", l.prefix, k)
}

// Allow counts a hit and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	res, err := l.script.Run(ctx, l.client, []string{l.key(key)}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", key, err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("rate limit %s: unexpected reply %v", key, res)
	}
	if res[0] <= int64(l.limit) {
		return true, 0, nil
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

// Reset clears the counter, e.g. after a successful login.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.key(key)).Err()
}

// MemoryLimiter is the single-process fallback used when Redis is not
// configured. Expired windows are swept once the map passes sweepAt keys.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*window
	sweepAt int
}

type window struct {
	count   int
	expires time.Time
}

const minSweep = 1024

// NewMemoryLimiter allows limit hits per win for each key.
func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  win,
		now:     time.Now,
		windows: make(map[string]*window),
		sweepAt: minSweep,
	}
}

// Allow counts a hit and reports whether it is within the limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expires) {
		if !ok && len(l.windows) >= l.sweepAt {
			l.sweep(now)
		}
		w = &window{expires: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++
	if w.count <= l.limit {
		return true, 0, nil
	}
	return false, w.expires.Sub(now), nil
}

// sweep drops expired windows and moves the next sweep to twice the live
// size so a map full of active keys is not rescanned on every hit.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.expires) {
			delete(l.windows, k)
		}
	}
	l.sweepAt = max(2*len(l.windows), minSweep)
}

// Reset clears the counter for key.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
	return nil
}
