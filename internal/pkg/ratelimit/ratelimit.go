package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Gate admits at most a fixed number of operations per key per window.
type Gate interface {
	// Allow records one attempt for key. When it is refused, retryAfter says
	// how long until the window resets.
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

type window struct {
	start time.Time
	count int
}

type memoryGate struct {
	mu      sync.Mutex
	limit   int
	period  time.Duration
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryGate keeps counters in process. A limit <= 0 admits everything.
func NewMemoryGate(limit int, period time.Duration) Gate {
	return &memoryGate{
		limit:   limit,
		period:  period,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (g *memoryGate) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if g.limit <= 0 {
		return true, 0, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	w, ok := g.windows[key]
	if !ok || now.Sub(w.start) >= g.period {
		g.evictExpired(now)
		g.windows[key] = &window{start: now, count: 1}
		return true, 0, nil
	}
	if w.count >= g.limit {
		return false, w.start.Add(g.period).Sub(now), nil
	}
	w.count++
	return true, 0, nil
}

func (g *memoryGate) evictExpired(now time.Time) {
	for key, w := range g.windows {
		if now.Sub(w.start) >= g.period {
			delete(g.windows, key)
		}
	}
}

type redisGate struct {
	client *redis.Client
	limit  int
	period time.Duration
	prefix string
}

// NewRedisGate shares counters across instances through INCR on a key that
// expires with the window.
func NewRedisGate(client *redis.Client, limit int, period time.Duration) Gate {
	return &redisGate{
		client: client,
		limit:  limit,
		period: period,
		prefix: "avatar:ratelimit:",
	}
}

func (g *redisGate) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if g.limit <= 0 {
		return true, 0, nil
	}
	redisKey := g.prefix + key

	var incr *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.ExpireNX(ctx, redisKey, g.period)
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if incr.Val() <= int64(g.limit) {
		return true, 0, nil
	}

	ttl, err := g.client.PTTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = g.period
	}
	return false, ttl, nil
}
