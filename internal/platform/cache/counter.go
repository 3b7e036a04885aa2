package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweepEvery = 1024

// WindowCounter counts hits per key in fixed windows. Hit returns the count
// including this hit and the time the current window closes.
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, time.Time, error)
}

type memoryWindow struct {
	count int
	reset time.Time
}

// MemoryCounter keeps windows in process. Expired windows are swept as hits arrive.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	hits    int
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: map[string]*memoryWindow{}, now: time.Now}
}

func (c *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.hits++
	if c.hits%sweepEvery == 0 {
		for k, w := range c.windows {
			if !now.Before(w.reset) {
				delete(c.windows, k)
			}
		}
	}

	w, ok := c.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &memoryWindow{reset: now.Add(window)}
		c.windows[key] = w
	}
	w.count++
	return w.count, w.reset, nil
}

// RedisCounter shares windows between instances through INCR and PEXPIRE.
type RedisCounter struct {
	Client *redis.Client
	Prefix string
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{Client: client, Prefix: "perfhub:ratelimit:"}
}

func (c *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	k := c.Prefix + key
	count, err := c.Client.Incr(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if count == 1 {
		if err := c.Client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
		return 1, time.Now().Add(window), nil
	}

	ttl, err := c.Client.PTTL(ctx, k).Result()
	if err != nil {
		return 0, time.Time{}, err
	}
	if ttl < 0 {
		// the first hit's PEXPIRE never landed
		if err := c.Client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, time.Time{}, err
		}
		ttl = window
	}
	return int(count), time.Now().Add(ttl), nil
}
