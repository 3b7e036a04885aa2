package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore remembers logged-out session ids until their tokens expire.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	Revoked(ctx context.Context, sessionID string) (bool, error)
}

type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{entries: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryRevocations) Revoke(_ context.Context, sessionID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sessionID] = until
	m.sweepLocked()
	return nil
}

func (m *MemoryRevocations) Revoked(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[sessionID]
	if !ok {
		return false, nil
	}
	if !until.IsZero() && m.now().After(until) {
		delete(m.entries, sessionID)
		return false, nil
	}
	return true, nil
}

func (m *MemoryRevocations) sweepLocked() {
	now := m.now()
	for id, until := range m.entries {
		if !until.IsZero() && now.After(until) {
			delete(m.entries, id)
		}
	}
}

type RedisRevocations struct {
	Client *redis.Client
	Prefix string
}

func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{Client: client, Prefix: "perfhub:revoked:"}
}

func (r *RedisRevocations) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.Client.Set(ctx, r.Prefix+sessionID, "1", ttl).Err()
}

func (r *RedisRevocations) Revoked(ctx context.Context, sessionID string) (bool, error) {
	err := r.Client.Get(ctx, r.Prefix+sessionID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
