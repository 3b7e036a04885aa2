package audit

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryStore) List(_ context.Context, filter Filter, limit, offset int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, 0)
	skipped := 0
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if !filter.matches(m.events[i]) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context, filter Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, e := range m.events {
		if filter.matches(e) {
			total++
		}
	}
	return total, nil
}
