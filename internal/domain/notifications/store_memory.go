package notifications

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items []Notification
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) CreateNotification(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, n)
	return nil
}

func (m *MemoryStore) ListNotifications(_ context.Context, userID string, limit, offset int) ([]Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Notification, 0)
	skipped := 0
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		if m.items[i].UserID != userID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, copyNotification(m.items[i]))
	}
	return out, nil
}

func (m *MemoryStore) CountNotifications(_ context.Context, userID string) (int, error) {
	return m.count(func(n Notification) bool { return n.UserID == userID }), nil
}

func (m *MemoryStore) CountUnread(_ context.Context, userID string) (int, error) {
	return m.count(func(n Notification) bool { return n.UserID == userID && !n.Read() }), nil
}

func (m *MemoryStore) count(match func(Notification) bool) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.items {
		if match(n) {
			total++
		}
	}
	return total
}

func (m *MemoryStore) MarkRead(_ context.Context, userID, notificationID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		n := &m.items[i]
		if n.ID != notificationID || n.UserID != userID {
			continue
		}
		if n.ReadAt == nil {
			readAt := at
			n.ReadAt = &readAt
		}
		return nil
	}
	return ErrNotificationNotFound
}

func copyNotification(n Notification) Notification {
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		n.ReadAt = &readAt
	}
	return n
}
