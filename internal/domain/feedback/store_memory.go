package feedback

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.RWMutex
	items []Feedback
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Insert(_ context.Context, item Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ID == item.ID {
			return ErrInvalidFeedback
		}
	}
	m.items = append(m.items, item)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.items {
		if item.ID == id {
			return item, nil
		}
	}
	return Feedback{}, ErrFeedbackNotFound
}

func (m *MemoryStore) ListForEmployee(_ context.Context, employeeID string) ([]Feedback, error) {
	return m.newestFirst(func(f Feedback) bool { return f.EmployeeID == employeeID }), nil
}

func (m *MemoryStore) ListByAuthor(_ context.Context, authorID string) ([]Feedback, error) {
	return m.newestFirst(func(f Feedback) bool { return f.AuthorID == authorID }), nil
}

// newestFirst walks backwards so equal timestamps keep reverse insertion order.
func (m *MemoryStore) newestFirst(match func(Feedback) bool) []Feedback {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Feedback, 0)
	for i := len(m.items) - 1; i >= 0; i-- {
		if match(m.items[i]) {
			out = append(out, m.items[i])
		}
	}
	return out
}
