package evaluations

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Evaluation
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]Evaluation{}}
}

func (m *MemoryStore) Insert(_ context.Context, evaluation Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[evaluation.ID]; ok {
		return ErrInvalidEvaluation
	}
	m.items[evaluation.ID] = clone(evaluation)
	m.order = append(m.order, evaluation.ID)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evaluation, ok := m.items[id]
	if !ok {
		return Evaluation{}, ErrEvaluationNotFound
	}
	return clone(evaluation), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Evaluation) error) (Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[id]
	if !ok {
		return Evaluation{}, ErrEvaluationNotFound
	}
	work := clone(current)
	if err := fn(&work); err != nil {
		return Evaluation{}, err
	}
	m.items[id] = clone(work)
	return work, nil
}

func (m *MemoryStore) DeleteIf(_ context.Context, id string, guard func(Evaluation) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.items[id]
	if !ok {
		return nil
	}
	if guard != nil {
		if err := guard(clone(current)); err != nil {
			return err
		}
	}
	delete(m.items, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) List(_ context.Context, filter Filter) ([]Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Evaluation, 0)
	for _, id := range m.order {
		if evaluation := m.items[id]; filter.Match(evaluation) {
			out = append(out, clone(evaluation))
		}
	}
	return out, nil
}

func clone(e Evaluation) Evaluation {
	out := e
	out.Ratings = cloneSlice(e.Ratings)
	out.Strengths = cloneSlice(e.Strengths)
	out.Improvements = cloneSlice(e.Improvements)
	out.Framework.Categories = cloneSlice(e.Framework.Categories)
	out.Framework.RatingScale = cloneSlice(e.Framework.RatingScale)
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
