package goals

import (
	"context"
	"slices"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	goals    map[string]Goal
	order    []string
	comments []Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{goals: map[string]Goal{}}
}

func (m *MemoryStore) Insert(_ context.Context, goal Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[goal.ID]; ok {
		return ErrInvalidGoal
	}
	m.goals[goal.ID] = goal
	m.order = append(m.order, goal.ID)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	goal, ok := m.goals[id]
	if !ok {
		return Goal{}, ErrGoalNotFound
	}
	return goal, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Goal) error) (Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[id]
	if !ok {
		return Goal{}, ErrGoalNotFound
	}
	if err := fn(&goal); err != nil {
		return Goal{}, err
	}
	m.goals[id] = goal
	return goal, nil
}

func (m *MemoryStore) ListForEmployee(_ context.Context, employeeID string) ([]Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Goal, 0)
	for _, id := range m.order {
		if goal := m.goals[id]; goal.EmployeeID == employeeID {
			out = append(out, goal)
		}
	}
	slices.SortStableFunc(out, func(a, b Goal) int {
		return a.TimeBound.Compare(b.TimeBound)
	})
	return out, nil
}

func (m *MemoryStore) InsertComment(_ context.Context, comment Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.goals[comment.GoalID]; !ok {
		return ErrGoalNotFound
	}
	m.comments = append(m.comments, comment)
	return nil
}

func (m *MemoryStore) Comments(_ context.Context, goalID string) ([]Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Comment, 0)
	for _, c := range m.comments {
		if c.GoalID == goalID {
			out = append(out, c)
		}
	}
	return out, nil
}
