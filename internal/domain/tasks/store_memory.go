package tasks

import (
	"context"
	"sync"
)

// MemoryStore keeps tasks in insertion order behind a single mutex.
type MemoryStore struct {
	mu    sync.Mutex
	tasks map[string]Task
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: map[string]Task{}}
}

func (m *MemoryStore) Insert(_ context.Context, task Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return ErrDuplicateTask
	}
	m.tasks[task.ID] = task
	m.order = append(m.order, task.ID)
	return nil
}

func (m *MemoryStore) InsertBatch(_ context.Context, batch []Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{}, len(batch))
	for _, task := range batch {
		if _, ok := m.tasks[task.ID]; ok {
			return ErrDuplicateTask
		}
		if _, ok := seen[task.ID]; ok {
			return ErrDuplicateTask
		}
		seen[task.ID] = struct{}{}
	}
	for _, task := range batch {
		m.tasks[task.ID] = task
		m.order = append(m.order, task.ID)
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return task, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Task) error) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	if err := fn(&task); err != nil {
		return Task{}, err
	}
	m.tasks[id] = task
	return task, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (Task, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return Task{}, false, nil
	}
	delete(m.tasks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return task, true, nil
}

func (m *MemoryStore) ByAssignee(_ context.Context, userID string) ([]Task, error) {
	return m.filter(func(t Task) bool { return t.AssignedTo == userID }), nil
}

func (m *MemoryStore) ByAssigner(_ context.Context, userID string) ([]Task, error) {
	return m.filter(func(t Task) bool { return t.AssignedBy == userID }), nil
}

func (m *MemoryStore) Children(_ context.Context, parentID string) ([]Task, error) {
	return m.filter(func(t Task) bool { return t.ParentID() == parentID }), nil
}

func (m *MemoryStore) Parents(_ context.Context) ([]Task, error) {
	return m.filter(func(t Task) bool {
		_, ok := t.Parent()
		return ok
	}), nil
}

func (m *MemoryStore) Rollup(_ context.Context, parentID string, fn func(parent *Task, children []Task) error) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, ok := m.tasks[parentID]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	children := m.filterLocked(func(t Task) bool { return t.ParentID() == parentID })
	if err := fn(&parent, children); err != nil {
		return Task{}, err
	}
	m.tasks[parentID] = parent
	return parent, nil
}

// Len reports how many tasks are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *MemoryStore) filter(keep func(Task) bool) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filterLocked(keep)
}

func (m *MemoryStore) filterLocked(keep func(Task) bool) []Task {
	out := make([]Task, 0)
	for _, id := range m.order {
		if task := m.tasks[id]; keep(task) {
			out = append(out, task)
		}
	}
	return out
}
