package tasks

import "context"

// StoreAPI persists tasks. Update and Rollup run their callback with the target
// row held exclusively, so concurrent writers to one task are serialized.
type StoreAPI interface {
	Insert(ctx context.Context, task Task) error
	// InsertBatch stores all tasks or none of them.
	InsertBatch(ctx context.Context, tasks []Task) error
	Get(ctx context.Context, id string) (Task, error)
	Update(ctx context.Context, id string, fn func(*Task) error) (Task, error)
	// Delete reports the removed task; absence is not an error.
	Delete(ctx context.Context, id string) (Task, bool, error)
	ByAssignee(ctx context.Context, userID string) ([]Task, error)
	ByAssigner(ctx context.Context, userID string) ([]Task, error)
	Children(ctx context.Context, parentID string) ([]Task, error)
	Parents(ctx context.Context) ([]Task, error)
	Rollup(ctx context.Context, parentID string, fn func(parent *Task, children []Task) error) (Task, error)
}
