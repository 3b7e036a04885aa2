package goals

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, goal Goal) error
	Get(ctx context.Context, id string) (Goal, error)
	// Update loads the goal, applies fn and writes it back atomically.
	Update(ctx context.Context, id string, fn func(*Goal) error) (Goal, error)
	// ListForEmployee returns goals ordered by target date, then creation.
	ListForEmployee(ctx context.Context, employeeID string) ([]Goal, error)
	InsertComment(ctx context.Context, comment Comment) error
	// Comments returns oldest first.
	Comments(ctx context.Context, goalID string) ([]Comment, error)
}
