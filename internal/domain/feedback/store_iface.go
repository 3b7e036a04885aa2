package feedback

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, item Feedback) error
	Get(ctx context.Context, id string) (Feedback, error)
	// ListForEmployee and ListByAuthor return newest first.
	ListForEmployee(ctx context.Context, employeeID string) ([]Feedback, error)
	ListByAuthor(ctx context.Context, authorID string) ([]Feedback, error)
}
