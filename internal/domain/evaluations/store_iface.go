package evaluations

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, evaluation Evaluation) error
	Get(ctx context.Context, id string) (Evaluation, error)
	// Update runs fn with the record held exclusively and stores the result.
	Update(ctx context.Context, id string, fn func(*Evaluation) error) (Evaluation, error)
	// DeleteIf removes id when guard allows it. A missing id is not an error.
	DeleteIf(ctx context.Context, id string, guard func(Evaluation) error) error
	List(ctx context.Context, filter Filter) ([]Evaluation, error)
}
