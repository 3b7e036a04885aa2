package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfhub/internal/platform/db"
)

// FieldCipher seals content before it is written and opens it on read.
type FieldCipher interface {
	SealString(value string) (string, error)
	OpenString(value string) (string, error)
}

type Store struct {
	DB *pgxpool.Pool
	// Cipher is optional; without it content is stored as written.
	Cipher FieldCipher
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const feedbackColumns = "id, employee_id, author_id, type, content, created_at"

func (s *Store) scanFeedback(row pgx.Row) (Feedback, error) {
	var item Feedback
	var ftype string
	if err := row.Scan(&item.ID, &item.EmployeeID, &item.AuthorID, &ftype, &item.Content, &item.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Feedback{}, ErrFeedbackNotFound
		}
		return Feedback{}, err
	}
	item.Type = Type(ftype)
	if s.Cipher != nil {
		content, err := s.Cipher.OpenString(item.Content)
		if err != nil {
			return Feedback{}, fmt.Errorf("open feedback %s: %w", item.ID, err)
		}
		item.Content = content
	}
	return item, nil
}

func (s *Store) Insert(ctx context.Context, item Feedback) error {
	content := item.Content
	if s.Cipher != nil {
		sealed, err := s.Cipher.SealString(content)
		if err != nil {
			return fmt.Errorf("seal feedback: %w", err)
		}
		content = sealed
	}
	return db.Retry(ctx, func(ctx context.Context) error {
		_, err := s.DB.Exec(ctx, `
    INSERT INTO feedback (id, employee_id, author_id, type, content, created_at)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, item.ID, item.EmployeeID, item.AuthorID, string(item.Type), content, item.CreatedAt)
		return err
	})
}

func (s *Store) Get(ctx context.Context, id string) (Feedback, error) {
	return s.scanFeedback(s.DB.QueryRow(ctx, "SELECT "+feedbackColumns+" FROM feedback WHERE id = $1", id))
}

func (s *Store) ListForEmployee(ctx context.Context, employeeID string) ([]Feedback, error) {
	return s.query(ctx, "SELECT "+feedbackColumns+" FROM feedback WHERE employee_id = $1 ORDER BY created_at DESC, seq DESC", employeeID)
}

func (s *Store) ListByAuthor(ctx context.Context, authorID string) ([]Feedback, error) {
	return s.query(ctx, "SELECT "+feedbackColumns+" FROM feedback WHERE author_id = $1 ORDER BY created_at DESC, seq DESC", authorID)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]Feedback, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Feedback, 0)
	for rows.Next() {
		item, err := s.scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
