package goals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfhub/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const goalColumns = "id, employee_id, created_by, title, description, specific, measurable, achievable, relevant, time_bound, status, progress, created_at, updated_at"

func scanGoal(row pgx.Row) (Goal, error) {
	var goal Goal
	var status string
	if err := row.Scan(&goal.ID, &goal.EmployeeID, &goal.CreatedBy, &goal.Title, &goal.Description,
		&goal.Specific, &goal.Measurable, &goal.Achievable, &goal.Relevant, &goal.TimeBound,
		&status, &goal.Progress, &goal.CreatedAt, &goal.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Goal{}, ErrGoalNotFound
		}
		return Goal{}, err
	}
	goal.Status = Status(status)
	return goal, nil
}

func (s *Store) Insert(ctx context.Context, goal Goal) error {
	return db.Retry(ctx, func(ctx context.Context) error {
		_, err := s.DB.Exec(ctx, `
    INSERT INTO goals (id, employee_id, created_by, title, description, specific, measurable, achievable, relevant, time_bound, status, progress, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
  `, goal.ID, goal.EmployeeID, goal.CreatedBy, goal.Title, goal.Description, goal.Specific, goal.Measurable,
			goal.Achievable, goal.Relevant, goal.TimeBound, string(goal.Status), goal.Progress, goal.CreatedAt, goal.UpdatedAt)
		return err
	})
}

func (s *Store) Get(ctx context.Context, id string) (Goal, error) {
	return scanGoal(s.DB.QueryRow(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = $1", id))
}

func (s *Store) Update(ctx context.Context, id string, fn func(*Goal) error) (Goal, error) {
	var out Goal
	err := db.Retry(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
			goal, err := scanGoal(tx.QueryRow(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = $1 FOR UPDATE", id))
			if err != nil {
				return err
			}
			if err := fn(&goal); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
    UPDATE goals
    SET title = $1, description = $2, specific = $3, measurable = $4, achievable = $5, relevant = $6,
        time_bound = $7, status = $8, progress = $9, updated_at = $10
    WHERE id = $11
  `, goal.Title, goal.Description, goal.Specific, goal.Measurable, goal.Achievable, goal.Relevant,
				goal.TimeBound, string(goal.Status), goal.Progress, goal.UpdatedAt, goal.ID); err != nil {
				return err
			}
			out = goal
			return nil
		})
	})
	return out, err
}

func (s *Store) ListForEmployee(ctx context.Context, employeeID string) ([]Goal, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+goalColumns+" FROM goals WHERE employee_id = $1 ORDER BY time_bound, seq", employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Goal, 0)
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, goal)
	}
	return out, rows.Err()
}

func (s *Store) InsertComment(ctx context.Context, comment Comment) error {
	err := db.Retry(ctx, func(ctx context.Context) error {
		_, err := s.DB.Exec(ctx, `
    INSERT INTO goal_comments (id, goal_id, author_id, body, created_at)
    VALUES ($1,$2,$3,$4,$5)
  `, comment.ID, comment.GoalID, comment.AuthorID, comment.Body, comment.CreatedAt)
		return err
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrGoalNotFound
	}
	return err
}

func (s *Store) Comments(ctx context.Context, goalID string) ([]Comment, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, goal_id, author_id, body, created_at FROM goal_comments WHERE goal_id = $1 ORDER BY created_at, seq", goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Comment, 0)
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.GoalID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
