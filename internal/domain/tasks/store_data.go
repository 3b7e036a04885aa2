package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfhub/internal/platform/db"
)

// Store is the Postgres StoreAPI. Writes retry on transient failures.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const taskColumns = `id, type, title, description, assigned_to, assigned_to_name, assigned_by, due_date, status,
    COALESCE(framework_id, ''), kind, COALESCE(parent_id, ''), total_sub_tasks, completed_sub_tasks, progress,
    created_at, updated_at`

const insertTaskSQL = `
    INSERT INTO tasks (id, type, title, description, assigned_to, assigned_to_name, assigned_by, due_date, status,
      framework_id, kind, parent_id, total_sub_tasks, completed_sub_tasks, progress, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
  `

func scanTask(row pgx.Row) (Task, error) {
	var task Task
	var taskType, status, kind, parentID string
	var due *time.Time
	var total, completed int
	var progress float64
	if err := row.Scan(&task.ID, &taskType, &task.Title, &task.Description, &task.AssignedTo, &task.AssignedToName,
		&task.AssignedBy, &due, &status, &task.FrameworkID, &kind, &parentID, &total, &completed, &progress,
		&task.CreatedAt, &task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, err
	}
	task.Type = Type(taskType)
	task.Status = Status(status)
	if due != nil {
		task.DueDate = *due
	}
	switch kind {
	case Parent{}.kind():
		task.Kind = Parent{TotalSubTasks: total, CompletedSubTasks: completed, Progress: progress}
	case Child{}.kind():
		task.Kind = Child{ParentID: parentID}
	default:
		task.Kind = Standalone{}
	}
	return task, nil
}

func insertArgs(task Task) []any {
	var parentID any
	var total, completed int
	var progress float64
	switch k := task.Kind.(type) {
	case Parent:
		total, completed, progress = k.TotalSubTasks, k.CompletedSubTasks, k.Progress
	case Child:
		parentID = k.ParentID
	}
	return []any{
		task.ID, string(task.Type), task.Title, task.Description, task.AssignedTo, task.AssignedToName,
		task.AssignedBy, nullTime(task.DueDate), string(task.Status), nullIfEmpty(task.FrameworkID),
		kindName(task.Kind), parentID, total, completed, progress, task.CreatedAt, task.UpdatedAt,
	}
}

func (s *Store) Insert(ctx context.Context, task Task) error {
	return db.Retry(ctx, func(ctx context.Context) error {
		_, err := s.DB.Exec(ctx, insertTaskSQL, insertArgs(task)...)
		return mapWriteError(err)
	})
}

func (s *Store) InsertBatch(ctx context.Context, tasks []Task) error {
	return db.Retry(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
			batch := &pgx.Batch{}
			for _, task := range tasks {
				batch.Queue(insertTaskSQL, insertArgs(task)...)
			}
			results := tx.SendBatch(ctx, batch)
			for range tasks {
				if _, err := results.Exec(); err != nil {
					_ = results.Close()
					return mapWriteError(err)
				}
			}
			return results.Close()
		})
	})
}

func (s *Store) Get(ctx context.Context, id string) (Task, error) {
	return scanTask(s.DB.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id))
}

func (s *Store) Update(ctx context.Context, id string, fn func(*Task) error) (Task, error) {
	var out Task
	err := db.Retry(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
			task, err := scanTask(tx.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1 FOR UPDATE", id))
			if err != nil {
				return err
			}
			if err := fn(&task); err != nil {
				return err
			}
			if err := writeTask(ctx, tx, task); err != nil {
				return err
			}
			out = task
			return nil
		})
	})
	return out, err
}

func (s *Store) Rollup(ctx context.Context, parentID string, fn func(parent *Task, children []Task) error) (Task, error) {
	var out Task
	err := db.Retry(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
			parent, err := scanTask(tx.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1 FOR UPDATE", parentID))
			if err != nil {
				return err
			}
			children, err := queryTasks(ctx, tx, "SELECT "+taskColumns+" FROM tasks WHERE parent_id = $1 ORDER BY seq", parentID)
			if err != nil {
				return err
			}
			if err := fn(&parent, children); err != nil {
				return err
			}
			if err := writeTask(ctx, tx, parent); err != nil {
				return err
			}
			out = parent
			return nil
		})
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, id string) (Task, bool, error) {
	var out Task
	found := false
	err := db.Retry(ctx, func(ctx context.Context) error {
		task, err := scanTask(s.DB.QueryRow(ctx, "DELETE FROM tasks WHERE id = $1 RETURNING "+taskColumns, id))
		if errors.Is(err, ErrTaskNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out, found = task, true
		return nil
	})
	return out, found, err
}

func (s *Store) ByAssignee(ctx context.Context, userID string) ([]Task, error) {
	return queryTasks(ctx, s.DB, "SELECT "+taskColumns+" FROM tasks WHERE assigned_to = $1 ORDER BY seq", userID)
}

func (s *Store) ByAssigner(ctx context.Context, userID string) ([]Task, error) {
	return queryTasks(ctx, s.DB, "SELECT "+taskColumns+" FROM tasks WHERE assigned_by = $1 ORDER BY seq", userID)
}

func (s *Store) Children(ctx context.Context, parentID string) ([]Task, error) {
	return queryTasks(ctx, s.DB, "SELECT "+taskColumns+" FROM tasks WHERE parent_id = $1 ORDER BY seq", parentID)
}

func (s *Store) Parents(ctx context.Context) ([]Task, error) {
	return queryTasks(ctx, s.DB, "SELECT "+taskColumns+" FROM tasks WHERE kind = 'parent' ORDER BY seq")
}

func writeTask(ctx context.Context, q querier, task Task) error {
	args := insertArgs(task)
	// created_at (index 15) is immutable.
	args = append(args[:15], args[16])
	_, err := q.Exec(ctx, `
    UPDATE tasks
    SET type = $2, title = $3, description = $4, assigned_to = $5, assigned_to_name = $6, assigned_by = $7,
        due_date = $8, status = $9, framework_id = $10, kind = $11, parent_id = $12, total_sub_tasks = $13,
        completed_sub_tasks = $14, progress = $15, updated_at = $16
    WHERE id = $1
  `, args...)
	return err
}

func queryTasks(ctx context.Context, q querier, sql string, args ...any) ([]Task, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateTask
	}
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value
}
