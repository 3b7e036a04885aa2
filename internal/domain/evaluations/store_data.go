package evaluations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"perfhub/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const evaluationColumns = `id, employee_id, supervisor_id, period, framework_id, framework_json, ratings_json,
    overall_comments, strengths_json, improvements_json, status, overall_score, created_at, updated_at`

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var e Evaluation
	var status string
	var frameworkJSON, ratingsJSON, strengthsJSON, improvementsJSON []byte
	if err := row.Scan(&e.ID, &e.EmployeeID, &e.SupervisorID, &e.Period, &e.FrameworkID, &frameworkJSON, &ratingsJSON,
		&e.OverallComments, &strengthsJSON, &improvementsJSON, &status, &e.OverallScore, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Evaluation{}, ErrEvaluationNotFound
		}
		return Evaluation{}, err
	}
	e.Status = Status(status)
	for _, field := range []struct {
		raw  []byte
		dest any
	}{
		{frameworkJSON, &e.Framework},
		{ratingsJSON, &e.Ratings},
		{strengthsJSON, &e.Strengths},
		{improvementsJSON, &e.Improvements},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dest); err != nil {
			return Evaluation{}, fmt.Errorf("decode evaluation %s: %w", e.ID, err)
		}
	}
	return e, nil
}

type encoded struct {
	framework, ratings, strengths, improvements []byte
}

func encode(e Evaluation) (encoded, error) {
	var out encoded
	var err error
	if out.framework, err = json.Marshal(e.Framework); err != nil {
		return out, err
	}
	if out.ratings, err = json.Marshal(nonNilRatings(e.Ratings)); err != nil {
		return out, err
	}
	if out.strengths, err = json.Marshal(nonNil(e.Strengths)); err != nil {
		return out, err
	}
	out.improvements, err = json.Marshal(nonNil(e.Improvements))
	return out, err
}

func (s *Store) Insert(ctx context.Context, e Evaluation) error {
	enc, err := encode(e)
	if err != nil {
		return err
	}
	return db.Retry(ctx, func(ctx context.Context) error {
		_, err := s.DB.Exec(ctx, `
      INSERT INTO evaluations (id, employee_id, supervisor_id, period, framework_id, framework_json, ratings_json,
        overall_comments, strengths_json, improvements_json, status, overall_score, created_at, updated_at)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, e.ID, e.EmployeeID, e.SupervisorID, e.Period, e.FrameworkID, enc.framework, enc.ratings,
			e.OverallComments, enc.strengths, enc.improvements, string(e.Status), e.OverallScore, e.CreatedAt, e.UpdatedAt)
		return err
	})
}

func (s *Store) Get(ctx context.Context, id string) (Evaluation, error) {
	return scanEvaluation(s.DB.QueryRow(ctx, "SELECT "+evaluationColumns+" FROM evaluations WHERE id = $1", id))
}

func (s *Store) Update(ctx context.Context, id string, fn func(*Evaluation) error) (Evaluation, error) {
	var out Evaluation
	err := db.Retry(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
			e, err := scanEvaluation(tx.QueryRow(ctx, "SELECT "+evaluationColumns+" FROM evaluations WHERE id = $1 FOR UPDATE", id))
			if err != nil {
				return err
			}
			if err := fn(&e); err != nil {
				return err
			}
			enc, err := encode(e)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
        UPDATE evaluations
        SET period = $2, ratings_json = $3, overall_comments = $4, strengths_json = $5, improvements_json = $6,
            status = $7, overall_score = $8, updated_at = $9
        WHERE id = $1
      `, e.ID, e.Period, enc.ratings, e.OverallComments, enc.strengths, enc.improvements, string(e.Status), e.OverallScore, e.UpdatedAt); err != nil {
				return err
			}
			out = e
			return nil
		})
	})
	return out, err
}

func (s *Store) DeleteIf(ctx context.Context, id string, guard func(Evaluation) error) error {
	return db.Retry(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
			e, err := scanEvaluation(tx.QueryRow(ctx, "SELECT "+evaluationColumns+" FROM evaluations WHERE id = $1 FOR UPDATE", id))
			if errors.Is(err, ErrEvaluationNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if guard != nil {
				if err := guard(e); err != nil {
					return err
				}
			}
			_, err = tx.Exec(ctx, "DELETE FROM evaluations WHERE id = $1", id)
			return err
		})
	})
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Evaluation, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+evaluationColumns+`
    FROM evaluations
    WHERE ($1 = '' OR employee_id = $1)
      AND ($2 = '' OR supervisor_id = $2)
      AND ($3 = '' OR status = $3)
    ORDER BY seq
  `, filter.EmployeeID, filter.SupervisorID, string(filter.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Evaluation, 0)
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nonNilRatings(ratings []Rating) []Rating {
	if ratings == nil {
		return []Rating{}
	}
	return ratings
}
