package frameworks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"perfhub/internal/platform/db"
)

// Store saves edited frameworks as JSON documents.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) Save(ctx context.Context, f Framework) error {
	document, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return db.Retry(ctx, func(ctx context.Context) error {
		_, err := s.DB.Exec(ctx, `
    INSERT INTO frameworks (id, version, document, updated_at)
    VALUES ($1,$2,$3,now())
    ON CONFLICT (id) DO UPDATE
    SET version = EXCLUDED.version, document = EXCLUDED.document, updated_at = EXCLUDED.updated_at
  `, f.ID, f.Version, document)
		return err
	})
}

func (s *Store) List(ctx context.Context) ([]Framework, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, version, document FROM frameworks ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Framework, 0)
	for rows.Next() {
		var (
			id       string
			version  int
			document []byte
		)
		if err := rows.Scan(&id, &version, &document); err != nil {
			return nil, err
		}
		var f Framework
		if err := json.Unmarshal(document, &f); err != nil {
			return nil, fmt.Errorf("framework %s: %w", id, err)
		}
		f.ID = id
		f.Version = version
		out = append(out, f)
	}
	return out, rows.Err()
}
