package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres-backed Directory.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const userColumns = "id, name, email, role, department, COALESCE(reports_to, '')"

func scanUser(row pgx.Row, extra ...any) (User, error) {
	var user User
	var role string
	dest := append([]any{&user.ID, &user.Name, &user.Email, &role, &user.Department, &user.ReportsTo}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.Role = Role(role)
	return user, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (Account, error) {
	var hash string
	user, err := scanUser(s.DB.QueryRow(ctx, `
    SELECT `+userColumns+`, password_hash
    FROM users
    WHERE lower(email) = lower($1)
  `, email), &hash)
	if err != nil {
		return Account{}, err
	}
	return Account{User: user, PasswordHash: hash}, nil
}

func (s *Store) Get(ctx context.Context, id string) (User, error) {
	return scanUser(s.DB.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	return s.queryUsers(ctx, "SELECT "+userColumns+" FROM users ORDER BY name")
}

func (s *Store) DirectReports(ctx context.Context, managerID string) ([]User, error) {
	return s.queryUsers(ctx, "SELECT "+userColumns+" FROM users WHERE reports_to = $1 ORDER BY name", managerID)
}

func (s *Store) queryUsers(ctx context.Context, sql string, args ...any) ([]User, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Upsert inserts or refreshes an account, keyed by id.
func (s *Store) Upsert(ctx context.Context, account Account) error {
	var reportsTo any
	if account.ReportsTo != "" {
		reportsTo = account.ReportsTo
	}
	_, err := s.DB.Exec(ctx, `
    INSERT INTO users (id, name, email, role, department, reports_to, password_hash)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (id) DO UPDATE
    SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role,
        department = EXCLUDED.department, reports_to = EXCLUDED.reports_to,
        password_hash = EXCLUDED.password_hash
  `, account.ID, account.Name, account.Email, string(account.Role), account.Department, reportsTo, account.PasswordHash)
	return err
}
