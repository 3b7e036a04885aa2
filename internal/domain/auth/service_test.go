package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, scope ManagerScope) *Service {
	t.Helper()
	dir := NewMemoryDirectory()
	hash, err := HashPassword("pass-123")
	require.NoError(t, err)
	require.NoError(t, dir.Add(Account{User: User{ID: "m1", Name: "Maria", Email: "maria@example.com", Role: RoleManager}, PasswordHash: hash}))
	require.NoError(t, dir.Add(Account{User: User{ID: "e1", Name: "Eli", Email: "eli@example.com", Role: RoleEmployee, ReportsTo: "m1"}, PasswordHash: hash}))
	require.NoError(t, dir.Add(Account{User: User{ID: "e2", Name: "Zoe", Email: "zoe@example.com", Role: RoleEmployee}, PasswordHash: hash}))
	return NewService(dir, NewMemoryRevocations(), "secret", time.Hour, scope, nil)
}

func TestLoginResolveLogout(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, ManagerScopeAll)

	result, err := svc.Login(ctx, "MARIA@example.com", "pass-123")
	require.NoError(t, err)
	assert.Equal(t, "m1", result.User.ID)

	session, err := svc.Resolve(ctx, result.Token)
	require.NoError(t, err)
	assert.True(t, session.HasPermission([]Role{RoleManager}))

	require.NoError(t, svc.Logout(ctx, session))
	assert.False(t, session.Authenticated())

	_, err = svc.Resolve(ctx, result.Token)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, ManagerScopeAll)

	_, err := svc.Login(ctx, "maria@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ghost@example.com", "pass-123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveLoadsDirectReports(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, ManagerScopeDirectReports)

	result, err := svc.Login(ctx, "maria@example.com", "pass-123")
	require.NoError(t, err)
	session, err := svc.Resolve(ctx, result.Token)
	require.NoError(t, err)

	assert.True(t, session.CanAccessUserData("e1"))
	assert.False(t, session.CanAccessUserData("e2"))

	visible, err := svc.Visible(ctx, session)
	require.NoError(t, err)
	ids := []string{}
	for _, u := range visible {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{"m1", "e1"}, ids)
}

func TestLoadAccountsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	content := `users:
  - id: "1"
    name: Ada
    email: ada@example.com
    role: admin
    department: Engineering
    password: secret-1
  - id: "2"
    name: Bo
    email: bo@example.com
    role: EMPLOYEE
    reportsTo: "1"
    passwordHash: "$2a$10$abcdefghijklmnopqrstuu"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	accounts, err := LoadAccountsFile(path)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, RoleAdmin, accounts[0].Role)
	assert.NoError(t, CheckPassword(accounts[0].PasswordHash, "secret-1"))
	assert.Equal(t, "1", accounts[1].ReportsTo)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuu", accounts[1].PasswordHash)
}

func TestRevocationsExpire(t *testing.T) {
	ctx := context.Background()
	rev := NewMemoryRevocations()
	now := time.Now()
	rev.now = func() time.Time { return now }

	require.NoError(t, rev.Revoke(ctx, "s1", now.Add(time.Minute)))
	revoked, err := rev.Revoked(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, revoked)

	rev.now = func() time.Time { return now.Add(2 * time.Minute) }
	revoked, err = rev.Revoked(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, revoked)
}
