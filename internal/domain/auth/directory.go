package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var ErrUserNotFound = errors.New("user not found")

// Account is a directory entry: the user plus its credential hash.
type Account struct {
	User
	PasswordHash string
}

type Directory interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	Get(ctx context.Context, id string) (User, error)
	List(ctx context.Context) ([]User, error)
	DirectReports(ctx context.Context, managerID string) ([]User, error)
}

type MemoryDirectory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byEmail  map[string]string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		accounts: map[string]Account{},
		byEmail:  map[string]string{},
	}
}

func (d *MemoryDirectory) Add(account Account) error {
	if strings.TrimSpace(account.ID) == "" || strings.TrimSpace(account.Email) == "" {
		return errors.New("account id and email are required")
	}
	if !account.Role.Valid() {
		return fmt.Errorf("account %s: %w", account.ID, ErrInvalidRole)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.accounts[account.ID]; ok {
		delete(d.byEmail, normalizeEmail(prev.Email))
	}
	d.accounts[account.ID] = account
	d.byEmail[normalizeEmail(account.Email)] = account.ID
	return nil
}

func (d *MemoryDirectory) Upsert(_ context.Context, account Account) error {
	return d.Add(account)
}

func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return d.accounts[id], nil
}

func (d *MemoryDirectory) Get(_ context.Context, id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	account, ok := d.accounts[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return account.User, nil
}

func (d *MemoryDirectory) List(_ context.Context) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	users := make([]User, 0, len(d.accounts))
	for _, account := range d.accounts {
		users = append(users, account.User)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (d *MemoryDirectory) DirectReports(ctx context.Context, managerID string) ([]User, error) {
	users, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0)
	for _, user := range users {
		if user.ReportsTo != "" && user.ReportsTo == managerID {
			out = append(out, user)
		}
	}
	return out, nil
}

type usersFile struct {
	Users []struct {
		User         `yaml:",inline"`
		Password     string `yaml:"password"`
		PasswordHash string `yaml:"passwordHash"`
	} `yaml:"users"`
}

// LoadAccountsFile reads a YAML user list. Plain passwords are hashed on load.
func LoadAccountsFile(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("users file: %w", err)
	}
	var parsed usersFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("users file %s: %w", path, err)
	}
	accounts := make([]Account, 0, len(parsed.Users))
	for i, entry := range parsed.Users {
		role, err := ParseRole(string(entry.Role))
		if err != nil {
			return nil, fmt.Errorf("users file %s: entry %d: %w", path, i, err)
		}
		entry.User.Role = role
		hash := entry.PasswordHash
		if hash == "" && entry.Password != "" {
			hash, err = HashPassword(entry.Password)
			if err != nil {
				return nil, err
			}
		}
		accounts = append(accounts, Account{User: entry.User, PasswordHash: hash})
	}
	return accounts, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
