package auth

import (
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
	Role       Role   `json:"role" yaml:"role"`
	Department string `json:"department" yaml:"department"`
	ReportsTo  string `json:"reportsTo,omitempty" yaml:"reportsTo"`
}

// ManagerScope selects how far a manager's read access reaches.
type ManagerScope string

const (
	// ManagerScopeAll lets managers read every user's data.
	ManagerScopeAll ManagerScope = "all"
	// ManagerScopeDirectReports limits managers to themselves and users reporting to them.
	ManagerScopeDirectReports ManagerScope = "direct_reports"
)

func ParseManagerScope(value string) (ManagerScope, error) {
	switch ManagerScope(strings.ToLower(strings.TrimSpace(value))) {
	case "", ManagerScopeAll:
		return ManagerScopeAll, nil
	case ManagerScopeDirectReports:
		return ManagerScopeDirectReports, nil
	default:
		return "", fmt.Errorf("unknown manager scope %q", value)
	}
}

// Session is either anonymous (the zero value) or authenticated with one user.
// Each request gets its own Session; nothing here is shared between requests.
type Session struct {
	id            string
	user          *User
	expiresAt     time.Time
	scope         ManagerScope
	directReports map[string]struct{}
}

func NewSession(scope ManagerScope) *Session {
	return &Session{scope: scope}
}

func (s *Session) Login(id string, user User, expiresAt time.Time) {
	u := user
	s.id = id
	s.user = &u
	s.expiresAt = expiresAt
	s.directReports = nil
}

func (s *Session) Logout() {
	s.id = ""
	s.user = nil
	s.expiresAt = time.Time{}
	s.directReports = nil
}

// WithDirectReports records the ids that report to the session user.
// Only consulted under ManagerScopeDirectReports.
func (s *Session) WithDirectReports(ids []string) {
	s.directReports = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.directReports[id] = struct{}{}
	}
}

func (s *Session) Authenticated() bool {
	return s != nil && s.user != nil
}

func (s *Session) User() (User, bool) {
	if !s.Authenticated() {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

func (s *Session) ExpiresAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.expiresAt
}

func (s *Session) Scope() ManagerScope {
	if s == nil || s.scope == "" {
		return ManagerScopeAll
	}
	return s.scope
}

func (s *Session) HasPermission(required []Role) bool {
	if !s.Authenticated() {
		return false
	}
	ok, err := Satisfies(s.user.Role, required)
	return err == nil && ok
}

func (s *Session) CanAccessUserData(targetUserID string) bool {
	if !s.Authenticated() {
		return false
	}
	switch s.user.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		if s.Scope() == ManagerScopeAll {
			return true
		}
		if targetUserID == s.user.ID {
			return true
		}
		_, ok := s.directReports[targetUserID]
		return ok
	case RoleEmployee:
		return targetUserID == s.user.ID
	default:
		return false
	}
}
