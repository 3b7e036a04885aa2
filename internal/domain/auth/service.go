package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionRevoked     = errors.New("session revoked")
)

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type Service struct {
	Directory   Directory
	Revocations RevocationStore
	Secret      string
	TokenTTL    time.Duration
	Scope       ManagerScope
	logger      *zap.Logger
}

func NewService(directory Directory, revocations RevocationStore, secret string, ttl time.Duration, scope ManagerScope, logger *zap.Logger) *Service {
	if revocations == nil {
		revocations = NewMemoryRevocations()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{
		Directory:   directory,
		Revocations: revocations,
		Secret:      secret,
		TokenTTL:    ttl,
		Scope:       scope,
		logger:      logger,
	}
}

// Login moves an anonymous caller to an authenticated session and returns its bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	account, err := s.Directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if account.PasswordHash == "" || CheckPassword(account.PasswordHash, password) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	expires := time.Now().Add(s.TokenTTL)
	token, err := GenerateToken(s.Secret, ClaimsFor(account.User, sessionID), s.TokenTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("session started", zap.String("userId", account.ID), zap.String("role", account.Role.String()))
	return LoginResult{Token: token, ExpiresAt: expires, User: account.User}, nil
}

// Logout revokes the session's token and returns the session to anonymous.
func (s *Service) Logout(ctx context.Context, session *Session) error {
	if !session.Authenticated() {
		return nil
	}
	if err := s.Revocations.Revoke(ctx, session.ID(), session.ExpiresAt()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if user, ok := session.User(); ok {
		s.logger.Info("session ended", zap.String("userId", user.ID))
	}
	session.Logout()
	return nil
}

// Resolve rebuilds the session carried by a bearer token.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := ParseToken(s.Secret, token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.Revocations.Revoked(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	session := NewSession(s.Scope)
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	user := claims.User()
	session.Login(claims.SessionID, user, expires)

	if s.Scope == ManagerScopeDirectReports && user.Role == RoleManager && s.Directory != nil {
		reports, err := s.Directory.DirectReports(ctx, user.ID)
		if err != nil {
			s.logger.Warn("direct reports lookup failed", zap.String("userId", user.ID), zap.Error(err))
		}
		ids := make([]string, 0, len(reports))
		for _, report := range reports {
			ids = append(ids, report.ID)
		}
		session.WithDirectReports(ids)
	}
	return session, nil
}

// Visible returns the directory entries the session may read.
func (s *Service) Visible(ctx context.Context, session *Session) ([]User, error) {
	users, err := s.Directory.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(users))
	for _, user := range users {
		if session.CanAccessUserData(user.ID) {
			out = append(out, user)
		}
	}
	return out, nil
}

// Email returns the directory address for userID.
func (s *Service) Email(ctx context.Context, userID string) (string, error) {
	user, err := s.Directory.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}
