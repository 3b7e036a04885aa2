package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/requestctx"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Session, error)
}

// Session attaches a per-request *auth.Session. Requests without a usable
// bearer token get an anonymous session; the role gate decides what that means.
func Session(resolver SessionResolver, scope auth.ManagerScope, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := auth.NewSession(scope)
			if token := BearerToken(r); token != "" {
				resolved, err := resolver.Resolve(r.Context(), token)
				if err != nil {
					logger.Debug("bearer token rejected", zap.String("requestId", GetRequestID(r.Context())), zap.Error(err))
				} else {
					session = resolved
				}
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// WithSession stores session and, for an authenticated one, its user id as
// the request actor.
func WithSession(ctx context.Context, session *auth.Session) context.Context {
	if user, ok := session.User(); ok {
		ctx = requestctx.WithActorID(ctx, user.ID)
	}
	return context.WithValue(ctx, ctxKeySession, session)
}

// GetSession never returns nil.
func GetSession(ctx context.Context) *auth.Session {
	if session, ok := ctx.Value(ctxKeySession).(*auth.Session); ok && session != nil {
		return session
	}
	return auth.NewSession(auth.ManagerScopeAll)
}

// GetUser returns the authenticated user, if any.
func GetUser(ctx context.Context) (auth.User, bool) {
	return GetSession(ctx).User()
}
