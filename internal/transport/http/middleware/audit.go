package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"perfhub/internal/domain/audit"
)

type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event) error
}

// Audit records every successful mutating request made by an authenticated
// user. Recording failures are logged and never change the response.
func Audit(recorder AuditRecorder, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if recorder == nil || !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status >= http.StatusBadRequest {
				return
			}
			user, ok := GetUser(r.Context())
			if !ok {
				return
			}

			pattern, entityID := r.URL.Path, ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					pattern = p
				}
				for i, key := range rctx.URLParams.Keys {
					if key != "*" && i < len(rctx.URLParams.Values) && rctx.URLParams.Values[i] != "" {
						entityID = rctx.URLParams.Values[i]
						break
					}
				}
			}
			event := audit.Event{
				ActorID:    user.ID,
				ActorRole:  user.Role.String(),
				Action:     r.Method + " " + pattern,
				EntityType: entityType(pattern),
				EntityID:   entityID,
				Status:     rec.status,
				RequestID:  GetRequestID(r.Context()),
				IP:         clientIPKey(r),
			}
			if err := recorder.Record(r.Context(), event); err != nil {
				logger.Warn("audit record failed", zap.String("action", event.Action), zap.String("requestId", event.RequestID), zap.Error(err))
			}
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// entityType is the first path segment after the API prefix, with /admin/x
// reported as x.
func entityType(pattern string) string {
	parts := strings.Split(strings.Trim(normalizedAPIPath(pattern), "/"), "/")
	if len(parts) > 1 && parts[0] == "admin" {
		return parts[1]
	}
	return parts[0]
}
