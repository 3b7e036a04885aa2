package middleware

import (
	"net/http"

	"perfhub/internal/domain/access"
	"perfhub/internal/domain/auth"
	"perfhub/internal/transport/http/api"
)

// RequireRoles turns the access gate's decision into an HTTP response. The
// error bodies never say which role was needed.
func RequireRoles(required ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch access.Authorize(GetSession(r.Context()), required...) {
			case access.Allow:
				next.ServeHTTP(w, r)
			case access.RedirectLogin:
				api.Fail(w, http.StatusUnauthorized, "login_required", "login required", GetRequestID(r.Context()))
			default:
				Forbid(w, r)
			}
		})
	}
}

// Forbid writes the same 403 body the gate uses, for handlers that deny
// access to another user's data.
func Forbid(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusForbidden, "insufficient_role", "insufficient role", GetRequestID(r.Context()))
}
