package access

import "perfhub/internal/domain/auth"

// Decision is the outcome of an authorization check.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// Authorize decides whether session may reach something that requires one of the given roles.
func Authorize(session *auth.Session, required ...auth.Role) Decision {
	if !session.Authenticated() {
		return RedirectLogin
	}
	if !session.HasPermission(required) {
		return RedirectUnauthorized
	}
	return Allow
}
