package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"perfhub/internal/platform/cache"
	"perfhub/internal/transport/http/api"
)

// RateCounter is the window store behind the limiters. cache.MemoryCounter
// and cache.RedisCounter both satisfy it.
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, time.Time, error)
}

type rateKeyFunc func(r *http.Request) string

type rateLimiter struct {
	counter RateCounter
	scope   string
	limit   int
	window  time.Duration
	key     rateKeyFunc
}

func newRateLimiter(counter RateCounter, scope string, limit int, window time.Duration, key rateKeyFunc) *rateLimiter {
	return &rateLimiter{counter: counter, scope: scope, limit: limit, window: window, key: key}
}

// RateLimit caps requests per actor, or per client IP for anonymous callers.
// A nil counter keeps windows in process.
func RateLimit(counter RateCounter, limit int, window time.Duration) func(http.Handler) http.Handler {
	if counter == nil {
		counter = cache.NewMemoryCounter()
	}
	rl := newRateLimiter(counter, "all", limit, window, actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// SensitiveMutationRateLimit applies tighter limits to login attempts (per IP
// and per email) and to mutations that fan out or rewrite shared state.
func SensitiveMutationRateLimit(counter RateCounter, baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	if counter == nil {
		counter = cache.NewMemoryCounter()
	}
	loginLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	loginByIP := newRateLimiter(counter, "login-ip", loginLimit, window, clientIPKey)
	loginByEmail := newRateLimiter(counter, "login-email", loginLimit, window, loginEmailKey)
	mutations := newRateLimiter(counter, "mutation", mutationLimit, window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !loginByIP.allow(w, r) || !loginByEmail.allow(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !mutations.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *rateLimiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if rl.limit <= 0 {
		return true
	}
	key := rl.key(r)
	if key == "" {
		key = clientIPKey(r)
	}

	count, reset, err := rl.counter.Hit(r.Context(), rl.scope+":"+key, rl.window)
	if err != nil {
		// fail open when the counter is unreachable
		zap.L().Warn("rate limit counter failed", zap.String("scope", rl.scope), zap.Error(err))
		return true
	}

	resetIn := secondsUntil(reset)
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(rl.limit-count, 0)))
	headers.Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
	if count <= rl.limit {
		return true
	}

	headers.Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
	zap.L().Warn("rate limit exceeded",
		zap.String("scope", rl.scope),
		zap.String("key", key),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("limit", rl.limit),
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func secondsUntil(t time.Time) int {
	d := time.Until(t)
	if d <= 0 {
		return 0
	}
	return max(int(d.Seconds()), 1)
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.ID != "" {
		return "user:" + user.ID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

// loginEmailKey peeks at the login payload's email and restores the body for
// the handler. Requests without one fall back to the client IP.
func loginEmailKey(r *http.Request) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return clientIPKey(r)
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return clientIPKey(r)
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &payload) != nil || strings.TrimSpace(payload.Email) == "" {
		return clientIPKey(r)
	}
	return "email:" + strings.ToLower(strings.TrimSpace(payload.Email))
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}

	path := normalizedAPIPath(r.URL.Path)
	switch {
	case path == "/auth/login":
		return sensitiveScopeAuth
	case path == "/tasks/cycles", path == "/admin/jobs/rollup":
		return sensitiveScopeActor
	case strings.HasPrefix(path, "/frameworks"):
		return sensitiveScopeActor
	case strings.HasPrefix(path, "/tasks/") && strings.HasSuffix(path, "/rollup"):
		return sensitiveScopeActor
	}
	return sensitiveScopeNone
}

func normalizedAPIPath(path string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}
