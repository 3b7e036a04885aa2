package audithandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfhub/internal/domain/audit"
	"perfhub/internal/domain/auth"
	audithandler "perfhub/internal/transport/http/handlers/audit"
	"perfhub/internal/transport/http/middleware"
)

type roleResolver struct{}

func (roleResolver) Resolve(_ context.Context, token string) (*auth.Session, error) {
	role, err := auth.ParseRole(token)
	if err != nil {
		return nil, errors.New("unknown token")
	}
	session := auth.NewSession(auth.ManagerScopeAll)
	session.Login("sid", auth.User{ID: "u-" + token, Role: role}, time.Now().Add(time.Hour))
	return session, nil
}

func seeded(t *testing.T) *audit.Service {
	t.Helper()
	svc := audit.New(audit.NewMemoryStore(), nil)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, audit.Event{ActorID: "m1", Action: "POST /api/v1/tasks/cycles", EntityType: "tasks", Status: 201}))
	require.NoError(t, svc.Record(ctx, audit.Event{ActorID: "m1", Action: "POST /api/v1/evaluations", EntityType: "evaluations", Status: 201}))
	require.NoError(t, svc.Record(ctx, audit.Event{ActorID: "a1", Action: "PUT /api/v1/frameworks/{frameworkID}", EntityType: "frameworks", EntityID: "framework1", Status: 200}))
	return svc
}

func newRouter(svc *audit.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Session(roleResolver{}, auth.ManagerScopeAll, nil))
	audithandler.NewHandler(svc, nil).RegisterRoutes(r)
	return r
}

func send(h http.Handler, path, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListEventsIsAdminOnly(t *testing.T) {
	h := newRouter(seeded(t))

	rec := send(h, "/admin/audit/", "MANAGER")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = send(h, "/admin/audit/?actorId=m1&limit=1", "ADMIN")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	var env struct {
		Data []audit.Event `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "POST /api/v1/evaluations", env.Data[0].Action)
}

func TestExportEventsWritesCSV(t *testing.T) {
	h := newRouter(seeded(t))

	rec := send(h, "/admin/audit/export?entityType=frameworks", "ADMIN")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,actor_user_id,"))
	assert.Contains(t, lines[1], "framework1")
}

func TestExportEventsOtherFormats(t *testing.T) {
	h := newRouter(seeded(t))

	rec := send(h, "/admin/audit/export?format=xlsx", "ADMIN")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "audit-events.xlsx")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	rec = send(h, "/admin/audit/export?format=pdf", "ADMIN")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))

	rec = send(h, "/admin/audit/export?format=docx", "ADMIN")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
