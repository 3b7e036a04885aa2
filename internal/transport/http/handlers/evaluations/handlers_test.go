package evaluationshandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfhub/internal/domain/auth"
	"perfhub/internal/domain/evaluations"
	"perfhub/internal/domain/frameworks"
	evaluationshandler "perfhub/internal/transport/http/handlers/evaluations"
	"perfhub/internal/transport/http/middleware"
)

var people = map[string]auth.User{
	"manager": {ID: "m1", Role: auth.RoleManager},
	"alice":   {ID: "e1", Role: auth.RoleEmployee},
	"bob":     {ID: "e2", Role: auth.RoleEmployee},
}

type tokenResolver struct{}

func (tokenResolver) Resolve(_ context.Context, token string) (*auth.Session, error) {
	user, ok := people[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	session := auth.NewSession(auth.ManagerScopeAll)
	session.Login("sid-"+token, user, time.Now().Add(time.Hour))
	return session, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	catalog, err := frameworks.Load("")
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Session(tokenResolver{}, auth.ManagerScopeAll, nil))
	service := evaluations.NewService(evaluations.NewMemoryStore(), catalog, nil)
	evaluationshandler.NewHandler(service, nil).RegisterRoutes(r)
	return r
}

func call(t *testing.T, h http.Handler, method, path, who string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+who)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func errCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func rating(category string, value float64) map[string]any {
	return map[string]any{"categoryId": category, "value": value, "comment": "noted"}
}

func createEvaluation(t *testing.T, h http.Handler) evaluations.Evaluation {
	t.Helper()
	status, env := call(t, h, http.MethodPost, "/evaluations", "manager", map[string]any{
		"employeeId":  "e1",
		"period":      "2024-H1",
		"frameworkId": "framework1",
		"ratings":     []any{rating("driving-results", 5), rating("delivering-expertise", 3)},
	})
	require.Equal(t, http.StatusCreated, status, errCode(env))
	var created evaluations.Evaluation
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created
}

func TestEvaluationLifecycleOverHTTP(t *testing.T) {
	h := newRouter(t)
	created := createEvaluation(t, h)
	assert.Equal(t, evaluations.StatusDraft, created.Status)
	assert.Equal(t, "m1", created.SupervisorID)
	assert.InDelta(t, 4.0, created.OverallScore, 0.0001)
	assert.Equal(t, "Distinctive", created.Ratings[0].Label)
	path := "/evaluations/" + created.ID

	status, env := call(t, h, http.MethodPost, path+"/status", "manager", map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", errCode(env))

	status, _ = call(t, h, http.MethodPost, path+"/status", "manager", map[string]string{"status": "PENDING_REVIEW"})
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, h, http.MethodPost, path+"/status", "manager", map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusConflict, status, "all categories must be rated first")
	assert.Equal(t, "invalid_transition", errCode(env))

	status, env = call(t, h, http.MethodPatch, path, "manager", map[string]any{
		"ratings": []any{
			rating("driving-results", 5),
			rating("delivering-expertise", 4),
			rating("inspiring-others", 4),
			rating("continuous-improvement", 3),
		},
	})
	require.Equal(t, http.StatusOK, status, errCode(env))
	var updated evaluations.Evaluation
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.InDelta(t, 4.0, updated.OverallScore, 0.0001)
	assert.Len(t, updated.Ratings, 4)

	status, _ = call(t, h, http.MethodPost, path+"/status", "manager", map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, h, http.MethodPatch, path, "manager", map[string]any{"overallComments": "late edit"})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "evaluation_completed", errCode(env))

	status, env = call(t, h, http.MethodDelete, path, "manager", nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "evaluation_completed", errCode(env))
}

func TestEvaluationVisibility(t *testing.T) {
	h := newRouter(t)
	created := createEvaluation(t, h)

	status, _ := call(t, h, http.MethodGet, "/evaluations/"+created.ID, "alice", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := call(t, h, http.MethodGet, "/evaluations/"+created.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient_role", errCode(env))

	status, env = call(t, h, http.MethodGet, "/evaluations", "bob", nil)
	require.Equal(t, http.StatusOK, status)
	var mine []evaluations.Evaluation
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Empty(t, mine)

	status, _ = call(t, h, http.MethodGet, "/evaluations?employeeId=e1", "bob", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = call(t, h, http.MethodGet, "/evaluations?employeeId=e1", "manager", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine, 1)

	status, _ = call(t, h, http.MethodPatch, "/evaluations/"+created.ID, "alice", map[string]any{"overallComments": "self edit"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestEvaluationRequestErrors(t *testing.T) {
	h := newRouter(t)
	tests := []struct {
		name     string
		method   string
		path     string
		who      string
		body     any
		wantCode int
		wantErr  string
	}{
		{name: "employee create", method: http.MethodPost, path: "/evaluations", who: "alice", body: map[string]any{"employeeId": "e1", "frameworkId": "framework1"}, wantCode: http.StatusForbidden, wantErr: "insufficient_role"},
		{name: "anonymous list", method: http.MethodGet, path: "/evaluations", wantCode: http.StatusUnauthorized, wantErr: "login_required"},
		{name: "missing employee", method: http.MethodPost, path: "/evaluations", who: "manager", body: map[string]any{"frameworkId": "framework1"}, wantCode: http.StatusBadRequest, wantErr: "invalid_evaluation"},
		{name: "unknown framework", method: http.MethodPost, path: "/evaluations", who: "manager", body: map[string]any{"employeeId": "e1", "frameworkId": "nope"}, wantCode: http.StatusBadRequest, wantErr: "unknown_framework"},
		{name: "off-scale rating", method: http.MethodPost, path: "/evaluations", who: "manager", body: map[string]any{"employeeId": "e1", "frameworkId": "framework1", "ratings": []any{rating("driving-results", 7)}}, wantCode: http.StatusBadRequest, wantErr: "rating_out_of_scale"},
		{name: "unknown category", method: http.MethodPost, path: "/evaluations", who: "manager", body: map[string]any{"employeeId": "e1", "frameworkId": "framework1", "ratings": []any{rating("quality", 3)}}, wantCode: http.StatusBadRequest, wantErr: "unknown_category"},
		{name: "bad status filter", method: http.MethodGet, path: "/evaluations?status=DONE", who: "manager", wantCode: http.StatusBadRequest, wantErr: "validation_error"},
		{name: "missing status", method: http.MethodPost, path: "/evaluations/nope/status", who: "manager", body: map[string]any{}, wantCode: http.StatusNotFound, wantErr: "evaluation_not_found"},
		{name: "get missing", method: http.MethodGet, path: "/evaluations/nope", who: "manager", wantCode: http.StatusNotFound, wantErr: "evaluation_not_found"},
		{name: "delete missing", method: http.MethodDelete, path: "/evaluations/nope", who: "manager", wantCode: http.StatusNoContent},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			status, env := call(t, h, tc.method, tc.path, tc.who, tc.body)
			require.Equal(t, tc.wantCode, status)
			assert.Equal(t, tc.wantErr, errCode(env))
		})
	}
}
