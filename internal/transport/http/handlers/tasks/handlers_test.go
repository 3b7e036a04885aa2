package taskshandler_test

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
	"perfhub/internal/domain/tasks"
	taskshandler "perfhub/internal/transport/http/handlers/tasks"
	"perfhub/internal/transport/http/middleware"
)

var people = map[string]auth.User{
	"manager": {ID: "m1", Name: "Mia Manager", Role: auth.RoleManager},
	"alice":   {ID: "e1", Name: "Alice", Role: auth.RoleEmployee, ReportsTo: "m1"},
	"bob":     {ID: "e2", Name: "Bob", Role: auth.RoleEmployee, ReportsTo: "m1"},
}

// tokenResolver treats the bearer token as a key into people.
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

type directory struct{}

func (directory) Get(_ context.Context, id string) (auth.User, error) {
	for _, u := range people {
		if u.ID == id {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Session(tokenResolver{}, auth.ManagerScopeAll, nil))
	taskshandler.NewHandler(tasks.NewService(tasks.NewMemoryStore(), nil), directory{}, nil).RegisterRoutes(r)
	return r
}

func call(t *testing.T, h http.Handler, method, path, who string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
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

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestCycleLaunchAndRollupOverHTTP(t *testing.T) {
	h := newRouter()

	status, env := call(t, h, http.MethodPost, "/tasks/cycles", "manager", map[string]any{
		"members": []map[string]string{{"id": "e1"}, {"id": "e2", "name": "Bobby"}},
		"message": "Q3 review",
		"dueDate": "2024-09-30",
	})
	require.Equal(t, http.StatusCreated, status)
	parentID := decode[map[string]string](t, env)["parentTaskId"]
	require.NotEmpty(t, parentID)

	status, env = call(t, h, http.MethodGet, "/tasks/"+parentID+"/children", "manager", nil)
	require.Equal(t, http.StatusOK, status)
	children := decode[[]tasks.Task](t, env)
	require.Len(t, children, 2)
	assert.Equal(t, "Alice", children[0].AssignedToName)
	assert.Equal(t, "Bobby", children[1].AssignedToName)
	assert.Equal(t, tasks.CycleChildTitle, children[0].Title)

	status, env = call(t, h, http.MethodPatch, "/tasks/"+children[0].ID, "alice", map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, status, errCode(env))

	status, env = call(t, h, http.MethodGet, "/tasks/"+parentID, "manager", nil)
	require.Equal(t, http.StatusOK, status)
	parent := decode[map[string]any](t, env)
	assert.Equal(t, "IN_PROGRESS", parent["status"])
	assert.InDelta(t, 50.0, parent["progress"], 0.001)
	assert.EqualValues(t, 1, parent["completedSubTasks"])
	assert.Equal(t, true, parent["isParentTask"])

	status, _ = call(t, h, http.MethodPatch, "/tasks/"+children[1].ID, "alice", map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = call(t, h, http.MethodPatch, "/tasks/"+parentID, "manager", map[string]string{"status": "COMPLETED"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_task_spec", errCode(env))
	status, env = call(t, h, http.MethodGet, "/tasks/"+parentID, "manager", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "IN_PROGRESS", decode[map[string]any](t, env)["status"])
}

func TestCycleWithoutMembers(t *testing.T) {
	status, env := call(t, newRouter(), http.MethodPost, "/tasks/cycles", "manager", map[string]any{"members": []any{}})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "no_members_selected", errCode(env))
}

func TestTaskRouteErrors(t *testing.T) {
	h := newRouter()
	tests := []struct {
		name     string
		method   string
		path     string
		who      string
		body     any
		wantCode int
		wantErr  string
	}{
		{name: "anonymous create", method: http.MethodPost, path: "/tasks", body: map[string]string{"title": "x", "assignedTo": "e1"}, wantCode: http.StatusUnauthorized, wantErr: "login_required"},
		{name: "employee create", method: http.MethodPost, path: "/tasks", who: "alice", body: map[string]string{"title": "x", "assignedTo": "e1"}, wantCode: http.StatusForbidden, wantErr: "insufficient_role"},
		{name: "missing title", method: http.MethodPost, path: "/tasks", who: "manager", body: map[string]string{"assignedTo": "e1"}, wantCode: http.StatusBadRequest, wantErr: "invalid_task_spec"},
		{name: "bad type", method: http.MethodPost, path: "/tasks", who: "manager", body: map[string]string{"title": "x", "assignedTo": "e1", "type": "CHORE"}, wantCode: http.StatusBadRequest, wantErr: "invalid_task_spec"},
		{name: "bad due date", method: http.MethodPost, path: "/tasks", who: "manager", body: map[string]string{"title": "x", "assignedTo": "e1", "dueDate": "soon"}, wantCode: http.StatusBadRequest, wantErr: "validation_error"},
		{name: "missing parent", method: http.MethodPost, path: "/tasks", who: "manager", body: map[string]string{"title": "x", "assignedTo": "e1", "parentTaskId": "nope"}, wantCode: http.StatusNotFound, wantErr: "task_not_found"},
		{name: "patch missing", method: http.MethodPatch, path: "/tasks/nope", who: "manager", body: map[string]string{"title": "y"}, wantCode: http.StatusNotFound, wantErr: "task_not_found"},
		{name: "get missing", method: http.MethodGet, path: "/tasks/nope", who: "alice", wantCode: http.StatusNotFound, wantErr: "task_not_found"},
		{name: "delete missing", method: http.MethodDelete, path: "/tasks/nope", who: "manager", wantCode: http.StatusNoContent},
		{name: "other employee tasks", method: http.MethodGet, path: "/tasks?assignedTo=e2", who: "alice", wantCode: http.StatusForbidden, wantErr: "insufficient_role"},
		{name: "employee assigner view", method: http.MethodGet, path: "/tasks?assignedBy=e1", who: "alice", wantCode: http.StatusForbidden, wantErr: "insufficient_role"},
		{name: "malformed", method: http.MethodPost, path: "/tasks", who: "manager", body: `{"title":`, wantCode: http.StatusBadRequest, wantErr: "invalid_payload"},
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

func TestCreatePatchDeleteTask(t *testing.T) {
	h := newRouter()

	status, env := call(t, h, http.MethodPost, "/tasks", "manager", map[string]string{
		"title":      "Write self-review",
		"assignedTo": "e1",
		"dueDate":    "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, status, errCode(env))
	created := decode[tasks.Task](t, env)
	assert.Equal(t, tasks.StatusPending, created.Status)
	assert.Equal(t, tasks.TypeGoalUpdate, created.Type)
	assert.Equal(t, "Alice", created.AssignedToName)
	assert.Equal(t, "m1", created.AssignedBy)

	status, env = call(t, h, http.MethodPatch, "/tasks/"+created.ID, "alice", map[string]string{"assignedTo": "e2"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_payload", errCode(env))

	status, env = call(t, h, http.MethodPatch, "/tasks/"+created.ID, "alice", map[string]string{"description": "draft ready", "status": "IN_PROGRESS"})
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "status_only", errCode(env))

	status, env = call(t, h, http.MethodPatch, "/tasks/"+created.ID, "alice", map[string]string{"status": "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, status)
	updated := decode[tasks.Task](t, env)
	assert.Equal(t, tasks.StatusInProgress, updated.Status)
	assert.Equal(t, "e1", updated.AssignedTo)

	status, env = call(t, h, http.MethodPatch, "/tasks/"+created.ID, "manager", map[string]string{"description": "draft ready", "dueDate": "2024-06-15"})
	require.Equal(t, http.StatusOK, status, errCode(env))
	updated = decode[tasks.Task](t, env)
	assert.Equal(t, "draft ready", updated.Description)
	assert.Equal(t, tasks.StatusInProgress, updated.Status)

	status, env = call(t, h, http.MethodGet, "/tasks", "alice", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]tasks.Task](t, env), 1)

	status, env = call(t, h, http.MethodGet, "/tasks?assignedBy=m1", "manager", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]tasks.Task](t, env), 1)

	status, _ = call(t, h, http.MethodDelete, "/tasks/"+created.ID, "manager", nil)
	require.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, h, http.MethodDelete, "/tasks/"+created.ID, "manager", nil)
	require.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, h, http.MethodGet, "/tasks/"+created.ID, "manager", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRollupRequiresParent(t *testing.T) {
	h := newRouter()
	status, env := call(t, h, http.MethodPost, "/tasks", "manager", map[string]string{"title": "solo", "assignedTo": "e1"})
	require.Equal(t, http.StatusCreated, status)
	id := decode[tasks.Task](t, env).ID

	status, env = call(t, h, http.MethodPost, "/tasks/"+id+"/rollup", "manager", nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "not_parent_task", errCode(env))
}
