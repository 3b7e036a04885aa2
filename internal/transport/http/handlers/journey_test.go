package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfhub/internal/app/server"
	"perfhub/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

const journeyUsers = `users:
  - id: m1
    name: Maria Manager
    email: maria@example.com
    role: MANAGER
    department: Engineering
    password: Manager123!
  - id: m2
    name: Omar Other
    email: omar@example.com
    role: MANAGER
    department: Sales
    password: Manager123!
  - id: e1
    name: Eve Employee
    email: eve@example.com
    role: EMPLOYEE
    department: Engineering
    reportsTo: m1
    password: Employee123!
  - id: e2
    name: Ed Employee
    email: ed@example.com
    role: EMPLOYEE
    department: Engineering
    reportsTo: m1
    password: Employee123!
`

func testConfig(t *testing.T, scope string) config.Config {
	t.Helper()
	usersFile := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(usersFile, []byte(journeyUsers), 0o600))
	return config.Config{
		Environment:        "test",
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		ManagerScope:       scope,
		UsersFile:          usersFile,
		RunSeed:            true,
		SeedAdminEmail:     "admin@example.com",
		SeedAdminPassword:  "ChangeMe123!",
		SeedAdminName:      "Admin",
		EmailFrom:          "no-reply@example.com",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		MetricsEnabled:     true,
		Log:                config.LogConfig{Level: "error"},
	}
}

func startApp(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	app, err := server.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return ts
}

func TestPerformanceCycleJourney(t *testing.T) {
	ts := startApp(t, testConfig(t, "all"))
	client := ts.Client()

	managerToken := login(t, client, ts.URL, "maria@example.com", "Manager123!")
	employeeToken := login(t, client, ts.URL, "eve@example.com", "Employee123!")
	adminToken := login(t, client, ts.URL, "admin@example.com", "ChangeMe123!")

	status, _, env := doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/tasks/cycles", managerToken, map[string]any{
		"members":     []map[string]string{{"id": "e1", "name": "Eve Employee"}, {"id": "e2", "name": "Ed Employee"}},
		"frameworkId": "framework1",
		"message":     "Please update your goals.",
		"dueDate":     "2026-12-31",
	})
	require.Equal(t, http.StatusCreated, status)
	var launched struct {
		ParentTaskID string `json:"parentTaskId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &launched))
	require.NotEmpty(t, launched.ParentTaskID)

	status, _, env = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/tasks", employeeToken, nil)
	require.Equal(t, http.StatusOK, status)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, launched.ParentTaskID, mine[0]["parentTaskId"])
	assert.Equal(t, "framework1", mine[0]["frameworkId"])
	childID, _ := mine[0]["id"].(string)
	require.NotEmpty(t, childID)

	status, _, _ = doJSON(t, client, http.MethodPatch, ts.URL+"/api/v1/tasks/"+childID, employeeToken, map[string]any{
		"status": "COMPLETED",
	})
	require.Equal(t, http.StatusOK, status)

	status, _, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/tasks/"+launched.ParentTaskID+"/rollup", managerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var parent map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &parent))
	assert.Equal(t, float64(2), parent["totalSubTasks"])
	assert.Equal(t, float64(1), parent["completedSubTasks"])
	assert.Equal(t, float64(50), parent["progress"])
	assert.Equal(t, "IN_PROGRESS", parent["status"])

	ratings := []map[string]any{
		{"categoryId": "driving-results", "value": 5},
		{"categoryId": "delivering-expertise", "value": 4},
		{"categoryId": "inspiring-others", "value": 4},
		{"categoryId": "continuous-improvement", "value": 3},
	}
	status, _, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations", managerToken, map[string]any{
		"employeeId":  "e1",
		"period":      "2026-H2",
		"frameworkId": "framework1",
		"ratings":     ratings,
	})
	require.Equal(t, http.StatusCreated, status)
	var evaluation map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &evaluation))
	evaluationID, _ := evaluation["id"].(string)
	require.NotEmpty(t, evaluationID)
	assert.Equal(t, "DRAFT", evaluation["status"])

	for _, next := range []string{"PENDING_REVIEW", "COMPLETED"} {
		status, _, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/evaluations/"+evaluationID+"/status", managerToken, map[string]any{
			"status": next,
		})
		require.Equal(t, http.StatusOK, status, next)
	}
	require.NoError(t, json.Unmarshal(env.Data, &evaluation))
	assert.Equal(t, "COMPLETED", evaluation["status"])
	assert.Equal(t, float64(4), evaluation["overallScore"])

	status, _, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/feedback", managerToken, map[string]any{
		"employeeId": "e1",
		"type":       "AD_HOC",
		"content":    "Great work on the quarterly goals review.",
	})
	require.Equal(t, http.StatusCreated, status)

	status, _, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/goals", employeeToken, map[string]any{
		"title":     "Complete Advanced React Training",
		"timeBound": "2026-12-31",
	})
	require.Equal(t, http.StatusCreated, status)
	var goal map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &goal))
	goalID, _ := goal["id"].(string)
	status, _, env = doJSON(t, client, http.MethodPut, ts.URL+"/api/v1/goals/"+goalID+"/progress", employeeToken, map[string]any{"progress": 100})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &goal))
	assert.Equal(t, "COMPLETED", goal["status"])

	status, header, env := doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/notifications", employeeToken, nil)
	require.Equal(t, http.StatusOK, status)
	var notes []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	assert.NotEmpty(t, notes)
	unread, err := strconv.Atoi(header.Get("X-Unread-Count"))
	require.NoError(t, err)
	assert.Equal(t, len(notes), unread)

	status, _, env = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/reports/summary?scope=team", managerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, float64(2), summary["employees"])
	assert.Equal(t, float64(1), summary["evaluationsCompleted"])

	resp := doRaw(t, client, http.MethodGet, ts.URL+"/api/v1/reports/export?type=team&format=csv", managerToken)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.header.Get("Content-Disposition"), "attachment")
	assert.NotEmpty(t, resp.body)

	status, _, env = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/admin/jobs/rollup", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var run map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, "completed", run["status"])

	status, _, env = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/admin/audit?action=POST+/api/v1/tasks/cycles", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "m1", events[0]["actorId"])
	assert.Equal(t, "tasks", events[0]["entityType"])
}

func TestRoleGateAcrossRoutes(t *testing.T) {
	ts := startApp(t, testConfig(t, "all"))
	client := ts.Client()
	employeeToken := login(t, client, ts.URL, "eve@example.com", "Employee123!")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{"anonymous task list", http.MethodGet, "/api/v1/tasks", "", http.StatusUnauthorized, "login_required"},
		{"employee launching cycle", http.MethodPost, "/api/v1/tasks/cycles", employeeToken, http.StatusForbidden, "insufficient_role"},
		{"employee reading reports", http.MethodGet, "/api/v1/reports/summary", employeeToken, http.StatusForbidden, "insufficient_role"},
		{"employee reading jobs", http.MethodGet, "/api/v1/admin/jobs/runs", employeeToken, http.StatusForbidden, "insufficient_role"},
		{"employee reading another user's tasks", http.MethodGet, "/api/v1/tasks?assignedTo=e2", employeeToken, http.StatusForbidden, "insufficient_role"},
		{"anonymous goal list", http.MethodGet, "/api/v1/goals", "", http.StatusUnauthorized, "login_required"},
		{"employee reading another user's goals", http.MethodGet, "/api/v1/goals?employeeId=e2", employeeToken, http.StatusForbidden, "insufficient_role"},
		{"bad token is anonymous", http.MethodGet, "/api/v1/auth/me", "not-a-token", http.StatusUnauthorized, "login_required"},
		{"unknown route", http.MethodGet, "/api/v1/nope", employeeToken, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			status, _, env := doJSON(t, client, tc.method, ts.URL+tc.path, tc.token, nil)
			assert.Equal(t, tc.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}

	status, _, _ := doJSON(t, client, http.MethodGet, ts.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	metrics := doRaw(t, client, http.MethodGet, ts.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, metrics.status)
	assert.Contains(t, string(metrics.body), "http_requests_total")
}

func TestDirectReportsScopeLimitsManagers(t *testing.T) {
	ts := startApp(t, testConfig(t, "direct_reports"))
	client := ts.Client()
	maria := login(t, client, ts.URL, "maria@example.com", "Manager123!")
	omar := login(t, client, ts.URL, "omar@example.com", "Manager123!")

	status, _, _ := doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/tasks?assignedTo=e1", maria, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _, env := doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/tasks?assignedTo=e1", omar, nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "insufficient_role", env.Error.Code)

	status, _, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/tasks/cycles", omar, map[string]any{
		"members": []map[string]string{{"id": "e1"}},
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _, env = doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/users", omar, nil)
	require.Equal(t, http.StatusOK, status)
	var visible []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &visible))
	require.Len(t, visible, 1)
	assert.Equal(t, "m2", visible[0]["id"])
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := startApp(t, testConfig(t, "all"))
	client := ts.Client()
	token := login(t, client, ts.URL, "eve@example.com", "Employee123!")

	status, _, _ := doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _, env := doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "login_required", env.Error.Code)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	status, _, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, "login %s", email)
	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) (int, http.Header, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 && bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, resp.Header, env
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func doRaw(t *testing.T, client *http.Client, method, url, token string) rawResponse {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return rawResponse{status: resp.StatusCode, header: resp.Header, body: body}
}
