package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/application/service"
	"github.com/repolens/repolens/domain/analysis"
	"github.com/repolens/repolens/infrastructure/persistence"
	"github.com/repolens/repolens/internal/database"
)

type serverEnv struct {
	server   *Server
	repos    persistence.RepositoryStore
	tasks    persistence.TaskStore
	findings persistence.FindingStore
}

func newServerEnv(t *testing.T, apiKeys ...string) serverEnv {
	t.Helper()
	db, err := database.NewDatabase(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))
	t.Cleanup(func() { _ = db.Close() })

	repos := persistence.NewRepositoryStore(db)
	tasks := persistence.NewTaskStore(db)
	queue := service.NewQueue(tasks, nil)

	findings := persistence.NewFindingStore(db)
	repositories := service.NewRepositoryService(repos, queue, nil)
	risk := service.NewRiskService(
		findings,
		persistence.NewEntityStore(db),
		persistence.NewBusFactorStore(db),
	)

	return serverEnv{
		server:   NewServer("127.0.0.1:0", repositories, risk, apiKeys, nil),
		repos:    repos,
		tasks:    tasks,
		findings: findings,
	}
}

func (e serverEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.Router().ServeHTTP(w, req)
	return w
}

func TestServerSubmitRepository(t *testing.T) {
	env := newServerEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/repositories",
		`{"remote_url": "https://github.com/acme/widget.git"}`, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	var created struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "acme/widget", created.FullName)
	assert.Equal(t, "queued", created.Status)

	// Submit queues the full clone/analyze/history sequence.
	pending, err := env.tasks.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), pending)

	w = env.do(t, http.MethodGet, "/api/v1/repositories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestServerSubmitValidation(t *testing.T) {
	env := newServerEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/repositories", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/repositories", `{"remote_url": "https://example.com/"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerGetRepositoryNotFound(t *testing.T) {
	env := newServerEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/repositories/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/repositories/not-a-number", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerAPIKeyProtectsWrites(t *testing.T) {
	env := newServerEnv(t, "secret")

	body := `{"remote_url": "https://github.com/acme/widget.git"}`
	w := env.do(t, http.MethodPost, "/api/v1/repositories", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/repositories", body, map[string]string{"X-API-KEY": "secret"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	// Reads stay open.
	w = env.do(t, http.MethodGet, "/api/v1/repositories", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerReportAndFindings(t *testing.T) {
	ctx := context.Background()
	env := newServerEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/repositories",
		`{"remote_url": "https://github.com/acme/widget.git"}`, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	saved, err := env.findings.SaveAll(ctx, []analysis.SecurityFinding{
		analysis.NewSecurityFinding(created.ID, "config.js", "HARDCODED_PASSWORD",
			analysis.SeverityCritical, analysis.CategorySecret, 1,
			"Password assigned as a string literal", "const password = 'admin12345';", 0.8),
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	w = env.do(t, http.MethodGet, "/api/v1/repositories/1/report", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report struct {
		Score  int `json:"score"`
		Counts struct {
			Critical int `json:"critical"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 40, report.Score)
	assert.Equal(t, 1, report.Counts.Critical)

	w = env.do(t, http.MethodPut, "/api/v1/findings/1/status", `{"status": "false_positive"}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/findings/1/status", `{"status": "nonsense"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerHealthz(t *testing.T) {
	env := newServerEnv(t, "secret")

	w := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
