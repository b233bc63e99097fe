package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"triagebot/internal/classifier"
	"triagebot/internal/dedup"
	"triagebot/internal/handler"
	"triagebot/internal/model"
	"triagebot/internal/repository"
	"triagebot/internal/responder"
	"triagebot/internal/service"
	"triagebot/pkg/config"
	"triagebot/pkg/db"
	"triagebot/pkg/trace"
	"triagebot/pkg/util"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("store offline") }

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	ctx := context.Background()

	conn, err := db.NewSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "triage.db")}, zap.NewNop())
	require.NoError(t, err)
	repo, err := repository.NewSQLiteTriageRepository(ctx, conn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cache, err := dedup.NewCache(dedup.DefaultCapacity)
	require.NoError(t, err)
	catalog, err := model.NewIntentCatalog(model.DefaultIntents())
	require.NoError(t, err)
	resp, err := responder.New(catalog, model.DefaultFallbackReplies(), responder.DefaultThreshold)
	require.NoError(t, err)

	pipeline, err := service.NewPipeline(service.PipelineDeps{
		Gate:       dedup.NewCacheGate(cache),
		Classifier: classifier.New(classifier.DefaultRules()),
		Responder:  resp,
		Repo:       repo,
	})
	require.NoError(t, err)
	scheduler, err := service.NewReminderScheduler(repo, service.NewLogNotifier(zap.NewNop()), service.ReminderOptions{Target: "#inbox"}, zap.NewNop())
	require.NoError(t, err)

	h := handler.NewTriageHandler(pipeline, repo, scheduler, zap.NewNop())
	return NewRouter(h, repo, testSecret, zap.NewNop())
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := util.GenerateJWT("admin", testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(t *testing.T, r *Router, method, path string, body any, auth string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decode(t, rec)["status"])

	rec = do(t, r, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReportsStoreFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRouter(handler.NewTriageHandler(nil, nil, nil, nil), failingPinger{}, testSecret, zap.New(core))

	rec := do(t, r, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, map[string]any{"status": "store_not_ready"}, decode(t, rec))
	assert.NotContains(t, rec.Body.String(), "store offline")

	entries := logs.FilterMessage("Readiness check failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "store offline", entries[0].ContextMap()["error"])
}

func TestAPIRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		auth string
	}{
		{name: "missing", auth: ""},
		{name: "wrong scheme", auth: "Basic abc"},
		{name: "bad signature", auth: "Bearer not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodGet, "/api/v1/records/unreminded", nil, tt.auth)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestTraceHeaderIsPropagated(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(trace.HeaderName, "abc123")
	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, req)
	assert.Equal(t, "abc123", rec.Header().Get(trace.HeaderName))

	rec = do(t, r, http.MethodGet, "/healthz", nil, "")
	assert.Len(t, rec.Header().Get(trace.HeaderName), 32)
}

func TestSubmitListAndSweep(t *testing.T) {
	r := newTestRouter(t)
	auth := bearer(t)

	rec := do(t, r, http.MethodPost, "/api/v1/messages", map[string]any{
		"source_id": "m-1",
		"sender":    "ana@example.com",
		"subject":   "URGENT: invoice overdue",
		"body":      "Please send the invoice today",
		"mode":      "track_unanswered",
	}, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, float64(1), out["record_id"])
	assert.Equal(t, "urgent", out["classification"].(map[string]any)["category"])
	assert.NotContains(t, out, "summary")
	assert.Len(t, out["suggestions"], 3)

	rec = do(t, r, http.MethodPost, "/api/v1/messages", map[string]any{
		"source_id": "m-1",
		"subject":   "URGENT: invoice overdue",
	}, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["skipped"])

	rec = do(t, r, http.MethodGet, "/api/v1/records/unreminded", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = do(t, r, http.MethodPost, "/api/v1/reminders/sweep", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = do(t, r, http.MethodGet, "/api/v1/records/unreminded", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []any{}, body["records"])
}

func TestSubmitMessageRejectsInvalidJSON(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	r.Engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
