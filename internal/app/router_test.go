package app

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/gymsuite/internal/observability"
	"github.com/odyssey-erp/gymsuite/internal/shared"
	"github.com/odyssey-erp/gymsuite/jobs"
)

func stubAuthenticator(rc shared.RequestContext) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithRequest(r.Context(), rc)))
		})
	}
}

func newTestRouter(rc shared.RequestContext) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterParams{
		Logger:        logger,
		Config:        &Config{AppEnv: "test"},
		Authenticator: stubAuthenticator(rc),
		JobHandler:    jobs.NewHandler(nil, logger),
		Metrics:       observability.NewMetrics(),
	})
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router := newTestRouter(shared.RequestContext{UserID: 1})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterAdminRoutesRequireAdmin(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(shared.RequestContext{UserID: 2}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs/health", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(shared.RequestContext{UserID: 1, IsAdmin: true}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccessLogRecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := accessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/memberships", nil))

	line := buf.String()
	assert.Contains(t, line, `"msg":"http request"`)
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"bytes":5`)
	assert.Contains(t, line, `"path":"/api/v1/memberships"`)
}

func TestAccessLogProbesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	handler := accessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, buf.String())
}
