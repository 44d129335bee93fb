package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traipulse/internal/auth"
	"traipulse/internal/coach"
	"traipulse/internal/database"
	"traipulse/internal/utility"
)

var testSecret = []byte("route-secret")

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	repo, err := database.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	hub := utility.NewHub()
	svc := coach.NewService(repo, 8, time.Hour, coach.WithNotifier(hub))
	s := &Server{
		db:        repo,
		coach:     coach.NewHandler(svc, hub),
		hub:       hub,
		secret:    testSecret,
		startTime: time.Now(),
	}
	return s.RegisterRoutes()
}

func TestHealthHandler(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "up", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServerHealthHandler(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/server", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "online", body["status"])
	assert.Contains(t, body, "runtime")
	assert.Contains(t, body, "database")
}

func TestPulseRouteRequiresToken(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pulse", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.GenerateAccessToken(testSecret, "u1", time.Now())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/pulse", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", "req-1")
	rec = httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestLoggerMiddlewareTagsClientIP(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var ip string
	h := LoggerMiddleware(func(c echo.Context) error {
		ip, _ = c.Get("client_ip").(string)
		assert.NotNil(t, utility.LoggerFromContext(c))
		return nil
	})

	require.NoError(t, h(c))
	assert.Equal(t, "203.0.113.7", ip)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
