package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func protectedEcho() *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("user_id").(string))
	}, JwtAuthMiddleware(secret))
	return e
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	token, err := GenerateAccessToken(secret, "u1", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name  string
		setup func(r *http.Request)
		path  string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, "/me"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "access-token", Value: token}) }, "/me"},
		{"query", func(*http.Request) {}, "/me?access_token=" + token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			protectedEcho().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "u1", rec.Body.String())
		})
	}
}

func TestMiddlewareRejects(t *testing.T) {
	expired, err := GenerateAccessToken(secret, "u1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := GenerateAccessToken([]byte("other"), "u1", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"expired", "Bearer " + expired},
		{"wrong key", "Bearer " + foreign},
		{"garbage", "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protectedEcho().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
