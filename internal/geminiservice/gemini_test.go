package geminiservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateBody(text string) string {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestGenerateContentSendsSchemaAndKey(t *testing.T) {
	var got GeminiPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, candidateBody(`{"title":"t","message":"m"}`))
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	c := NewClient("secret", 100, WithBaseURL(srv.URL))

	text, err := c.GenerateContent(context.Background(), &logger, "hello")

	require.NoError(t, err)
	assert.Equal(t, `{"title":"t","message":"m"}`, text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "hello", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, structuredMimeType, got.GenerationConfig.ResponseMimeType)
	assert.Contains(t, got.GenerationConfig.ResponseSchema.Properties, "prompt")
}

func TestGenerateContentRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, candidateBody("ok"))
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	c := NewClient("k", 1000, WithBaseURL(srv.URL), WithBackoff(time.Millisecond))

	text, err := c.GenerateContent(context.Background(), &logger, "p")

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGenerateContentDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	c := NewClient("k", 1000, WithBaseURL(srv.URL), WithBackoff(time.Millisecond))

	_, err := c.GenerateContent(context.Background(), &logger, "p")

	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGenerateContentNotConfigured(t *testing.T) {
	logger := zerolog.Nop()
	c := NewClient("", 1)

	assert.False(t, c.Enabled())
	_, err := c.GenerateContent(context.Background(), &logger, "p")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateContentEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	c := NewClient("k", 1000, WithBaseURL(srv.URL))

	_, err := c.GenerateContent(context.Background(), &logger, "p")
	assert.Error(t, err)
}
