package coach

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traipulse/internal/utility"
)

func newTestEcho(t *testing.T, userID string) (*echo.Echo, *Service) {
	t.Helper()
	svc, _ := newTestService(t, evening)
	h := NewHandler(svc, utility.NewHub())

	e := echo.New()
	g := e.Group("")
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if userID != "" {
				c.Set("user_id", userID)
			}
			return next(c)
		}
	})
	h.Register(g)
	return e, svc
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlersRequireUser(t *testing.T) {
	e, _ := newTestEcho(t, "")

	rec := do(e, http.MethodGet, "/pulse", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetPulseHandler(t *testing.T) {
	e, _ := newTestEcho(t, "u1")

	rec := do(e, http.MethodPut, "/profile", `{"goal":"build_muscle","calorie_goal":2200,"protein_goal":150}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/pulse", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Brief struct {
			Phase string `json:"phase"`
		} `json:"brief"`
		Surface struct {
			Actions []json.RawMessage `json:"actions"`
		} `json:"surface"`
		Ranked []json.RawMessage `json:"ranked_actions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "on_track", body.Brief.Phase)
	assert.Len(t, body.Surface.Actions, 2)
	assert.NotEmpty(t, body.Ranked)
}

func TestGetContentHandlerFallsBack(t *testing.T) {
	e, _ := newTestEcho(t, "u1")

	rec := do(e, http.MethodGet, "/pulse/content", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ContentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Generated)
	assert.NotEmpty(t, body.Content.Title)
}

func TestRecordEventHandler(t *testing.T) {
	e, _ := newTestEcho(t, "u1")

	rec := do(e, http.MethodPost, "/pulse/events", `{"action_key":"log_food","outcome":"performed","surface":"pulse"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id"`)

	rec = do(e, http.MethodPost, "/pulse/events", `{"action_key":"juggle","outcome":"performed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/pulse/events", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswerHandler(t *testing.T) {
	e, _ := newTestEcho(t, "u1")

	rec := do(e, http.MethodPost, "/pulse/answers", `{"question_id":"readiness_scan","text":"Fresh"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"source":"dashboard_note:readiness_scan"`)

	rec = do(e, http.MethodPost, "/pulse/answers", `{"question_id":"readiness_scan"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordHandlers(t *testing.T) {
	e, _ := newTestEcho(t, "u1")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"food", "/food", `{"name":"Eggs","protein":18,"calories":210}`, http.StatusCreated},
		{"food without name", "/food", `{"protein":18}`, http.StatusBadRequest},
		{"workout", "/workouts", `{"name":"Pull","duration_minutes":45,"muscle_groups":["Back","biceps"]}`, http.StatusCreated},
		{"live workout", "/workouts/live", `{}`, http.StatusCreated},
		{"weight", "/weights", `{"weight_kg":80.4}`, http.StatusCreated},
		{"bad weight", "/weights", `{"weight_kg":-1}`, http.StatusBadRequest},
		{"reminder", "/reminders", `{"title":"Creatine","due_at":"2026-03-18T19:00:00Z"}`, http.StatusCreated},
		{"signal", "/pulse/signals", `{"domain":"pain","title":"Left knee","severity":0.6,"confidence":0.8}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCompleteReminderHandler(t *testing.T) {
	e, _ := newTestEcho(t, "u1")

	rec := do(e, http.MethodPost, "/reminders", `{"title":"Stretch","due_at":"2026-03-18T19:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(e, http.MethodPost, "/reminders/"+created["id"]+"/complete", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/reminders/missing/complete", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
