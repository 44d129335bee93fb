package coach

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"traipulse/internal/behavior"
	"traipulse/internal/database"
	"traipulse/internal/pulse"
	"traipulse/internal/utility"
)

// Handler exposes the service over echo. Every route expects the auth
// middleware to have set user_id.
type Handler struct {
	svc *Service
	hub *utility.Hub
}

func NewHandler(svc *Service, hub *utility.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// Register mounts the coach routes on g.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/pulse", h.GetPulseHandler)
	g.GET("/pulse/content", h.GetContentHandler)
	g.POST("/pulse/events", h.RecordEventHandler)
	g.POST("/pulse/answers", h.AnswerHandler)
	g.POST("/pulse/signals", h.AddSignalHandler)
	g.GET("/pulse/ws", h.DashboardSocketHandler)

	g.PUT("/profile", h.SaveProfileHandler)
	g.POST("/food", h.LogFoodHandler)
	g.POST("/workouts", h.LogWorkoutHandler)
	g.POST("/workouts/live", h.TrackLiveWorkoutHandler)
	g.POST("/weights", h.LogWeightHandler)
	g.POST("/reminders", h.AddReminderHandler)
	g.POST("/reminders/:reminder_id/complete", h.CompleteReminderHandler)
}

// errorResponse maps service errors onto JSON error bodies.
func errorResponse(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, database.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}
	utility.LoggerFromContext(c).Error().Err(err).Msg(action + " failed")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to " + action})
}

func unauthorized(c echo.Context, err error) error {
	log.Error().Err(err).Msg("Failed to get user ID from context")
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
}

func created(c echo.Context, id string) error {
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
}

/* =================================================================================
								PULSE
=================================================================================*/

// GetPulseHandler returns the deterministic brief, the composed surface and
// the ranked actions.
func (h *Handler) GetPulseHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	p, _, err := h.svc.Pulse(c.Request().Context(), uid)
	if err != nil {
		return errorResponse(c, err, "build pulse")
	}
	return c.JSON(http.StatusOK, p)
}

// GetContentHandler returns the card content, generated when possible.
func (h *Handler) GetContentHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	res, err := h.svc.Content(c.Request().Context(), utility.LoggerFromContext(c), uid)
	if err != nil {
		return errorResponse(c, err, "build content")
	}
	return c.JSON(http.StatusOK, res)
}

type eventRequest struct {
	ActionKey       string            `json:"action_key"`
	Domain          string            `json:"domain"`
	Surface         string            `json:"surface"`
	Outcome         string            `json:"outcome"`
	OccurredAt      time.Time         `json:"occurred_at"`
	RelatedEntityID string            `json:"related_entity_id"`
	Metadata        map[string]string `json:"metadata"`
}

func (h *Handler) RecordEventHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	id, err := h.svc.RecordEvent(c.Request().Context(), uid, behavior.Event{
		ActionKey:       behavior.ActionKey(req.ActionKey),
		Domain:          req.Domain,
		Surface:         req.Surface,
		Outcome:         behavior.Outcome(req.Outcome),
		OccurredAt:      req.OccurredAt,
		RelatedEntityID: req.RelatedEntityID,
		Metadata:        req.Metadata,
	})
	if err != nil {
		return errorResponse(c, err, "record event")
	}
	return created(c, id)
}

type answerRequest struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

func (h *Handler) AnswerHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	sig, err := h.svc.Answer(c.Request().Context(), uid, req.QuestionID, req.Text)
	if err != nil {
		return errorResponse(c, err, "save answer")
	}
	return c.JSON(http.StatusCreated, sig)
}

func (h *Handler) AddSignalHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var sig pulse.CoachSignal
	if err := c.Bind(&sig); err != nil {
		return badRequest(c)
	}

	id, err := h.svc.AddSignal(c.Request().Context(), uid, sig)
	if err != nil {
		return errorResponse(c, err, "save signal")
	}
	return created(c, id)
}

// DashboardSocketHandler keeps a websocket open that receives REFRESH
// whenever this user's pulse may have changed.
func (h *Handler) DashboardSocketHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}
	if err := h.hub.Serve(c.Response(), c.Request(), uid); err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("WebSocket upgrade failed")
	}
	return nil
}

/* =================================================================================
								RECORDS
=================================================================================*/

func (h *Handler) SaveProfileHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var p pulse.UserProfile
	if err := c.Bind(&p); err != nil {
		return badRequest(c)
	}
	if err := h.svc.SaveProfile(c.Request().Context(), uid, p); err != nil {
		return errorResponse(c, err, "save profile")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Profile saved"})
}

func (h *Handler) LogFoodHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var e pulse.FoodEntry
	if err := c.Bind(&e); err != nil {
		return badRequest(c)
	}
	id, err := h.svc.LogFood(c.Request().Context(), uid, e)
	if err != nil {
		return errorResponse(c, err, "log food")
	}
	return created(c, id)
}

type workoutRequest struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes float64   `json:"duration_minutes"`
	MuscleGroups    []string  `json:"muscle_groups"`
}

func (h *Handler) LogWorkoutHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var req workoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}
	id, err := h.svc.LogWorkout(c.Request().Context(), uid, pulse.WorkoutSession{
		ID:           req.ID,
		Name:         req.Name,
		StartedAt:    req.StartedAt,
		Duration:     time.Duration(req.DurationMinutes * float64(time.Minute)),
		MuscleGroups: req.MuscleGroups,
	})
	if err != nil {
		return errorResponse(c, err, "log workout")
	}
	return created(c, id)
}

func (h *Handler) TrackLiveWorkoutHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var w pulse.LiveWorkout
	if err := c.Bind(&w); err != nil {
		return badRequest(c)
	}
	id, err := h.svc.TrackLiveWorkout(c.Request().Context(), uid, w)
	if err != nil {
		return errorResponse(c, err, "track workout")
	}
	return created(c, id)
}

func (h *Handler) LogWeightHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var w database.WeightLog
	if err := c.Bind(&w); err != nil {
		return badRequest(c)
	}
	id, err := h.svc.LogWeight(c.Request().Context(), uid, w)
	if err != nil {
		return errorResponse(c, err, "log weight")
	}
	return created(c, id)
}

func (h *Handler) AddReminderHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var r pulse.ReminderCandidate
	if err := c.Bind(&r); err != nil {
		return badRequest(c)
	}
	id, err := h.svc.AddReminder(c.Request().Context(), uid, r)
	if err != nil {
		return errorResponse(c, err, "add reminder")
	}
	return created(c, id)
}

func (h *Handler) CompleteReminderHandler(c echo.Context) error {
	uid, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return unauthorized(c, err)
	}

	if err := h.svc.CompleteReminder(c.Request().Context(), uid, c.Param("reminder_id")); err != nil {
		return errorResponse(c, err, "complete reminder")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Reminder completed"})
}
