package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"traipulse/internal/behavior"
	"traipulse/internal/pulse"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("database: not found")

// WeightLog is one body-weight measurement.
type WeightLog struct {
	ID       string    `json:"id"`
	WeightKg float64   `json:"weight_kg"`
	LoggedAt time.Time `json:"logged_at"`
}

// Repository is the persistence surface the coach service reads its
// context from and writes ingested events to. It doubles as the policy
// engine's StateStore.
type Repository interface {
	pulse.StateStore

	// Health returns a map of health status information.
	Health(ctx context.Context) map[string]string
	Close() error

	GetUserProfile(ctx context.Context, userID string) (pulse.UserProfile, error)
	UpsertUserProfile(ctx context.Context, p pulse.UserProfile) error

	ListFoodEntries(ctx context.Context, userID string, since time.Time) ([]pulse.FoodEntry, error)
	AddFoodEntry(ctx context.Context, userID string, e pulse.FoodEntry) (string, error)

	ListWorkouts(ctx context.Context, userID string, since time.Time) ([]pulse.WorkoutSession, error)
	AddWorkout(ctx context.Context, userID string, w pulse.WorkoutSession) (string, error)

	ListLiveWorkouts(ctx context.Context, userID string, since time.Time) ([]pulse.LiveWorkout, error)
	LiveWorkout(ctx context.Context, userID, id string) (pulse.LiveWorkout, error)
	UpsertLiveWorkout(ctx context.Context, userID string, w pulse.LiveWorkout) (string, error)

	ListSuggestionUsage(ctx context.Context, userID string) ([]pulse.SuggestionUsage, error)
	RecordSuggestionTap(ctx context.Context, userID, suggestionType string, at time.Time) error

	ListActiveSignals(ctx context.Context, userID string, now time.Time) ([]pulse.CoachSignal, error)
	AddSignal(ctx context.Context, userID string, s pulse.CoachSignal) (string, error)

	ListPendingReminders(ctx context.Context, userID string) ([]pulse.ReminderCandidate, error)
	AddReminder(ctx context.Context, userID string, r pulse.ReminderCandidate) (string, error)
	CompleteReminder(ctx context.Context, userID, reminderID string) error

	LastWeightLog(ctx context.Context, userID string) (WeightLog, error)
	AddWeightLog(ctx context.Context, userID string, w WeightLog) (string, error)

	ListBehaviorEvents(ctx context.Context, userID string, since time.Time) ([]behavior.Event, error)
	AddBehaviorEvent(ctx context.Context, userID string, ev behavior.Event) (string, error)
	ListActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured backend and applies its schema.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgres(ctx, dsn)
	case DriverSQLite, "":
		return NewSQLite(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
