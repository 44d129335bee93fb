package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"traipulse/internal/behavior"
	"traipulse/internal/pulse"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id           TEXT PRIMARY KEY,
	display_name      TEXT NOT NULL DEFAULT '',
	goal              TEXT NOT NULL DEFAULT '',
	calorie_goal      REAL NOT NULL DEFAULT 0,
	protein_goal      REAL NOT NULL DEFAULT 0,
	carb_goal         REAL NOT NULL DEFAULT 0,
	fat_goal          REAL NOT NULL DEFAULT 0,
	workouts_per_week INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS food_entries (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	logged_at TEXT NOT NULL,
	calories  REAL NOT NULL DEFAULT 0,
	protein   REAL NOT NULL DEFAULT 0,
	carbs     REAL NOT NULL DEFAULT 0,
	fat       REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS food_entries_user_time ON food_entries (user_id, logged_at);

CREATE TABLE IF NOT EXISTS workouts (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	name             TEXT NOT NULL DEFAULT '',
	started_at       TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	muscle_groups    TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS workouts_user_time ON workouts (user_id, started_at);

CREATE TABLE IF NOT EXISTS live_workouts (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	completed_at TEXT
);

CREATE TABLE IF NOT EXISTS suggestion_usage (
	user_id         TEXT NOT NULL,
	suggestion_type TEXT NOT NULL,
	tap_count       INTEGER NOT NULL DEFAULT 0,
	last_used_at    TEXT NOT NULL,
	PRIMARY KEY (user_id, suggestion_type)
);

CREATE TABLE IF NOT EXISTS coach_signals (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	domain     TEXT NOT NULL,
	title      TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	severity   REAL NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0,
	source     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	expires_at TEXT
);
CREATE INDEX IF NOT EXISTS coach_signals_user ON coach_signals (user_id, created_at);

CREATE TABLE IF NOT EXISTS reminders (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	title     TEXT NOT NULL,
	due_at    TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS weight_logs (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	weight_kg REAL NOT NULL,
	logged_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS behavior_events (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	action_key        TEXT NOT NULL,
	domain            TEXT NOT NULL DEFAULT '',
	surface           TEXT NOT NULL DEFAULT '',
	outcome           TEXT NOT NULL,
	occurred_at       TEXT NOT NULL,
	related_entity_id TEXT NOT NULL DEFAULT '',
	metadata          TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS behavior_events_user_time ON behavior_events (user_id, occurred_at);

CREATE TABLE IF NOT EXISTS kv_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// sqliteTime is fixed width so that text comparison matches time order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTime, s)
}

func formatNullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseNullTime(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}

// SQLite is the on-device Repository backed by modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens path (":memory:" works for tests) and runs migrations.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	stats := map[string]string{"driver": DriverSQLite}
	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Error().Err(err).Msg("db down")
		return stats
	}

	dbStats := s.db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration_ms"] = strconv.FormatInt(dbStats.WaitDuration.Milliseconds(), 10)
	return stats
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// collect drains rows through scan, closing them in every case.
func collect[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

/* =================================================================================
									KV STATE
=================================================================================*/

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

/* =================================================================================
									PROFILE
=================================================================================*/

func (s *SQLite) GetUserProfile(ctx context.Context, userID string) (pulse.UserProfile, error) {
	var up pulse.UserProfile
	var goal string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, goal, calorie_goal, protein_goal, carb_goal, fat_goal, workouts_per_week
		FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&up.UserID, &up.DisplayName, &goal, &up.CalorieGoal, &up.ProteinGoal, &up.CarbGoal, &up.FatGoal, &up.WorkoutsPerWeek)
	if errors.Is(err, sql.ErrNoRows) {
		return pulse.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return pulse.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	up.Goal = pulse.GoalKind(goal)
	return up, nil
}

func (s *SQLite) UpsertUserProfile(ctx context.Context, up pulse.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, display_name, goal, calorie_goal, protein_goal, carb_goal, fat_goal, workouts_per_week)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			goal = excluded.goal,
			calorie_goal = excluded.calorie_goal,
			protein_goal = excluded.protein_goal,
			carb_goal = excluded.carb_goal,
			fat_goal = excluded.fat_goal,
			workouts_per_week = excluded.workouts_per_week`,
		up.UserID, up.DisplayName, string(up.Goal), up.CalorieGoal, up.ProteinGoal, up.CarbGoal, up.FatGoal, up.WorkoutsPerWeek)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

/* =================================================================================
								NUTRITION & TRAINING
=================================================================================*/

func (s *SQLite) ListFoodEntries(ctx context.Context, userID string, since time.Time) ([]pulse.FoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, logged_at, calories, protein, carbs, fat
		FROM food_entries WHERE user_id = ? AND logged_at >= ?
		ORDER BY logged_at, id`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list food: %w", err)
	}
	return collect(rows, func(r *sql.Rows) (pulse.FoodEntry, error) {
		var e pulse.FoodEntry
		var logged string
		if err := r.Scan(&e.ID, &e.Name, &logged, &e.Calories, &e.Protein, &e.Carbs, &e.Fat); err != nil {
			return e, err
		}
		var err error
		e.LoggedAt, err = parseTime(logged)
		return e, err
	})
}

func (s *SQLite) AddFoodEntry(ctx context.Context, userID string, e pulse.FoodEntry) (string, error) {
	id := newID(e.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO food_entries (id, user_id, name, logged_at, calories, protein, carbs, fat)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, e.Name, formatTime(e.LoggedAt), e.Calories, e.Protein, e.Carbs, e.Fat)
	if err != nil {
		return "", fmt.Errorf("add food: %w", err)
	}
	return id, nil
}

func (s *SQLite) ListWorkouts(ctx context.Context, userID string, since time.Time) ([]pulse.WorkoutSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, started_at, duration_seconds, muscle_groups
		FROM workouts WHERE user_id = ? AND started_at >= ?
		ORDER BY started_at, id`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return collect(rows, func(r *sql.Rows) (pulse.WorkoutSession, error) {
		var w pulse.WorkoutSession
		var started, groups string
		var seconds int64
		if err := r.Scan(&w.ID, &w.Name, &started, &seconds, &groups); err != nil {
			return w, err
		}
		w.Duration = time.Duration(seconds) * time.Second
		if err := json.Unmarshal([]byte(groups), &w.MuscleGroups); err != nil {
			return w, fmt.Errorf("muscle groups: %w", err)
		}
		var err error
		w.StartedAt, err = parseTime(started)
		return w, err
	})
}

func (s *SQLite) AddWorkout(ctx context.Context, userID string, w pulse.WorkoutSession) (string, error) {
	id := newID(w.ID)
	groups := w.MuscleGroups
	if groups == nil {
		groups = []string{}
	}
	encoded, err := json.Marshal(groups)
	if err != nil {
		return "", fmt.Errorf("muscle groups: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workouts (id, user_id, name, started_at, duration_seconds, muscle_groups)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, w.Name, formatTime(w.StartedAt), int64(w.Duration/time.Second), string(encoded))
	if err != nil {
		return "", fmt.Errorf("add workout: %w", err)
	}
	return id, nil
}

func (s *SQLite) ListLiveWorkouts(ctx context.Context, userID string, since time.Time) ([]pulse.LiveWorkout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at
		FROM live_workouts WHERE user_id = ? AND started_at >= ?
		ORDER BY started_at, id`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list live workouts: %w", err)
	}
	return collect(rows, func(r *sql.Rows) (pulse.LiveWorkout, error) {
		var w pulse.LiveWorkout
		var started string
		var completed sql.NullString
		if err := r.Scan(&w.ID, &started, &completed); err != nil {
			return w, err
		}
		var err error
		if w.StartedAt, err = parseTime(started); err != nil {
			return w, err
		}
		w.CompletedAt, err = parseNullTime(completed)
		return w, err
	})
}

func (s *SQLite) UpsertLiveWorkout(ctx context.Context, userID string, w pulse.LiveWorkout) (string, error) {
	id := newID(w.ID)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO live_workouts (id, user_id, started_at, completed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET completed_at = excluded.completed_at
		WHERE live_workouts.user_id = excluded.user_id`,
		id, userID, formatTime(w.StartedAt), formatNullTime(w.CompletedAt))
	if err != nil {
		return "", fmt.Errorf("upsert live workout: %w", err)
	}
	// Zero rows means the id belongs to another user.
	if n, err := res.RowsAffected(); err != nil {
		return "", fmt.Errorf("upsert live workout: %w", err)
	} else if n == 0 {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *SQLite) LiveWorkout(ctx context.Context, userID, id string) (pulse.LiveWorkout, error) {
	w := pulse.LiveWorkout{ID: id}
	var started string
	var completed sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT started_at, completed_at FROM live_workouts
		WHERE user_id = ? AND id = ?`, userID, id,
	).Scan(&started, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return pulse.LiveWorkout{}, ErrNotFound
	}
	if err != nil {
		return pulse.LiveWorkout{}, fmt.Errorf("get live workout: %w", err)
	}
	if w.StartedAt, err = parseTime(started); err != nil {
		return pulse.LiveWorkout{}, err
	}
	if w.CompletedAt, err = parseNullTime(completed); err != nil {
		return pulse.LiveWorkout{}, err
	}
	return w, nil
}

func (s *SQLite) LastWeightLog(ctx context.Context, userID string) (WeightLog, error) {
	var w WeightLog
	var logged string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, weight_kg, logged_at FROM weight_logs
		WHERE user_id = ? ORDER BY logged_at DESC, id DESC LIMIT 1`, userID,
	).Scan(&w.ID, &w.WeightKg, &logged)
	if errors.Is(err, sql.ErrNoRows) {
		return WeightLog{}, ErrNotFound
	}
	if err != nil {
		return WeightLog{}, fmt.Errorf("last weight: %w", err)
	}
	w.LoggedAt, err = parseTime(logged)
	return w, err
}

func (s *SQLite) AddWeightLog(ctx context.Context, userID string, w WeightLog) (string, error) {
	id := newID(w.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weight_logs (id, user_id, weight_kg, logged_at) VALUES (?, ?, ?, ?)`,
		id, userID, w.WeightKg, formatTime(w.LoggedAt))
	if err != nil {
		return "", fmt.Errorf("add weight: %w", err)
	}
	return id, nil
}

/* =================================================================================
								COACHING STATE
=================================================================================*/

func (s *SQLite) ListSuggestionUsage(ctx context.Context, userID string) ([]pulse.SuggestionUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT suggestion_type, tap_count, last_used_at
		FROM suggestion_usage WHERE user_id = ? ORDER BY suggestion_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return collect(rows, func(r *sql.Rows) (pulse.SuggestionUsage, error) {
		var u pulse.SuggestionUsage
		var last string
		if err := r.Scan(&u.SuggestionType, &u.TapCount, &last); err != nil {
			return u, err
		}
		var err error
		u.LastUsedAt, err = parseTime(last)
		return u, err
	})
}

func (s *SQLite) RecordSuggestionTap(ctx context.Context, userID, suggestionType string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suggestion_usage (user_id, suggestion_type, tap_count, last_used_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id, suggestion_type) DO UPDATE SET
			tap_count = suggestion_usage.tap_count + 1,
			last_used_at = MAX(suggestion_usage.last_used_at, excluded.last_used_at)`,
		userID, suggestionType, formatTime(at))
	if err != nil {
		return fmt.Errorf("record tap: %w", err)
	}
	return nil
}

func (s *SQLite) ListActiveSignals(ctx context.Context, userID string, now time.Time) ([]pulse.CoachSignal, error) {
	ts := formatTime(now)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain, title, detail, severity, confidence, source, created_at, expires_at
		FROM coach_signals
		WHERE user_id = ? AND created_at <= ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at, id`, userID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	return collect(rows, func(r *sql.Rows) (pulse.CoachSignal, error) {
		var sig pulse.CoachSignal
		var domain, created string
		var expires sql.NullString
		if err := r.Scan(&sig.ID, &domain, &sig.Title, &sig.Detail, &sig.Severity, &sig.Confidence, &sig.Source, &created, &expires); err != nil {
			return sig, err
		}
		sig.Domain = pulse.SignalDomain(domain)
		var err error
		if sig.CreatedAt, err = parseTime(created); err != nil {
			return sig, err
		}
		sig.ExpiresAt, err = parseNullTime(expires)
		return sig, err
	})
}

func (s *SQLite) AddSignal(ctx context.Context, userID string, sig pulse.CoachSignal) (string, error) {
	id := newID(sig.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO coach_signals (id, user_id, domain, title, detail, severity, confidence, source, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, string(sig.Domain), sig.Title, sig.Detail, sig.Severity, sig.Confidence, sig.Source,
		formatTime(sig.CreatedAt), formatNullTime(sig.ExpiresAt))
	if err != nil {
		return "", fmt.Errorf("add signal: %w", err)
	}
	return id, nil
}

func (s *SQLite) ListPendingReminders(ctx context.Context, userID string) ([]pulse.ReminderCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, due_at, completed FROM reminders
		WHERE user_id = ? AND completed = 0 ORDER BY due_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return collect(rows, func(r *sql.Rows) (pulse.ReminderCandidate, error) {
		var rem pulse.ReminderCandidate
		var due string
		if err := r.Scan(&rem.ID, &rem.Title, &due, &rem.Completed); err != nil {
			return rem, err
		}
		var err error
		rem.DueAt, err = parseTime(due)
		return rem, err
	})
}

func (s *SQLite) AddReminder(ctx context.Context, userID string, r pulse.ReminderCandidate) (string, error) {
	id := newID(r.ID)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, user_id, title, due_at, completed) VALUES (?, ?, ?, ?, ?)`,
		id, userID, r.Title, formatTime(r.DueAt), r.Completed)
	if err != nil {
		return "", fmt.Errorf("add reminder: %w", err)
	}
	return id, nil
}

func (s *SQLite) CompleteReminder(ctx context.Context, userID, reminderID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET completed = 1 WHERE user_id = ? AND id = ?`, userID, reminderID)
	if err != nil {
		return fmt.Errorf("complete reminder: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

/* =================================================================================
								BEHAVIOR EVENTS
=================================================================================*/

func (s *SQLite) ListBehaviorEvents(ctx context.Context, userID string, since time.Time) ([]behavior.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_key, domain, surface, outcome, occurred_at, related_entity_id, metadata
		FROM behavior_events WHERE user_id = ? AND occurred_at >= ?
		ORDER BY occurred_at, id`, userID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collect(rows, func(r *sql.Rows) (behavior.Event, error) {
		var ev behavior.Event
		var key, outcome, occurred, metadata string
		if err := r.Scan(&ev.ID, &key, &ev.Domain, &ev.Surface, &outcome, &occurred, &ev.RelatedEntityID, &metadata); err != nil {
			return ev, err
		}
		ev.ActionKey = behavior.ActionKey(key)
		ev.Outcome = behavior.Outcome(outcome)
		if err := json.Unmarshal([]byte(metadata), &ev.Metadata); err != nil {
			return ev, fmt.Errorf("event metadata: %w", err)
		}
		var err error
		ev.OccurredAt, err = parseTime(occurred)
		return ev, err
	})
}

func (s *SQLite) AddBehaviorEvent(ctx context.Context, userID string, ev behavior.Event) (string, error) {
	id := newID(ev.ID)
	metadata := ev.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("event metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO behavior_events (id, user_id, action_key, domain, surface, outcome, occurred_at, related_entity_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, string(ev.ActionKey), ev.Domain, ev.Surface, string(ev.Outcome), formatTime(ev.OccurredAt), ev.RelatedEntityID, string(encoded))
	if err != nil {
		return "", fmt.Errorf("add event: %w", err)
	}
	return id, nil
}

func (s *SQLite) ListActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM behavior_events WHERE occurred_at >= ? ORDER BY user_id`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return collect(rows, func(r *sql.Rows) (string, error) {
		var id string
		err := r.Scan(&id)
		return id, err
	})
}
