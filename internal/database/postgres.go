package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"traipulse/internal/behavior"
	"traipulse/internal/pulse"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id           TEXT PRIMARY KEY,
	display_name      TEXT NOT NULL DEFAULT '',
	goal              TEXT NOT NULL DEFAULT '',
	calorie_goal      DOUBLE PRECISION NOT NULL DEFAULT 0,
	protein_goal      DOUBLE PRECISION NOT NULL DEFAULT 0,
	carb_goal         DOUBLE PRECISION NOT NULL DEFAULT 0,
	fat_goal          DOUBLE PRECISION NOT NULL DEFAULT 0,
	workouts_per_week INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS food_entries (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	logged_at TIMESTAMPTZ NOT NULL,
	calories  DOUBLE PRECISION NOT NULL DEFAULT 0,
	protein   DOUBLE PRECISION NOT NULL DEFAULT 0,
	carbs     DOUBLE PRECISION NOT NULL DEFAULT 0,
	fat       DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS food_entries_user_time ON food_entries (user_id, logged_at);

CREATE TABLE IF NOT EXISTS workouts (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	name             TEXT NOT NULL DEFAULT '',
	started_at       TIMESTAMPTZ NOT NULL,
	duration_seconds BIGINT NOT NULL DEFAULT 0,
	muscle_groups    TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS workouts_user_time ON workouts (user_id, started_at);

CREATE TABLE IF NOT EXISTS live_workouts (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS suggestion_usage (
	user_id         TEXT NOT NULL,
	suggestion_type TEXT NOT NULL,
	tap_count       INTEGER NOT NULL DEFAULT 0,
	last_used_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, suggestion_type)
);

CREATE TABLE IF NOT EXISTS coach_signals (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	domain     TEXT NOT NULL,
	title      TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	severity   DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	source     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS coach_signals_user ON coach_signals (user_id, created_at);

CREATE TABLE IF NOT EXISTS reminders (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	title     TEXT NOT NULL,
	due_at    TIMESTAMPTZ NOT NULL,
	completed BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS weight_logs (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	weight_kg DOUBLE PRECISION NOT NULL,
	logged_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS behavior_events (
	id                TEXT PRIMARY KEY,
	user_id           TEXT NOT NULL,
	action_key        TEXT NOT NULL,
	domain            TEXT NOT NULL DEFAULT '',
	surface           TEXT NOT NULL DEFAULT '',
	outcome           TEXT NOT NULL,
	occurred_at       TIMESTAMPTZ NOT NULL,
	related_entity_id TEXT NOT NULL DEFAULT '',
	metadata          JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS behavior_events_user_time ON behavior_events (user_id, occurred_at);

CREATE TABLE IF NOT EXISTS kv_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres is the server-side Repository backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects and applies the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Health checks the health of the database connection.
func (p *Postgres) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	stats["driver"] = DriverPostgres

	if err := p.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Error().Err(err).Msg("db down")
		return stats
	}

	poolStats := p.pool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(poolStats.MaxConns()))
	stats["acquire_count"] = strconv.FormatInt(poolStats.AcquireCount(), 10)
	stats["acquire_duration_ms"] = strconv.FormatInt(poolStats.AcquireDuration().Milliseconds(), 10)
	stats["empty_acquire_count"] = strconv.FormatInt(poolStats.EmptyAcquireCount(), 10)

	if poolStats.AcquiredConns() > (poolStats.MaxConns() * 8 / 10) { // 80% capacity
		stats["message"] = "The database connection pool is experiencing heavy load."
	}
	if poolStats.EmptyAcquireCount() > 0 {
		stats["message"] = "The application has tried to acquire a connection from an empty pool. Consider increasing max connections."
	}
	return stats
}

func (p *Postgres) Close() error {
	log.Info().Msg("Disconnected from postgres")
	p.pool.Close()
	return nil
}

/* =================================================================================
									KV STATE
=================================================================================*/

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv_state WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO kv_state (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

/* =================================================================================
									PROFILE
=================================================================================*/

func (p *Postgres) GetUserProfile(ctx context.Context, userID string) (pulse.UserProfile, error) {
	var up pulse.UserProfile
	var goal string
	err := p.pool.QueryRow(ctx, `
		SELECT user_id, display_name, goal, calorie_goal, protein_goal, carb_goal, fat_goal, workouts_per_week
		FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&up.UserID, &up.DisplayName, &goal, &up.CalorieGoal, &up.ProteinGoal, &up.CarbGoal, &up.FatGoal, &up.WorkoutsPerWeek)
	if errors.Is(err, pgx.ErrNoRows) {
		return pulse.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return pulse.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	up.Goal = pulse.GoalKind(goal)
	return up, nil
}

func (p *Postgres) UpsertUserProfile(ctx context.Context, up pulse.UserProfile) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, display_name, goal, calorie_goal, protein_goal, carb_goal, fat_goal, workouts_per_week)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
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

func (p *Postgres) ListFoodEntries(ctx context.Context, userID string, since time.Time) ([]pulse.FoodEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, logged_at, calories, protein, carbs, fat
		FROM food_entries WHERE user_id = $1 AND logged_at >= $2
		ORDER BY logged_at, id`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list food: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pulse.FoodEntry, error) {
		var e pulse.FoodEntry
		err := row.Scan(&e.ID, &e.Name, &e.LoggedAt, &e.Calories, &e.Protein, &e.Carbs, &e.Fat)
		return e, err
	})
}

func (p *Postgres) AddFoodEntry(ctx context.Context, userID string, e pulse.FoodEntry) (string, error) {
	id := newID(e.ID)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO food_entries (id, user_id, name, logged_at, calories, protein, carbs, fat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, userID, e.Name, e.LoggedAt, e.Calories, e.Protein, e.Carbs, e.Fat)
	if err != nil {
		return "", fmt.Errorf("add food: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListWorkouts(ctx context.Context, userID string, since time.Time) ([]pulse.WorkoutSession, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, started_at, duration_seconds, muscle_groups
		FROM workouts WHERE user_id = $1 AND started_at >= $2
		ORDER BY started_at, id`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pulse.WorkoutSession, error) {
		var w pulse.WorkoutSession
		var seconds int64
		err := row.Scan(&w.ID, &w.Name, &w.StartedAt, &seconds, &w.MuscleGroups)
		w.Duration = time.Duration(seconds) * time.Second
		return w, err
	})
}

func (p *Postgres) AddWorkout(ctx context.Context, userID string, w pulse.WorkoutSession) (string, error) {
	id := newID(w.ID)
	groups := w.MuscleGroups
	if groups == nil {
		groups = []string{}
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO workouts (id, user_id, name, started_at, duration_seconds, muscle_groups)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, w.Name, w.StartedAt, int64(w.Duration/time.Second), groups)
	if err != nil {
		return "", fmt.Errorf("add workout: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListLiveWorkouts(ctx context.Context, userID string, since time.Time) ([]pulse.LiveWorkout, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, started_at, completed_at
		FROM live_workouts WHERE user_id = $1 AND started_at >= $2
		ORDER BY started_at, id`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list live workouts: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pulse.LiveWorkout, error) {
		var w pulse.LiveWorkout
		var completed *time.Time
		err := row.Scan(&w.ID, &w.StartedAt, &completed)
		if completed != nil {
			w.CompletedAt = *completed
		}
		return w, err
	})
}

func (p *Postgres) UpsertLiveWorkout(ctx context.Context, userID string, w pulse.LiveWorkout) (string, error) {
	id := newID(w.ID)
	var completed *time.Time
	if !w.CompletedAt.IsZero() {
		completed = &w.CompletedAt
	}
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO live_workouts (id, user_id, started_at, completed_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET completed_at = excluded.completed_at
		WHERE live_workouts.user_id = excluded.user_id`,
		id, userID, w.StartedAt, completed)
	if err != nil {
		return "", fmt.Errorf("upsert live workout: %w", err)
	}
	// Zero rows means the id belongs to another user.
	if tag.RowsAffected() == 0 {
		return "", ErrNotFound
	}
	return id, nil
}

func (p *Postgres) LiveWorkout(ctx context.Context, userID, id string) (pulse.LiveWorkout, error) {
	w := pulse.LiveWorkout{ID: id}
	var completed *time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT started_at, completed_at FROM live_workouts
		WHERE user_id = $1 AND id = $2`, userID, id,
	).Scan(&w.StartedAt, &completed)
	if errors.Is(err, pgx.ErrNoRows) {
		return pulse.LiveWorkout{}, ErrNotFound
	}
	if err != nil {
		return pulse.LiveWorkout{}, fmt.Errorf("get live workout: %w", err)
	}
	if completed != nil {
		w.CompletedAt = *completed
	}
	return w, nil
}

func (p *Postgres) LastWeightLog(ctx context.Context, userID string) (WeightLog, error) {
	var w WeightLog
	err := p.pool.QueryRow(ctx, `
		SELECT id, weight_kg, logged_at FROM weight_logs
		WHERE user_id = $1 ORDER BY logged_at DESC, id DESC LIMIT 1`, userID,
	).Scan(&w.ID, &w.WeightKg, &w.LoggedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return WeightLog{}, ErrNotFound
	}
	if err != nil {
		return WeightLog{}, fmt.Errorf("last weight: %w", err)
	}
	return w, nil
}

func (p *Postgres) AddWeightLog(ctx context.Context, userID string, w WeightLog) (string, error) {
	id := newID(w.ID)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO weight_logs (id, user_id, weight_kg, logged_at) VALUES ($1, $2, $3, $4)`,
		id, userID, w.WeightKg, w.LoggedAt)
	if err != nil {
		return "", fmt.Errorf("add weight: %w", err)
	}
	return id, nil
}

/* =================================================================================
								COACHING STATE
=================================================================================*/

func (p *Postgres) ListSuggestionUsage(ctx context.Context, userID string) ([]pulse.SuggestionUsage, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT suggestion_type, tap_count, last_used_at
		FROM suggestion_usage WHERE user_id = $1 ORDER BY suggestion_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pulse.SuggestionUsage, error) {
		var u pulse.SuggestionUsage
		err := row.Scan(&u.SuggestionType, &u.TapCount, &u.LastUsedAt)
		return u, err
	})
}

func (p *Postgres) RecordSuggestionTap(ctx context.Context, userID, suggestionType string, at time.Time) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO suggestion_usage (user_id, suggestion_type, tap_count, last_used_at) VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, suggestion_type) DO UPDATE SET
			tap_count = suggestion_usage.tap_count + 1,
			last_used_at = GREATEST(suggestion_usage.last_used_at, excluded.last_used_at)`,
		userID, suggestionType, at)
	if err != nil {
		return fmt.Errorf("record tap: %w", err)
	}
	return nil
}

func (p *Postgres) ListActiveSignals(ctx context.Context, userID string, now time.Time) ([]pulse.CoachSignal, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, domain, title, detail, severity, confidence, source, created_at, expires_at
		FROM coach_signals
		WHERE user_id = $1 AND created_at <= $2 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at, id`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pulse.CoachSignal, error) {
		var s pulse.CoachSignal
		var domain string
		var expires *time.Time
		err := row.Scan(&s.ID, &domain, &s.Title, &s.Detail, &s.Severity, &s.Confidence, &s.Source, &s.CreatedAt, &expires)
		s.Domain = pulse.SignalDomain(domain)
		if expires != nil {
			s.ExpiresAt = *expires
		}
		return s, err
	})
}

func (p *Postgres) AddSignal(ctx context.Context, userID string, s pulse.CoachSignal) (string, error) {
	id := newID(s.ID)
	var expires *time.Time
	if !s.ExpiresAt.IsZero() {
		expires = &s.ExpiresAt
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO coach_signals (id, user_id, domain, title, detail, severity, confidence, source, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, userID, string(s.Domain), s.Title, s.Detail, s.Severity, s.Confidence, s.Source, s.CreatedAt, expires)
	if err != nil {
		return "", fmt.Errorf("add signal: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListPendingReminders(ctx context.Context, userID string) ([]pulse.ReminderCandidate, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, title, due_at, completed FROM reminders
		WHERE user_id = $1 AND NOT completed ORDER BY due_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pulse.ReminderCandidate, error) {
		var r pulse.ReminderCandidate
		err := row.Scan(&r.ID, &r.Title, &r.DueAt, &r.Completed)
		return r, err
	})
}

func (p *Postgres) AddReminder(ctx context.Context, userID string, r pulse.ReminderCandidate) (string, error) {
	id := newID(r.ID)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO reminders (id, user_id, title, due_at, completed) VALUES ($1, $2, $3, $4, $5)`,
		id, userID, r.Title, r.DueAt, r.Completed)
	if err != nil {
		return "", fmt.Errorf("add reminder: %w", err)
	}
	return id, nil
}

func (p *Postgres) CompleteReminder(ctx context.Context, userID, reminderID string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE reminders SET completed = TRUE WHERE user_id = $1 AND id = $2`, userID, reminderID)
	if err != nil {
		return fmt.Errorf("complete reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

/* =================================================================================
								BEHAVIOR EVENTS
=================================================================================*/

func (p *Postgres) ListBehaviorEvents(ctx context.Context, userID string, since time.Time) ([]behavior.Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, action_key, domain, surface, outcome, occurred_at, related_entity_id, metadata
		FROM behavior_events WHERE user_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at, id`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (behavior.Event, error) {
		var ev behavior.Event
		var key, outcome string
		err := row.Scan(&ev.ID, &key, &ev.Domain, &ev.Surface, &outcome, &ev.OccurredAt, &ev.RelatedEntityID, &ev.Metadata)
		ev.ActionKey = behavior.ActionKey(key)
		ev.Outcome = behavior.Outcome(outcome)
		return ev, err
	})
}

func (p *Postgres) AddBehaviorEvent(ctx context.Context, userID string, ev behavior.Event) (string, error) {
	id := newID(ev.ID)
	metadata := ev.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO behavior_events (id, user_id, action_key, domain, surface, outcome, occurred_at, related_entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, userID, string(ev.ActionKey), ev.Domain, ev.Surface, string(ev.Outcome), ev.OccurredAt, ev.RelatedEntityID, metadata)
	if err != nil {
		return "", fmt.Errorf("add event: %w", err)
	}
	return id, nil
}

func (p *Postgres) ListActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT DISTINCT user_id FROM behavior_events WHERE occurred_at >= $1 ORDER BY user_id`, since)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
