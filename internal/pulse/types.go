package pulse

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"traipulse/internal/behavior"
)

/* =================================================================================
								INPUT DOMAIN RECORDS
	Assembled by the caller from persisted data. The engine never reads storage.
=================================================================================*/

// GoalKind is the user's headline body-composition goal.
type GoalKind string

const (
	GoalLoseWeight  GoalKind = "lose_weight"
	GoalMaintain    GoalKind = "maintain"
	GoalBuildMuscle GoalKind = "build_muscle"
)

// UserProfile carries daily targets. Zero goals mean "not set".
type UserProfile struct {
	UserID          string   `json:"user_id"`
	DisplayName     string   `json:"display_name"`
	Goal            GoalKind `json:"goal"`
	CalorieGoal     float64  `json:"calorie_goal"`
	ProteinGoal     float64  `json:"protein_goal"`
	CarbGoal        float64  `json:"carb_goal"`
	FatGoal         float64  `json:"fat_goal"`
	WorkoutsPerWeek int      `json:"workouts_per_week"`
}

// FoodEntry is one logged food item.
type FoodEntry struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	LoggedAt time.Time `json:"logged_at"`
	Calories float64   `json:"calories"`
	Protein  float64   `json:"protein"`
	Carbs    float64   `json:"carbs"`
	Fat      float64   `json:"fat"`
}

// WorkoutSession is a finished, saved workout.
type WorkoutSession struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	MuscleGroups []string      `json:"muscle_groups,omitempty"`
}

// LiveWorkout is a tracked in-app session. CompletedAt is zero while the
// session is still running.
type LiveWorkout struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// IsActive reports whether the live session has not been completed.
func (w LiveWorkout) IsActive() bool {
	return w.CompletedAt.IsZero()
}

// RunningAt reports whether the session is uncompleted and started within
// LiveWorkoutMaxAge before now.
func (w LiveWorkout) RunningAt(now time.Time) bool {
	if !w.IsActive() || w.StartedAt.After(now) {
		return false
	}
	return now.Sub(w.StartedAt) < LiveWorkoutMaxAge
}

// SuggestionUsage counts how often the user tapped a class of suggestion.
// SuggestionType is free text written by older clients.
type SuggestionUsage struct {
	SuggestionType string    `json:"suggestion_type"`
	TapCount       int       `json:"tap_count"`
	LastUsedAt     time.Time `json:"last_used_at"`
}

// SignalDomain classifies a coach signal.
type SignalDomain string

const (
	DomainPain      SignalDomain = "pain"
	DomainRecovery  SignalDomain = "recovery"
	DomainSleep     SignalDomain = "sleep"
	DomainNutrition SignalDomain = "nutrition"
	DomainStress    SignalDomain = "stress"
	DomainSchedule  SignalDomain = "schedule"
	DomainNote      SignalDomain = "note"
)

// CoachSignal is a short-lived, externally owned fact about the user.
type CoachSignal struct {
	ID         string       `json:"id"`
	Domain     SignalDomain `json:"domain"`
	Title      string       `json:"title"`
	Detail     string       `json:"detail"`
	Severity   float64      `json:"severity"`
	Confidence float64      `json:"confidence"`
	Source     string       `json:"source"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// IsActive reports whether the signal applies at now. A zero ExpiresAt never
// expires.
func (s CoachSignal) IsActive(now time.Time) bool {
	if s.CreatedAt.After(now) {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// ActiveSignals filters signals down to those active at now, preserving order.
func ActiveSignals(signals []CoachSignal, now time.Time) []CoachSignal {
	out := make([]CoachSignal, 0, len(signals))
	for _, s := range signals {
		if s.IsActive(now) {
			out = append(out, s)
		}
	}
	return out
}

// maxSeverity returns the highest severity among active signals in domains.
func maxSeverity(signals []CoachSignal, now time.Time, domains ...SignalDomain) float64 {
	var best float64
	for _, s := range signals {
		if !s.IsActive(now) {
			continue
		}
		for _, d := range domains {
			if s.Domain == d && s.Severity > best {
				best = s.Severity
			}
		}
	}
	return best
}

// strongestSignal returns the active signal in domains with the highest
// severity; ties keep the earliest in input order.
func strongestSignal(signals []CoachSignal, now time.Time, domains ...SignalDomain) (CoachSignal, bool) {
	var best CoachSignal
	found := false
	for _, s := range signals {
		if !s.IsActive(now) {
			continue
		}
		for _, d := range domains {
			if s.Domain == d && (!found || s.Severity > best.Severity) {
				best = s
				found = true
			}
		}
	}
	return best, found
}

// ReminderCandidate is a pending reminder the user could tick off.
type ReminderCandidate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DueAt     time.Time `json:"due_at"`
	Completed bool      `json:"completed"`
}

// PlanKind names the plan a review prompt targets.
type PlanKind string

const (
	PlanNutrition PlanKind = "nutrition"
	PlanWorkout   PlanKind = "workout"
)

// PlanReviewTrigger is supplied by the caller when something outside the
// engine decided a plan review may be worth prompting.
type PlanReviewTrigger struct {
	Kind     PlanKind `json:"kind"`
	Reason   string   `json:"reason"`
	Strength float64  `json:"strength"`
}

// DailyCoachContext is everything the engine needs for one evaluation.
type DailyCoachContext struct {
	Now     time.Time    `json:"now"`
	Profile *UserProfile `json:"profile,omitempty"`

	CaloriesToday    float64 `json:"calories_today"`
	ProteinToday     float64 `json:"protein_today"`
	CarbsToday       float64 `json:"carbs_today"`
	FatToday         float64 `json:"fat_today"`
	FoodEntriesToday int     `json:"food_entries_today"`

	HasWorkoutToday    bool `json:"has_workout_today"`
	HasActiveWorkout   bool `json:"has_active_workout"`
	ReadyMuscleCount   int  `json:"ready_muscle_count"`
	DaysSinceWeightLog *int `json:"days_since_weight_log,omitempty"`

	ActiveSignals []CoachSignal       `json:"active_signals"`
	Reminders     []ReminderCandidate `json:"reminders"`

	Behavior      *behavior.Snapshot                       `json:"behavior,omitempty"`
	TodayOutcomes map[behavior.ActionKey]behavior.DayOutcome `json:"-"`

	Patterns          *PatternProfile    `json:"patterns,omitempty"`
	Trend             *TrendSnapshot     `json:"trend,omitempty"`
	Packet            *ContextPacket     `json:"packet,omitempty"`
	PlanReviewTrigger *PlanReviewTrigger `json:"plan_review_trigger,omitempty"`
}

// ProteinRemaining is the protein still to eat today; 0 without a goal.
func (c DailyCoachContext) ProteinRemaining() float64 {
	if c.Profile == nil || c.Profile.ProteinGoal <= 0 {
		return 0
	}
	return c.Profile.ProteinGoal - c.ProteinToday
}

// CaloriesRemaining is the energy still to eat today; 0 without a goal.
func (c DailyCoachContext) CaloriesRemaining() float64 {
	if c.Profile == nil || c.Profile.CalorieGoal <= 0 {
		return 0
	}
	return c.Profile.CalorieGoal - c.CaloriesToday
}

// DayTotals sums nutrition for a single calendar day.
type DayTotals struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Entries  int
}

// TotalsForDay aggregates entries logged on day's calendar day (in day's
// location).
func TotalsForDay(entries []FoodEntry, day time.Time) DayTotals {
	var t DayTotals
	for _, e := range entries {
		if behavior.DaysBetween(e.LoggedAt, day) != 0 {
			continue
		}
		t.Calories += e.Calories
		t.Protein += e.Protein
		t.Carbs += e.Carbs
		t.Fat += e.Fat
		t.Entries++
	}
	return t
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = upperFirst(w)
	}
	return strings.Join(words, " ")
}

// upperFirst upper-cases the first rune of s.
func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
