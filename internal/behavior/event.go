/*
Package behavior turns the raw instrumentation log of coach-dashboard
interactions into compact per-action statistics: how often an action was
taken, at which hours of the day, and when it was last taken.
*/
package behavior

import (
	"fmt"
	"time"
)

// Outcome records what the user did with a surfaced action.
type Outcome string

const (
	OutcomeOpened    Outcome = "opened"
	OutcomePerformed Outcome = "performed"
	OutcomeDismissed Outcome = "dismissed"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeOpened, OutcomePerformed, OutcomeDismissed:
		return true
	}
	return false
}

// ActionKey identifies a trackable user action in the behavior log.
type ActionKey string

const (
	KeyStartWorkout        ActionKey = "start_workout"
	KeyBrowseWorkouts      ActionKey = "browse_workouts"
	KeyLogFood             ActionKey = "log_food"
	KeyLogFoodCamera       ActionKey = "log_food_camera"
	KeyLogWeight           ActionKey = "log_weight"
	KeyOpenCalorieDetail   ActionKey = "open_calorie_detail"
	KeyOpenMacroDetail     ActionKey = "open_macro_detail"
	KeyCompleteReminder    ActionKey = "complete_reminder"
	KeyRecoveryCheck       ActionKey = "recovery_check"
	KeyReviewProfile       ActionKey = "review_profile"
	KeyReviewNutritionPlan ActionKey = "review_nutrition_plan"
	KeyReviewWorkoutPlan   ActionKey = "review_workout_plan"
)

// AllActionKeys is the closed set of keys, in declaration order.
var AllActionKeys = []ActionKey{
	KeyStartWorkout,
	KeyBrowseWorkouts,
	KeyLogFood,
	KeyLogFoodCamera,
	KeyLogWeight,
	KeyOpenCalorieDetail,
	KeyOpenMacroDetail,
	KeyCompleteReminder,
	KeyRecoveryCheck,
	KeyReviewProfile,
	KeyReviewNutritionPlan,
	KeyReviewWorkoutPlan,
}

// ParseActionKey maps a string identifier back to its key.
func ParseActionKey(s string) (ActionKey, error) {
	for _, k := range AllActionKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown action key %q", s)
}

// Event is one immutable instrumentation record. Events are never mutated
// after they are written; windowing happens at query time.
type Event struct {
	ID              string            `json:"id"`
	ActionKey       ActionKey         `json:"action_key"`
	Domain          string            `json:"domain"`
	Surface         string            `json:"surface"`
	Outcome         Outcome           `json:"outcome"`
	OccurredAt      time.Time         `json:"occurred_at"`
	RelatedEntityID string            `json:"related_entity_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the whole number of calendar days from `from` to `to`,
// both interpreted in to's location. It is negative when from is later.
func DaysBetween(from, to time.Time) int {
	loc := to.Location()
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
