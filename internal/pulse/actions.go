/*
Package pulse is the adaptive recommendation core behind the coaching
dashboard. It turns nutrition, workout and behavior history into trend and
pattern profiles, a token-budgeted context packet, a ranked list of next
actions, a deterministic brief, and a policy-gated surface layout.

Every function here is pure over its inputs: given identical inputs and the
same `now`, output is identical. The only mutable state is the plan-proposal
cooldown owned by PolicyEngine through an injected StateStore.
*/
package pulse

import "traipulse/internal/behavior"

// ActionKind is the closed set of user-facing next steps.
type ActionKind string

const (
	ActionStartWorkout        ActionKind = "start_workout"
	ActionBrowseWorkouts      ActionKind = "browse_workouts"
	ActionLogFood             ActionKind = "log_food"
	ActionLogFoodCamera       ActionKind = "log_food_camera"
	ActionLogWeight           ActionKind = "log_weight"
	ActionOpenCalorieDetail   ActionKind = "open_calorie_detail"
	ActionOpenMacroDetail     ActionKind = "open_macro_detail"
	ActionCompleteReminder    ActionKind = "complete_reminder"
	ActionRecoveryCheck       ActionKind = "recovery_check"
	ActionReviewProfile       ActionKind = "review_profile"
	ActionReviewNutritionPlan ActionKind = "review_nutrition_plan"
	ActionReviewWorkoutPlan   ActionKind = "review_workout_plan"
	ActionOpenProgress        ActionKind = "open_progress"
	ActionOpenCoachChat       ActionKind = "open_coach_chat"
	ActionSuggestMeal         ActionKind = "suggest_meal"
	ActionPlanMeals           ActionKind = "plan_meals"
)

// AllActionKinds lists every kind in declaration order.
var AllActionKinds = []ActionKind{
	ActionStartWorkout,
	ActionBrowseWorkouts,
	ActionLogFood,
	ActionLogFoodCamera,
	ActionLogWeight,
	ActionOpenCalorieDetail,
	ActionOpenMacroDetail,
	ActionCompleteReminder,
	ActionRecoveryCheck,
	ActionReviewProfile,
	ActionReviewNutritionPlan,
	ActionReviewWorkoutPlan,
	ActionOpenProgress,
	ActionOpenCoachChat,
	ActionSuggestMeal,
	ActionPlanMeals,
}

// behaviorKeys is the single mapping table from action kinds to the
// instrumentation keys they are recorded under. Kinds without an entry have
// no behavior history and skip timing and staleness adjustments.
var behaviorKeys = map[ActionKind]behavior.ActionKey{
	ActionStartWorkout:        behavior.KeyStartWorkout,
	ActionBrowseWorkouts:      behavior.KeyBrowseWorkouts,
	ActionLogFood:             behavior.KeyLogFood,
	ActionLogFoodCamera:       behavior.KeyLogFoodCamera,
	ActionLogWeight:           behavior.KeyLogWeight,
	ActionOpenCalorieDetail:   behavior.KeyOpenCalorieDetail,
	ActionOpenMacroDetail:     behavior.KeyOpenMacroDetail,
	ActionCompleteReminder:    behavior.KeyCompleteReminder,
	ActionRecoveryCheck:       behavior.KeyRecoveryCheck,
	ActionReviewProfile:       behavior.KeyReviewProfile,
	ActionReviewNutritionPlan: behavior.KeyReviewNutritionPlan,
	ActionReviewWorkoutPlan:   behavior.KeyReviewWorkoutPlan,
}

// BehaviorKey returns the instrumentation key for kind, if it has one.
func (k ActionKind) BehaviorKey() (behavior.ActionKey, bool) {
	key, ok := behaviorKeys[k]
	return key, ok
}

// Valid reports whether k is a member of the closed set.
func (k ActionKind) Valid() bool {
	for _, known := range AllActionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// DailyCoachAction is a pure value; two actions are the same action when
// their kinds match.
type DailyCoachAction struct {
	Kind     ActionKind        `json:"kind"`
	Title    string            `json:"title"`
	Subtitle string            `json:"subtitle,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RankedAction pairs an action with its final score in [0,1].
type RankedAction struct {
	Action DailyCoachAction `json:"action"`
	Score  float64          `json:"score"`
}
