package pulse

import (
	"time"

	"traipulse/internal/behavior"
)

// TrendSnapshot holds day counts over a fixed window ending today. Ratios
// are always derived from the counts, never stored.
type TrendSnapshot struct {
	WindowDays       int `json:"window_days"`
	DaysWithLogs     int `json:"days_with_logs"`
	ProteinHitDays   int `json:"protein_hit_days"`
	CalorieHitDays   int `json:"calorie_hit_days"`
	WorkoutDays      int `json:"workout_days"`
	LowProteinStreak int `json:"low_protein_streak"`
	DaysSinceWorkout int `json:"days_since_workout"`
}

// LoggingConsistency is the share of days in the window with any food log.
func (t *TrendSnapshot) LoggingConsistency() float64 {
	return t.ratio(t.DaysWithLogs)
}

// ProteinHitRate is the share of days that reached the protein target.
func (t *TrendSnapshot) ProteinHitRate() float64 {
	return t.ratio(t.ProteinHitDays)
}

// CalorieHitRate is the share of days that landed inside the calorie band.
func (t *TrendSnapshot) CalorieHitRate() float64 {
	return t.ratio(t.CalorieHitDays)
}

func (t *TrendSnapshot) ratio(count int) float64 {
	if t == nil || t.WindowDays <= 0 {
		return 0
	}
	return float64(count) / float64(t.WindowDays)
}

// BuildTrendSnapshot aggregates the last daysWindow calendar days ending at
// now. It returns nil when there is no profile to measure against.
func BuildTrendSnapshot(
	now time.Time,
	foodEntries []FoodEntry,
	workouts []WorkoutSession,
	liveWorkouts []LiveWorkout,
	profile *UserProfile,
	daysWindow int,
) *TrendSnapshot {
	if profile == nil {
		return nil
	}
	if daysWindow <= 0 {
		daysWindow = DefaultTrendWindowDays
	}

	// Index 0 is today, index i is i days ago.
	totals := make([]DayTotals, daysWindow)
	for _, e := range foodEntries {
		offset := behavior.DaysBetween(e.LoggedAt, now)
		if offset < 0 || offset >= daysWindow || e.LoggedAt.After(now) {
			continue
		}
		totals[offset].Calories += e.Calories
		totals[offset].Protein += e.Protein
		totals[offset].Carbs += e.Carbs
		totals[offset].Fat += e.Fat
		totals[offset].Entries++
	}

	workoutOffsets := make(map[int]bool)
	for _, t := range workoutTimes(workouts, liveWorkouts) {
		if t.After(now) {
			continue
		}
		workoutOffsets[behavior.DaysBetween(t, now)] = true
	}

	snap := &TrendSnapshot{WindowDays: daysWindow}
	proteinGoal, calorieGoal := profile.ProteinGoal, profile.CalorieGoal

	for i, day := range totals {
		if day.Entries > 0 {
			snap.DaysWithLogs++
		}
		if proteinGoal > 0 && day.Protein >= ProteinHitRatio*proteinGoal {
			snap.ProteinHitDays++
		}
		if calorieGoal > 0 && day.Entries > 0 &&
			day.Calories >= CalorieHitLow*calorieGoal && day.Calories <= CalorieHitHigh*calorieGoal {
			snap.CalorieHitDays++
		}
		if workoutOffsets[i] {
			snap.WorkoutDays++
		}
	}

	if proteinGoal > 0 {
		for _, day := range totals {
			if day.Protein >= LowProteinRatio*proteinGoal {
				break
			}
			snap.LowProteinStreak++
		}
	}

	snap.DaysSinceWorkout = WorkoutLookbackDays
	for i := 0; i < WorkoutLookbackDays; i++ {
		if workoutOffsets[i] {
			snap.DaysSinceWorkout = i
			break
		}
	}

	return snap
}
