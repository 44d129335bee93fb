package pulse

import (
	"time"

	"traipulse/internal/behavior"
)

// Wednesday morning.
var testNow = time.Date(2026, 3, 18, 7, 30, 0, 0, time.UTC)

func day(daysAgo, hour int) time.Time {
	return behavior.StartOfDay(testNow).AddDate(0, 0, -daysAgo).Add(time.Duration(hour) * time.Hour)
}

func atHour(hour, minute int) time.Time {
	return time.Date(2026, 3, 18, hour, minute, 0, 0, time.UTC)
}

func goalProfile() *UserProfile {
	return &UserProfile{
		UserID:      "u1",
		Goal:        GoalBuildMuscle,
		CalorieGoal: 2200,
		ProteinGoal: 150,
	}
}

func intPtr(v int) *int { return &v }

func food(name string, protein float64, t time.Time) FoodEntry {
	return FoodEntry{Name: name, Protein: protein, Calories: protein * 10, LoggedAt: t}
}
