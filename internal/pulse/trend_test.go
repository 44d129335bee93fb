package pulse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTrendSnapshotLowProteinStreak(t *testing.T) {
	var entries []FoodEntry
	// Oldest three days hit target, the last four (including today) miss it.
	for daysAgo := 6; daysAgo >= 4; daysAgo-- {
		entries = append(entries, food("steak", 130, day(daysAgo, 6)))
	}
	for daysAgo := 3; daysAgo >= 0; daysAgo-- {
		entries = append(entries, food("toast", 60, day(daysAgo, 6)))
	}

	snap := BuildTrendSnapshot(testNow, entries, nil, nil, goalProfile(), 7)
	require.NotNil(t, snap)

	assert.Equal(t, 4, snap.LowProteinStreak)
	assert.Equal(t, 3, snap.ProteinHitDays)
	assert.Equal(t, 7, snap.DaysWithLogs)
	assert.InDelta(t, 1.0, snap.LoggingConsistency(), 1e-9)
	assert.InDelta(t, 3.0/7.0, snap.ProteinHitRate(), 1e-9)
}

func TestBuildTrendSnapshotDaysSinceWorkoutClamps(t *testing.T) {
	workouts := []WorkoutSession{{ID: "w1", StartedAt: day(45, 18)}}

	snap := BuildTrendSnapshot(testNow, nil, workouts, nil, goalProfile(), 7)
	require.NotNil(t, snap)
	assert.Equal(t, 30, snap.DaysSinceWorkout)
	assert.Equal(t, 0, snap.WorkoutDays)

	patterns := BuildPatternProfile(testNow, nil, workouts, nil, nil, goalProfile())
	assert.Empty(t, patterns.WorkoutWindowScores)
}

func TestBuildTrendSnapshotCountsLiveWorkouts(t *testing.T) {
	live := []LiveWorkout{{ID: "l1", StartedAt: day(2, 18), CompletedAt: day(2, 19)}}
	sessions := []WorkoutSession{{ID: "w1", StartedAt: day(2, 7)}, {ID: "w2", StartedAt: day(5, 7)}}

	snap := BuildTrendSnapshot(testNow, nil, sessions, live, goalProfile(), 7)

	assert.Equal(t, 2, snap.DaysSinceWorkout)
	assert.Equal(t, 2, snap.WorkoutDays, "two sessions on one day count once")
}

func TestBuildTrendSnapshotWithoutProfile(t *testing.T) {
	assert.Nil(t, BuildTrendSnapshot(testNow, nil, nil, nil, nil, 7))

	var missing *TrendSnapshot
	assert.Zero(t, missing.LoggingConsistency())
	assert.Zero(t, missing.ProteinHitRate())
}

func TestBuildTrendSnapshotIgnoresLaterToday(t *testing.T) {
	entries := []FoodEntry{food("eggs", 150, atHour(12, 0))}

	snap := BuildTrendSnapshot(testNow, entries, nil, nil, goalProfile(), 7)

	assert.Zero(t, snap.DaysWithLogs)
	assert.Equal(t, 7, snap.LowProteinStreak)
}

func TestLiveWorkoutRunningAt(t *testing.T) {
	tests := []struct {
		name string
		w    LiveWorkout
		want bool
	}{
		{"fresh", LiveWorkout{StartedAt: testNow.Add(-40 * time.Minute)}, true},
		{"completed", LiveWorkout{StartedAt: testNow.Add(-40 * time.Minute), CompletedAt: testNow.Add(-time.Minute)}, false},
		{"abandoned", LiveWorkout{StartedAt: testNow.Add(-LiveWorkoutMaxAge)}, false},
		{"days old", LiveWorkout{StartedAt: day(3, 18)}, false},
		{"future start", LiveWorkout{StartedAt: testNow.Add(time.Minute)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.w.RunningAt(testNow))
		})
	}
}
