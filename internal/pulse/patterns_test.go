package pulse

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBuildPatternProfileDistributions(t *testing.T) {
	var workouts []WorkoutSession
	for daysAgo := 1; daysAgo <= 6; daysAgo++ {
		workouts = append(workouts, WorkoutSession{StartedAt: day(daysAgo, 7)})
	}
	workouts = append(workouts, WorkoutSession{StartedAt: day(8, 18)}, WorkoutSession{StartedAt: day(9, 18)})

	var entries []FoodEntry
	for daysAgo := 1; daysAgo <= 10; daysAgo++ {
		entries = append(entries,
			food("Chicken breast w/ rice", 45, day(daysAgo, 12)),
			food("Greek Yogurt", 32, day(daysAgo, 9)),
		)
	}
	entries = append(entries, food("apple", 0, day(1, 15)))

	usage := []SuggestionUsage{
		{SuggestionType: "camera_log", TapCount: 3},
		{SuggestionType: "protein_snack", TapCount: 1},
	}

	p := BuildPatternProfile(testNow, entries, workouts, nil, usage, goalProfile())

	for name, dist := range map[string]map[TimeWindow]float64{
		"workout": p.WorkoutWindowScores,
		"meal":    p.MealWindowScores,
	} {
		sum := 0.0
		for _, v := range dist {
			sum += v
		}
		assert.LessOrEqual(t, sum, 1.0+1e-9, name)
	}

	w, score, ok := p.StrongestWorkoutWindow()
	assert.True(t, ok)
	assert.Equal(t, WindowMorning, w)
	assert.InDelta(t, 0.75, score, 1e-9)

	assert.Equal(t, []string{"Chicken Breast Rice", "Greek Yogurt"}, p.CommonProteinAnchors)
	assert.InDelta(t, 0.75, p.Affinity(ActionLogFoodCamera), 1e-9)
	assert.InDelta(t, 0.25, p.Affinity(ActionLogFood), 1e-9)
	assert.Greater(t, p.Confidence, 0.0)
	assert.LessOrEqual(t, p.Confidence, 1.0)
}

func TestBuildPatternProfileEmpty(t *testing.T) {
	p := BuildPatternProfile(testNow, nil, nil, nil, nil, nil)

	assert.Empty(t, p.WorkoutWindowScores)
	assert.Empty(t, p.MealWindowScores)
	assert.Empty(t, p.CommonProteinAnchors)
	assert.Zero(t, p.Confidence)

	_, _, ok := p.StrongestWorkoutWindow()
	assert.False(t, ok)
}

func TestAdherenceNotes(t *testing.T) {
	var entries []FoodEntry
	// Five logged days in two weeks, all well under target.
	for _, daysAgo := range []int{0, 2, 4, 7, 9} {
		entries = append(entries, food("salad", 20, day(daysAgo, 6)))
	}

	coverage, notes := adherence(testNow, entries, 150)

	assert.InDelta(t, 5.0/14.0, coverage, 1e-9)
	assert.Equal(t, []string{
		"Food logging is inconsistent (5 of the last 14 days)",
		"Protein target often missed (0 of 5 logged days)",
	}, notes)
}

func TestNormalizeFoodName(t *testing.T) {
	tests := map[string]string{
		"Chicken Breast with Rice":       "chicken breast rice",
		"  The BIG-mac & fries  ":        "big mac fries",
		"a bowl of oats and whey and pb": "bowl oats whey pb",
		"!!!":                            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeFoodName(in), in)
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"chicken breast rice": "Chicken Breast Rice",
		"édamame bowl":        "Édamame Bowl",
		"ölkuchen  quark":     "Ölkuchen Quark",
		"":                    "",
	}
	for in, want := range tests {
		got := titleCase(in)
		assert.Equal(t, want, got, in)
		assert.True(t, utf8.ValidString(got), in)
	}
}

func TestCaseHelpersKeepRunes(t *testing.T) {
	assert.Equal(t, "Émincé", upperFirst("émincé"))
	assert.Equal(t, "ésta", lowerFirst("Ésta"))
	assert.Equal(t, "", upperFirst(""))
	assert.Equal(t, "\xff", lowerFirst("\xff"))
}

func TestProteinAnchorsNonASCII(t *testing.T) {
	entries := []FoodEntry{
		{Name: "édamame bowl", Protein: 40, LoggedAt: day(1, 12)},
		{Name: "Édamame Bowl", Protein: 40, LoggedAt: day(2, 12)},
	}

	anchors := proteinAnchors(entries, 100)

	assert.Equal(t, []string{"Édamame Bowl"}, anchors)
	for _, a := range anchors {
		assert.True(t, utf8.ValidString(a), a)
	}
}

func TestActionKindForSuggestion(t *testing.T) {
	tests := []struct {
		in   string
		want ActionKind
		ok   bool
	}{
		{"camera_log", ActionLogFoodCamera, true},
		{"Workout_Plan", ActionReviewWorkoutPlan, true},
		{"start workout", ActionStartWorkout, true},
		{"protein_snack", ActionLogFood, true},
		{"weekly_stats", ActionOpenProgress, true},
		{"coach_chat", ActionOpenCoachChat, true},
		{"", "", false},
		{"zzz", "", false},
	}
	for _, tt := range tests {
		got, ok := ActionKindForSuggestion(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestActionAffinityFromUsageSumsToOne(t *testing.T) {
	usage := []SuggestionUsage{
		{SuggestionType: "scan_meal", TapCount: 2},
		{SuggestionType: "weight_checkin", TapCount: 2},
		{SuggestionType: "zzz", TapCount: 9},
		{SuggestionType: "browse", TapCount: 0},
	}

	affinity := ActionAffinityFromUsage(usage)

	sum := 0.0
	for _, v := range affinity {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, affinity, 2)
	assert.Empty(t, ActionAffinityFromUsage(nil))
}

func TestWindowBuckets(t *testing.T) {
	assert.Equal(t, WindowNight, WorkoutWindowFor(2))
	assert.Equal(t, WindowEarlyMorning, WorkoutWindowFor(4))
	assert.Equal(t, WindowEvening, WorkoutWindowFor(20))
	assert.Equal(t, WindowNight, WorkoutWindowFor(21))
	assert.Equal(t, WindowEarlyMorning, MealWindowFor(7))
	assert.Equal(t, WindowMidday, MealWindowFor(14))
	assert.Equal(t, WindowEvening, MealWindowFor(21))

	start, end := WorkoutWindowHours(WindowNight)
	assert.Equal(t, 21, start)
	assert.Equal(t, 24, end)
}
