package pulse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traipulse/internal/behavior"
)

func eveningPatterns() *PatternProfile {
	return &PatternProfile{
		WorkoutWindowScores:  map[TimeWindow]float64{WindowEvening: 0.6, WindowMorning: 0.4},
		MealWindowScores:     map[TimeWindow]float64{WindowMidday: 0.5},
		CommonProteinAnchors: []string{"Chicken Breast"},
		AdherenceNotes:       []string{"Food logging is inconsistent (5 of the last 14 days)"},
		ActionAffinity:       map[ActionKind]float64{},
		Confidence:           0.5,
	}
}

func lateEveningContext() DailyCoachContext {
	now := atHour(21, 30)
	return DailyCoachContext{
		Now:           now,
		Profile:       goalProfile(),
		CaloriesToday: 600,
		ProteinToday:  40,
		ActiveSignals: []CoachSignal{
			{ID: "s1", Domain: DomainPain, Title: "Left knee", Severity: 0.6, Confidence: 0.8, CreatedAt: day(1, 9)},
			{ID: "s2", Domain: DomainStress, Title: "Deadline week", Severity: 0.3, Confidence: 0.5, CreatedAt: day(1, 9)},
		},
		Patterns: eveningPatterns(),
		Trend:    &TrendSnapshot{WindowDays: 7, DaysWithLogs: 3, LowProteinStreak: 3, DaysSinceWorkout: 4},
	}
}

func TestAssemblePacketSelectsTopCandidates(t *testing.T) {
	ctx := lateEveningContext()

	p := AssemblePacket(ctx.Patterns, ctx.ActiveSignals, ctx, DefaultTokenBudget)

	assert.Equal(t, "get today's workout done", p.Goal)
	assert.Equal(t, []string{"usual workout window ended at 21:00", "pain: Left knee"}, p.Constraints)
	assert.Equal(t, []string{
		"protein anchors: Chicken Breast",
		"trains most in the evening (60%)",
		"food logging is inconsistent (5 of the last 14 days)",
	}, p.Patterns)
	assert.Equal(t, []string{"protein under target 3 days running", "no workout in 4 days"}, p.Anomalies)
	assert.Equal(t, []string{"run a quick recovery check", "start today's workout"}, p.SuggestedActions)

	lines := strings.Split(p.PromptSummary, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "goal=get today's workout done", lines[0])
	assert.Equal(t, "constraints=usual workout window ended at 21:00 | pain: Left knee", lines[1])
	assert.Equal(t, EstimateTokens(p.PromptSummary), p.EstimatedTokens)
	assert.LessOrEqual(t, p.EstimatedTokens, DefaultTokenBudget)
}

func TestAssemblePacketTrimsInPriorityOrder(t *testing.T) {
	ctx := lateEveningContext()

	p := AssemblePacket(ctx.Patterns, ctx.ActiveSignals, ctx, 1)

	assert.Equal(t, "get today's workout done", p.Goal)
	assert.Empty(t, p.Anomalies)
	assert.Len(t, p.Patterns, 1)
	assert.Len(t, p.SuggestedActions, 1)
	assert.Len(t, p.Constraints, 1)
	assert.True(t, strings.HasPrefix(p.PromptSummary, "goal=get today's workout done"))
}

func TestAssemblePacketTokensShrinkWithBudget(t *testing.T) {
	ctx := lateEveningContext()
	full := AssemblePacket(ctx.Patterns, ctx.ActiveSignals, ctx, DefaultTokenBudget)
	minimal := AssemblePacket(ctx.Patterns, ctx.ActiveSignals, ctx, 1)

	prev := full.EstimatedTokens
	for budget := full.EstimatedTokens; budget >= minimal.EstimatedTokens; budget-- {
		p := AssemblePacket(ctx.Patterns, ctx.ActiveSignals, ctx, budget)
		assert.LessOrEqual(t, p.EstimatedTokens, budget, "budget %d", budget)
		assert.LessOrEqual(t, p.EstimatedTokens, prev, "budget %d", budget)
		prev = p.EstimatedTokens
	}
}

func TestAssemblePacketGoalPriority(t *testing.T) {
	tests := []struct {
		name     string
		protein  float64
		calories float64
		workout  bool
		want     string
	}{
		{"workout pending", 40, 600, false, "get today's workout done"},
		{"protein gap", 40, 600, true, "close the 110g protein gap"},
		{"calorie gap", 140, 600, true, "eat the remaining 1600 kcal on plan"},
		{"on plan", 140, 2000, true, "keep logging consistent and recover well"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := DailyCoachContext{
				Now:             testNow,
				Profile:         goalProfile(),
				ProteinToday:    tt.protein,
				CaloriesToday:   tt.calories,
				HasWorkoutToday: tt.workout,
			}
			p := AssemblePacket(nil, nil, ctx, DefaultTokenBudget)
			assert.Equal(t, tt.want, p.Goal)
		})
	}
}

func TestAssemblePacketMissingData(t *testing.T) {
	ctx := DailyCoachContext{Now: testNow, HasWorkoutToday: true}

	p := AssemblePacket(nil, nil, ctx, 0)

	assert.Equal(t, "keep logging consistent and recover well", p.Goal)
	assert.Empty(t, p.Patterns)
	assert.Empty(t, p.Anomalies)
	assert.Empty(t, p.Constraints)
	assert.Equal(t, []string{"log a weigh-in"}, p.SuggestedActions)
}

func TestAssemblePacketSkipsWeakWindows(t *testing.T) {
	patterns := &PatternProfile{
		WorkoutWindowScores: map[TimeWindow]float64{WindowMorning: 0.3},
		MealWindowScores:    map[TimeWindow]float64{WindowMidday: 0.35},
	}
	ctx := DailyCoachContext{Now: testNow, HasWorkoutToday: true}

	p := AssemblePacket(patterns, nil, ctx, DefaultTokenBudget)

	assert.Empty(t, p.Patterns)
}

func TestAssemblePacketAddsHabitTimes(t *testing.T) {
	var events []behavior.Event
	for d := 1; d <= 4; d++ {
		events = append(events, behavior.Event{ActionKey: behavior.KeyLogFood, Outcome: behavior.OutcomePerformed, OccurredAt: day(d, 19)})
	}
	events = append(events, behavior.Event{ActionKey: behavior.KeyStartWorkout, Outcome: behavior.OutcomePerformed, OccurredAt: day(1, 7)})
	snap := behavior.BuildProfile(testNow, events, behavior.DefaultWindowDays)
	ctx := DailyCoachContext{Now: testNow, HasWorkoutToday: true, Behavior: &snap}

	p := AssemblePacket(nil, nil, ctx, DefaultTokenBudget)

	assert.Equal(t, []string{"usual log_food times: Evening (4-8 PM)"}, p.Patterns)
	assert.Contains(t, p.PromptSummary, "patterns=usual log_food times")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 5, EstimateTokens("a b c d"))
	assert.Equal(t, 4, EstimateTokens("one two three"))
}
