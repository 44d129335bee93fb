package pulse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeBriefPhases(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		active  bool
		done    bool
		want    BriefPhase
		wantRsk float64
	}{
		{"active workout", atHour(18, 0), true, false, PhaseOnTrack, ScheduleRiskDone},
		{"done today", atHour(18, 0), false, true, PhaseCompleted, ScheduleRiskDone},
		{"before window", atHour(7, 30), false, false, PhaseMorningPlan, ScheduleRiskBefore},
		{"inside window", atHour(18, 30), false, false, PhaseOnTrack, 0.25 + 0.63*0.5},
		{"last hour", atHour(19, 15), false, false, PhaseAtRisk, 0.25 + 0.63*(135.0/180.0)},
		{"after window", atHour(20, 0), false, false, PhaseRescue, ScheduleRiskMissed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := DailyCoachContext{
				Now:              tt.now,
				Profile:          goalProfile(),
				HasActiveWorkout: tt.active,
				HasWorkoutToday:  tt.done,
			}
			b := MakeBrief(ctx)
			assert.Equal(t, tt.want, b.Phase)
			assert.InDelta(t, tt.wantRsk, b.ScheduleRisk, 1e-9)
			assert.Equal(t, DefaultWorkoutWindowStart, b.WorkoutWindowStart)
			assert.False(t, b.WindowLearned)
		})
	}
}

func TestMakeBriefLearnedWindow(t *testing.T) {
	ctx := DailyCoachContext{
		Now:      atHour(7, 30),
		Profile:  goalProfile(),
		Patterns: &PatternProfile{WorkoutWindowScores: map[TimeWindow]float64{WindowMorning: 0.75, WindowEvening: 0.25}},
	}

	b := MakeBrief(ctx)

	assert.True(t, b.WindowLearned)
	assert.Equal(t, 7, b.WorkoutWindowStart)
	assert.Equal(t, 11, b.WorkoutWindowEnd)
	assert.Equal(t, PhaseOnTrack, b.Phase)

	ctx.Patterns.WorkoutWindowScores = map[TimeWindow]float64{WindowMorning: 0.3}
	assert.False(t, MakeBrief(ctx).WindowLearned)
}

func TestMakeBriefPainTakesHeadline(t *testing.T) {
	ctx := lateEveningContext()
	packet := AssemblePacket(ctx.Patterns, ctx.ActiveSignals, ctx, DefaultTokenBudget)
	ctx.Packet = &packet

	b := MakeBrief(ctx)

	assert.Equal(t, PhaseRescue, b.Phase)
	assert.Equal(t, "Train around left knee", b.Title)
	require.NotNil(t, b.Question)
	assert.Equal(t, QuestionPainFollowUp, b.Question.ID)
	assert.Len(t, b.Reasons, MaxBriefReasons)
	assert.Contains(t, b.Reasons, "Protein anchors: Chicken Breast")
}

func TestMakeBriefWorkoutGapHeadline(t *testing.T) {
	ctx := DailyCoachContext{
		Now:     atHour(7, 30),
		Profile: goalProfile(),
		Trend:   &TrendSnapshot{WindowDays: 7, DaysWithLogs: 7, DaysSinceWorkout: 4},
	}

	b := MakeBrief(ctx)

	assert.Equal(t, "Break the 4-day gap", b.Title)
	require.NotNil(t, b.Question)
	assert.Equal(t, QuestionWorkoutUnblock, b.Question.ID)
}

func TestMakeBriefCarriesOverScheduleAnswer(t *testing.T) {
	for text, minutes := range map[string]string{"Yes, 15 minutes": "15", "Yes, 30 minutes": "30"} {
		t.Run(text, func(t *testing.T) {
			now := atHour(20, 30)
			ctx := DailyCoachContext{
				Now:          now,
				Profile:      goalProfile(),
				ProteinToday: 140,
				ActiveSignals: []CoachSignal{
					AnswerSignal("a1", QuestionScheduleRescue, text, now.Add(-10*time.Minute)),
				},
			}

			b := MakeBrief(ctx)

			assert.Equal(t, PhaseRescue, b.Phase)
			assert.Equal(t, ActionStartWorkout, b.PrimaryAction.Kind)
			assert.Equal(t, minutes, b.PrimaryAction.Metadata["duration_minutes"])
			assert.NotEqual(t, b.PrimaryAction.Kind, b.SecondaryAction.Kind)
			require.NotEmpty(t, b.Reasons)
			assert.Equal(t, `You said "`+text+`" earlier`, b.Reasons[0])

			require.NotNil(t, b.Question)
			assert.Equal(t, QuestionProteinClose, b.Question.ID, "answered questions are not repeated")
		})
	}
}

func TestMakeBriefFallsBackToOpenNote(t *testing.T) {
	ctx := DailyCoachContext{Now: atHour(18, 0), HasWorkoutToday: true}

	b := MakeBrief(ctx)

	assert.Equal(t, PhaseCompleted, b.Phase)
	require.NotNil(t, b.Question)
	assert.Equal(t, QuestionOpenNote, b.Question.ID)
	assert.Equal(t, InputNote, b.Question.InputMode)
	assert.Equal(t, NoteMaxLength, b.Question.MaxLength)
	assert.NotEmpty(t, b.Question.Placeholder)
	assert.Empty(t, b.Question.Options)
	assert.Equal(t, ActionOpenProgress, b.PrimaryAction.Kind)

	ctx.ActiveSignals = []CoachSignal{AnswerSignal("a1", QuestionOpenNote, "slept badly", ctx.Now.Add(-time.Minute))}
	assert.Nil(t, MakeBrief(ctx).Question)
}

func TestMakeBriefMetricsBounded(t *testing.T) {
	ctx := lateEveningContext()
	ctx.ReadyMuscleCount = 6
	ctx.ActiveSignals = append(ctx.ActiveSignals, CoachSignal{Domain: DomainSleep, Severity: 1, CreatedAt: day(0, 6)})

	b := MakeBrief(ctx)

	for name, v := range map[string]float64{
		"schedule":   b.ScheduleRisk,
		"readiness":  b.RecoveryReadiness,
		"trend":      b.TrendRisk,
		"confidence": b.Confidence,
	} {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
	assert.InDelta(t, 0.75-0.6*PainReadinessPenalty-SleepReadinessPenalty, b.RecoveryReadiness, 1e-9)
	assert.Equal(t, b, MakeBrief(ctx))
}

func TestTrendRisk(t *testing.T) {
	assert.Equal(t, TrendRiskUnknown, trendRisk(nil))

	perfect := &TrendSnapshot{WindowDays: 7, DaysWithLogs: 7, ProteinHitDays: 7}
	assert.InDelta(t, 0, trendRisk(perfect), 1e-9)

	slipping := &TrendSnapshot{WindowDays: 7, DaysWithLogs: 7, ProteinHitDays: 0, DaysSinceWorkout: 5, LowProteinStreak: 2}
	assert.InDelta(t, 0.30+0.25+0.08, trendRisk(slipping), 1e-9)
}

func TestLabelConfidence(t *testing.T) {
	assert.Equal(t, ConfidenceLow, labelConfidence(0.2))
	assert.Equal(t, ConfidenceMedium, labelConfidence(0.34))
	assert.Equal(t, ConfidenceMedium, labelConfidence(0.66))
	assert.Equal(t, ConfidenceHigh, labelConfidence(0.67))
}

func TestRecentAnswer(t *testing.T) {
	now := atHour(12, 0)
	signals := []CoachSignal{
		AnswerSignal("a1", QuestionReadinessScan, "Fresh", now.Add(-3*time.Hour)),
		AnswerSignal("a2", QuestionProteinBlocker, "Appetite", now.Add(-time.Hour)),
		AnswerSignal("a3", QuestionPainFollowUp, "Worse", now.Add(-4*24*time.Hour)),
		{ID: "n1", Domain: DomainNote, Source: "journal", Detail: "ignored", CreatedAt: now},
	}

	a := RecentAnswer(signals, now)

	require.NotNil(t, a)
	assert.Equal(t, QuestionProteinBlocker, a.QuestionID)
	assert.Equal(t, "Appetite", a.Text)
	assert.Nil(t, RecentAnswer(nil, now))
}

func TestTomorrowPreview(t *testing.T) {
	ctx := DailyCoachContext{Now: testNow, Trend: &TrendSnapshot{LowProteinStreak: 2}}
	b := MakeBrief(ctx)

	assert.True(t, strings.HasPrefix(b.TomorrowPreview, "Tomorrow: aim for your usual window, 5 PM to 8 PM."))
	assert.Contains(t, b.TomorrowPreview, "Lead with protein")
}
