package pulse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	rec := Brief{
		Phase:           PhaseMorningPlan,
		Title:           "Plan today's session",
		Reasons:         []string{"one", "two", "three"},
		PrimaryAction:   DailyCoachAction{Kind: ActionStartWorkout, Title: "Preview today's workout"},
		SecondaryAction: DailyCoachAction{Kind: ActionLogFood, Title: "Log breakfast"},
	}
	answer := &Answer{QuestionID: QuestionReadinessScan, Text: "Fresh"}

	tests := []struct {
		name    string
		phase   BriefPhase
		answer  *Answer
		layout  SurfaceLayout
		reasons int
	}{
		{"compact", PhaseMorningPlan, nil, LayoutCompact, 1},
		{"conversational", PhaseOnTrack, answer, LayoutConversational, 2},
		{"at risk", PhaseAtRisk, answer, LayoutCinematic, 2},
		{"rescue", PhaseRescue, nil, LayoutCinematic, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rec
			r.Phase = tt.phase
			spec := Compose(r, testNow, tt.answer)

			assert.Equal(t, tt.layout, spec.Layout)
			assert.Len(t, spec.Reasons, tt.reasons)
			require.Len(t, spec.Actions, 2)
			assert.Equal(t, "primary", spec.Actions[0].Role)
			assert.Equal(t, rec.PrimaryAction, spec.Actions[0].Action)
			assert.Equal(t, rec.SecondaryAction, spec.Actions[1].Action)
			assert.True(t, strings.HasPrefix(spec.Header, "Morning · "))
		})
	}
	assert.Len(t, rec.Reasons, 3, "input reasons are not mutated")
}

func TestTimeOfDayLabel(t *testing.T) {
	tests := map[int]string{
		0: "Late night", 4: "Late night", 5: "Morning", 11: "Morning",
		12: "Afternoon", 16: "Afternoon", 17: "Evening", 20: "Evening", 21: "Tonight", 23: "Tonight",
	}
	for hour, want := range tests {
		assert.Equal(t, want, timeOfDayLabel(hour), "hour %d", hour)
	}
}
