package pulse

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proposalSnapshot() ContentSnapshot {
	return ContentSnapshot{
		SurfaceType: SurfacePlanProposal,
		Title:       "Time to adjust protein",
		Message:     "You have been short on protein all week.",
		Prompt: &ContentPrompt{
			Kind: PromptPlanProposal,
			PlanProposal: &PlanProposal{
				ID:          "p1",
				Plan:        PlanNutrition,
				Title:       "Raise breakfast protein",
				Impact:      "About 20g more protein a day",
				Changes:     []string{"Breakfast protein from 15g to 35g"},
				ApplyLabel:  "Apply",
				ReviewLabel: "Review",
				DeferLabel:  "Later",
			},
		},
	}
}

func TestPolicyDowngradesWithoutEvidence(t *testing.T) {
	engine := NewPolicyEngine(NewMemoryStore())
	req := PolicyRequest{Trend: &TrendSnapshot{LowProteinStreak: 1, DaysSinceWorkout: 1}}

	out := engine.Apply(context.Background(), proposalSnapshot(), req, testNow)

	assert.Equal(t, SurfaceQuickCheckin, out.SurfaceType)
	require.NotNil(t, out.Prompt)
	assert.Equal(t, PromptQuestion, out.Prompt.Kind)
	require.NotNil(t, out.Prompt.Question)
	assert.Equal(t, InputSingleChoice, out.Prompt.Question.InputMode)
	assert.Equal(t, []string{"Yes, review it", "Not now"}, out.Prompt.Question.Options)
	assert.Equal(t, "Time to adjust protein", out.Title)
}

func TestPolicyEvidence(t *testing.T) {
	tests := []struct {
		name string
		req  PolicyRequest
		want bool
	}{
		{"protein streak", PolicyRequest{Trend: &TrendSnapshot{LowProteinStreak: 3}}, true},
		{"workout gap", PolicyRequest{Trend: &TrendSnapshot{DaysSinceWorkout: 4}}, true},
		{"strong nutrition signal", PolicyRequest{Signals: []CoachSignal{{Domain: DomainNutrition, Severity: 0.7, Confidence: 0.6, CreatedAt: day(1, 8)}}}, true},
		{"weak signal", PolicyRequest{Signals: []CoachSignal{{Domain: DomainPain, Severity: 0.7, Confidence: 0.5, CreatedAt: day(1, 8)}}}, false},
		{"wrong domain", PolicyRequest{Signals: []CoachSignal{{Domain: DomainStress, Severity: 0.9, Confidence: 0.9, CreatedAt: day(1, 8)}}}, false},
		{"expired signal", PolicyRequest{Signals: []CoachSignal{{Domain: DomainPain, Severity: 0.9, Confidence: 0.9, CreatedAt: day(3, 8), ExpiresAt: day(1, 8)}}}, false},
		{"nothing", PolicyRequest{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hasProposalEvidence(tt.req, testNow))
		})
	}
}

func TestPolicyCooldown(t *testing.T) {
	engine := NewPolicyEngine(NewMemoryStore())
	req := PolicyRequest{Scope: "u1", Trend: &TrendSnapshot{LowProteinStreak: 4}}
	ctx := context.Background()

	first := engine.Apply(ctx, proposalSnapshot(), req, testNow)
	assert.Equal(t, SurfacePlanProposal, first.SurfaceType)
	assert.Equal(t, PromptPlanProposal, first.PromptKind())

	second := engine.Apply(ctx, proposalSnapshot(), req, testNow.Add(time.Hour))
	assert.Equal(t, SurfaceCoachNote, second.SurfaceType)
	assert.Nil(t, second.Prompt)

	other := engine.Apply(ctx, proposalSnapshot(), PolicyRequest{Scope: "u2", Trend: req.Trend}, testNow.Add(time.Hour))
	assert.Equal(t, PromptPlanProposal, other.PromptKind(), "cooldown is per scope")

	later := engine.Apply(ctx, proposalSnapshot(), req, testNow.Add(PlanProposalCooldown))
	assert.Equal(t, PromptPlanProposal, later.PromptKind())
}

func TestPolicyConcurrentApplyShowsOnce(t *testing.T) {
	engine := NewPolicyEngine(NewMemoryStore())
	req := PolicyRequest{Trend: &TrendSnapshot{DaysSinceWorkout: 6}}

	var wg sync.WaitGroup
	results := make([]ContentSnapshot, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = engine.Apply(context.Background(), proposalSnapshot(), req, testNow)
		}(i)
	}
	wg.Wait()

	shown := 0
	for _, r := range results {
		if r.PromptKind() == PromptPlanProposal {
			shown++
		}
	}
	assert.Equal(t, 1, shown)
}

func TestPolicyDowngradesOrphanSurface(t *testing.T) {
	engine := NewPolicyEngine(nil)
	snap := ContentSnapshot{SurfaceType: SurfacePlanProposal, Title: "t", Message: "m"}

	out := engine.Apply(context.Background(), snap, PolicyRequest{}, testNow)

	assert.Equal(t, SurfaceQuickCheckin, out.SurfaceType)
	assert.Nil(t, out.Prompt)
}

func TestPolicyPassesOtherContent(t *testing.T) {
	engine := NewPolicyEngine(nil)
	snap := ContentSnapshot{SurfaceType: SurfaceCoachNote, Title: "t", Message: "m"}

	assert.Equal(t, snap, engine.Apply(context.Background(), snap, PolicyRequest{}, testNow))
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk unavailable")
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("disk unavailable")
}

func TestPolicyStoreFailureStripsProposal(t *testing.T) {
	engine := NewPolicyEngine(failingStore{})
	req := PolicyRequest{Trend: &TrendSnapshot{LowProteinStreak: 5}}

	out := engine.Apply(context.Background(), proposalSnapshot(), req, testNow)

	assert.Equal(t, SurfaceCoachNote, out.SurfaceType)
	assert.Nil(t, out.Prompt)
}
