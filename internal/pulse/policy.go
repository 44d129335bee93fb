package pulse

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const planProposalKey = "plan_proposal_last_shown"

// Downgrade question copy. The options are matched by clients.
const (
	PlanCheckQuestionID = "plan_review_check"
	PlanCheckYes        = "Yes, review it"
	PlanCheckNo         = "Not now"
)

// PolicyRequest carries the evidence the engine may consult. Scope isolates
// the cooldown per user; empty means one global cooldown.
type PolicyRequest struct {
	Scope   string
	Trend   *TrendSnapshot
	Signals []CoachSignal
}

// PolicyEngine gates plan proposals behind evidence and a cooldown.
type PolicyEngine struct {
	mu    sync.Mutex
	store StateStore
}

func NewPolicyEngine(store StateStore) *PolicyEngine {
	if store == nil {
		store = NewMemoryStore()
	}
	return &PolicyEngine{store: store}
}

// Apply never fails. Violations degrade the snapshot instead.
func (e *PolicyEngine) Apply(ctx context.Context, snap ContentSnapshot, req PolicyRequest, now time.Time) ContentSnapshot {
	if snap.PromptKind() != PromptPlanProposal {
		if snap.SurfaceType == SurfacePlanProposal {
			snap.SurfaceType = SurfaceQuickCheckin
			log.Info().Str("scope", req.Scope).Msg("plan_proposal surface without proposal prompt downgraded")
		}
		return snap
	}

	if !hasProposalEvidence(req, now) {
		log.Info().Str("scope", req.Scope).Msg("plan proposal lacks evidence, downgraded to check-in")
		return planCheckIn(snap)
	}

	key := planProposalKey
	if req.Scope != "" {
		key += ":" + req.Scope
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	raw, found, err := e.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("policy state read failed, treating as cooldown")
		return stripProposal(snap)
	}
	if found {
		last, perr := time.Parse(time.RFC3339Nano, raw)
		if perr != nil {
			log.Warn().Err(perr).Str("key", key).Msg("policy state unreadable, resetting")
		} else if now.Sub(last) < PlanProposalCooldown {
			log.Info().Str("scope", req.Scope).Time("last_shown", last).Msg("plan proposal in cooldown, stripped")
			return stripProposal(snap)
		}
	}

	if err := e.store.Set(ctx, key, now.UTC().Format(time.RFC3339Nano)); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("policy state write failed")
	}
	return snap
}

func hasProposalEvidence(req PolicyRequest, now time.Time) bool {
	if t := req.Trend; t != nil {
		if t.LowProteinStreak >= EvidenceProteinStreak || t.DaysSinceWorkout >= EvidenceWorkoutGapDays {
			return true
		}
	}
	for _, s := range req.Signals {
		if !s.IsActive(now) {
			continue
		}
		switch s.Domain {
		case DomainPain, DomainRecovery, DomainNutrition:
			if s.Severity >= EvidenceSignalSeverity && s.Confidence >= EvidenceSignalConfidence {
				return true
			}
		}
	}
	return false
}

func planCheckIn(snap ContentSnapshot) ContentSnapshot {
	snap.SurfaceType = SurfaceQuickCheckin
	snap.Prompt = &ContentPrompt{
		Kind: PromptQuestion,
		Question: &Question{
			ID:        PlanCheckQuestionID,
			Prompt:    "Should we take a look at your plan?",
			InputMode: InputSingleChoice,
			Options:   []string{PlanCheckYes, PlanCheckNo},
		},
	}
	return snap
}

func stripProposal(snap ContentSnapshot) ContentSnapshot {
	snap.SurfaceType = SurfaceCoachNote
	snap.Prompt = nil
	return snap
}
