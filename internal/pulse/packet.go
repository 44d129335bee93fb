package pulse

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"traipulse/internal/behavior"
)

// ContextPacket is the compact, token-budgeted summary handed to the
// generative collaborator. EstimatedTokens never grows as a list shrinks.
type ContextPacket struct {
	Goal             string   `json:"goal"`
	Constraints      []string `json:"constraints"`
	Patterns         []string `json:"patterns"`
	Anomalies        []string `json:"anomalies"`
	SuggestedActions []string `json:"suggested_actions"`
	EstimatedTokens  int      `json:"estimated_tokens"`
	PromptSummary    string   `json:"prompt_summary"`
}

type snippet struct {
	text    string
	utility float64
}

// AssemblePacket ranks candidate snippets, keeps the top few per section,
// renders the summary and trims it down to tokenBudget. The goal line is
// never removed.
func AssemblePacket(patterns *PatternProfile, activeSignals []CoachSignal, input DailyCoachContext, tokenBudget int) ContextPacket {
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}

	packet := ContextPacket{
		Goal:             deriveGoal(input),
		Constraints:      topSnippets(constraintSnippets(patterns, activeSignals, input), MaxPacketConstraints),
		Patterns:         topSnippets(patternSnippets(patterns, input.Behavior), MaxPacketPatterns),
		Anomalies:        topSnippets(anomalySnippets(input.Trend), MaxPacketAnomalies),
		SuggestedActions: topSnippets(actionSnippets(patterns, activeSignals, input), MaxPacketActions),
	}
	packet.render()

	// Drop in fixed priority order until the estimate fits.
	for packet.EstimatedTokens > tokenBudget {
		switch {
		case len(packet.Anomalies) > 0:
			packet.Anomalies = packet.Anomalies[:len(packet.Anomalies)-1]
		case len(packet.Patterns) > 1:
			packet.Patterns = packet.Patterns[:len(packet.Patterns)-1]
		case len(packet.SuggestedActions) > 1:
			packet.SuggestedActions = packet.SuggestedActions[:len(packet.SuggestedActions)-1]
		case len(packet.Constraints) > 1:
			packet.Constraints = packet.Constraints[:len(packet.Constraints)-1]
		default:
			return packet
		}
		packet.render()
	}
	return packet
}

func (p *ContextPacket) render() {
	lines := []string{"goal=" + p.Goal}
	for _, section := range []struct {
		key   string
		items []string
	}{
		{"constraints", p.Constraints},
		{"patterns", p.Patterns},
		{"anomalies", p.Anomalies},
		{"actions", p.SuggestedActions},
	} {
		if len(section.items) > 0 {
			lines = append(lines, section.key+"="+strings.Join(section.items, " | "))
		}
	}
	p.PromptSummary = strings.Join(lines, "\n")
	p.EstimatedTokens = EstimateTokens(p.PromptSummary)
}

// EstimateTokens approximates model tokens from whitespace-separated words.
func EstimateTokens(text string) int {
	return int(math.Round(float64(len(strings.Fields(text))) * TokensPerWord))
}

func topSnippets(candidates []snippet, limit int) []string {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].utility != candidates[j].utility {
			return candidates[i].utility > candidates[j].utility
		}
		return candidates[i].text < candidates[j].text
	})
	out := []string{}
	for i := 0; i < len(candidates) && i < limit; i++ {
		out = append(out, candidates[i].text)
	}
	return out
}

func workoutPending(input DailyCoachContext) bool {
	return !input.HasWorkoutToday && !input.HasActiveWorkout
}

func deriveGoal(input DailyCoachContext) string {
	switch {
	case workoutPending(input):
		return "get today's workout done"
	case input.ProteinRemaining() >= GoalProteinGapGrams:
		return fmt.Sprintf("close the %.0fg protein gap", input.ProteinRemaining())
	case input.CaloriesRemaining() >= GoalCalorieGap:
		return fmt.Sprintf("eat the remaining %.0f kcal on plan", input.CaloriesRemaining())
	}
	return "keep logging consistent and recover well"
}

func constraintSnippets(patterns *PatternProfile, signals []CoachSignal, input DailyCoachContext) []snippet {
	var out []snippet
	for _, s := range signals {
		if !s.IsActive(input.Now) || s.Domain == DomainNote {
			continue
		}
		out = append(out, snippet{
			text:    fmt.Sprintf("%s: %s", s.Domain, s.Title),
			utility: ConstraintSeverityShare*s.Severity + ConstraintConfidence*s.Confidence,
		})
	}

	_, end, _ := workoutWindow(patterns)
	if workoutPending(input) && input.Now.Hour() >= end {
		out = append(out, snippet{
			text:    fmt.Sprintf("usual workout window ended at %02d:00", end%24),
			utility: WindowPassedUtility,
		})
	}
	return out
}

// habitKeys are the behavior keys whose usual times are worth a pattern line.
var habitKeys = []behavior.ActionKey{behavior.KeyStartWorkout, behavior.KeyLogFood}

func patternSnippets(p *PatternProfile, b *behavior.Snapshot) []snippet {
	var out []snippet
	if b != nil {
		for i, key := range habitKeys {
			labels := b.LikelyTimeLabels(key, behavior.DefaultMaxLabels, behavior.DefaultMinimumEvents)
			if len(labels) == 0 {
				continue
			}
			out = append(out, snippet{
				text:    fmt.Sprintf("usual %s times: %s", key, strings.Join(labels, ", ")),
				utility: PacketHabitUtility - 0.05*float64(i),
			})
		}
	}
	if p == nil {
		return out
	}
	if w, score, ok := p.StrongestWorkoutWindow(); ok && score >= PacketWorkoutWindowMin {
		out = append(out, snippet{
			text:    fmt.Sprintf("trains most in the %s (%.0f%%)", w.Label(), score*100),
			utility: score,
		})
	}
	if w, score, ok := p.StrongestMealWindow(); ok && score >= PacketMealWindowMin {
		out = append(out, snippet{
			text:    fmt.Sprintf("logs meals most in the %s (%.0f%%)", w.Label(), score*100),
			utility: score * 0.9,
		})
	}
	if len(p.CommonProteinAnchors) > 0 {
		out = append(out, snippet{
			text:    "protein anchors: " + strings.Join(p.CommonProteinAnchors, ", "),
			utility: 0.6,
		})
	}
	for i, note := range p.AdherenceNotes {
		out = append(out, snippet{text: lowerFirst(note), utility: 0.55 - 0.05*float64(i)})
	}
	return out
}

func anomalySnippets(t *TrendSnapshot) []snippet {
	var out []snippet
	if t == nil {
		return out
	}
	if t.LowProteinStreak >= 2 {
		out = append(out, snippet{
			text:    fmt.Sprintf("protein under target %d days running", t.LowProteinStreak),
			utility: math.Min(0.5+0.1*float64(t.LowProteinStreak), 0.95),
		})
	}
	if t.DaysSinceWorkout >= 3 {
		out = append(out, snippet{
			text:    fmt.Sprintf("no workout in %d days", t.DaysSinceWorkout),
			utility: math.Min(0.45+0.08*float64(t.DaysSinceWorkout), 0.95),
		})
	}
	if c := t.LoggingConsistency(); c < 0.5 {
		out = append(out, snippet{
			text:    fmt.Sprintf("food logged on %d of %d days", t.DaysWithLogs, t.WindowDays),
			utility: 0.6 - 0.5*c,
		})
	}
	return out
}

func actionSnippets(patterns *PatternProfile, signals []CoachSignal, input DailyCoachContext) []snippet {
	type template struct {
		kind    ActionKind
		text    string
		utility float64
	}
	var candidates []template

	switch {
	case input.HasActiveWorkout:
		candidates = append(candidates, template{ActionStartWorkout, "finish the active workout", 0.7})
	case !input.HasWorkoutToday:
		candidates = append(candidates, template{ActionStartWorkout, "start today's workout", 0.6})
	}
	if gap := input.ProteinRemaining(); gap >= 20 {
		candidates = append(candidates, template{ActionLogFood, fmt.Sprintf("log a protein-forward meal (%.0fg left)", gap), 0.55})
	}
	if gap := input.CaloriesRemaining(); gap >= GoalCalorieGap {
		candidates = append(candidates, template{ActionOpenCalorieDetail, fmt.Sprintf("check calorie budget (%.0f kcal left)", gap), 0.4})
	}
	if input.DaysSinceWeightLog == nil || *input.DaysSinceWeightLog >= WeightLogDueDays {
		candidates = append(candidates, template{ActionLogWeight, "log a weigh-in", 0.35})
	}
	if maxSeverity(signals, input.Now, DomainPain, DomainRecovery) >= RecoverySignalMinSeverity {
		candidates = append(candidates, template{ActionRecoveryCheck, "run a quick recovery check", 0.65})
	}
	if r, ok := nextReminder(input.Reminders, input.Now); ok {
		candidates = append(candidates, template{ActionCompleteReminder, "complete reminder: " + r.Title, 0.5})
	}

	out := make([]snippet, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, snippet{text: c.text, utility: c.utility + PacketAffinityBoost*patterns.Affinity(c.kind)})
	}
	return out
}
