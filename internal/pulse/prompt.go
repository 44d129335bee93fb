package pulse

import (
	"fmt"
	"strings"
)

const userPromptTemplate = `
## TODAY
Local time: %s
Phase: %s
Workout window: %s to %s
Workout today: %s
Calories: %.0f of %.0f kcal
Protein: %.0f of %.0fg
Last %s

## CONTEXT PACKET
%s

## SIGNALS
%s

## LAST ANSWER
%s

## FALLBACK BRIEF
Title: %s
Message: %s

Write one dashboard card for right now. Only use plan_proposal when the
packet shows a multi-day problem the current plan cannot fix.
`

// BuildPrompt embeds the packet summary and explicit state fields for the
// generative collaborator.
func BuildPrompt(ctx DailyCoachContext, brief Brief) string {
	var calorieGoal, proteinGoal float64
	if ctx.Profile != nil {
		calorieGoal, proteinGoal = ctx.Profile.CalorieGoal, ctx.Profile.ProteinGoal
	}

	workout := "not yet"
	switch {
	case ctx.HasActiveWorkout:
		workout = "in progress"
	case ctx.HasWorkoutToday:
		workout = "done"
	}

	summary := "goal=" + deriveGoal(ctx)
	if ctx.Packet != nil {
		summary = ctx.Packet.PromptSummary
	}

	signals := []string{}
	for _, s := range ctx.ActiveSignals {
		if s.Domain == DomainNote || !s.IsActive(ctx.Now) {
			continue
		}
		signals = append(signals, fmt.Sprintf("- %s: %s (severity %.2f, confidence %.2f)", s.Domain, s.Title, s.Severity, s.Confidence))
	}
	if len(signals) == 0 {
		signals = append(signals, "none")
	}

	week := "week: no trend yet"
	if t := ctx.Trend; t != nil {
		week = fmt.Sprintf("%d days: logged %d, protein on target %.0f%%, calories on target %.0f%%",
			t.WindowDays, t.DaysWithLogs, t.ProteinHitRate()*100, t.CalorieHitRate()*100)
	}

	answer := "none"
	if a := RecentAnswer(ctx.ActiveSignals, ctx.Now); a != nil {
		answer = fmt.Sprintf("%s: %q", a.QuestionID, a.Text)
	}

	return fmt.Sprintf(
		userPromptTemplate,
		ctx.Now.Format("Mon 15:04"),
		brief.Phase,
		hourLabel(brief.WorkoutWindowStart), hourLabel(brief.WorkoutWindowEnd),
		workout,
		ctx.CaloriesToday, calorieGoal,
		ctx.ProteinToday, proteinGoal,
		week,
		summary,
		strings.Join(signals, "\n"),
		answer,
		brief.Title,
		brief.Message,
	)
}
