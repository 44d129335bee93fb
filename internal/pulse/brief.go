package pulse

import (
	"fmt"
	"math"
	"strings"
)

// BriefPhase is where the user stands relative to today's workout window.
type BriefPhase string

const (
	PhaseMorningPlan BriefPhase = "morning_plan"
	PhaseOnTrack     BriefPhase = "on_track"
	PhaseAtRisk      BriefPhase = "at_risk"
	PhaseRescue      BriefPhase = "rescue"
	PhaseCompleted   BriefPhase = "completed"
)

// Label is the short header copy for the phase.
func (p BriefPhase) Label() string {
	switch p {
	case PhaseMorningPlan:
		return "Plan the day"
	case PhaseOnTrack:
		return "On track"
	case PhaseAtRisk:
		return "At risk"
	case PhaseRescue:
		return "Rescue mode"
	case PhaseCompleted:
		return "Done for today"
	}
	return string(p)
}

// ConfidenceLabel buckets the brief's overall confidence.
type ConfidenceLabel string

const (
	ConfidenceLow    ConfidenceLabel = "low"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceHigh   ConfidenceLabel = "high"
)

func labelConfidence(c float64) ConfidenceLabel {
	switch {
	case c < ConfidenceLowCeiling:
		return ConfidenceLow
	case c < ConfidenceMediumCeiling:
		return ConfidenceMedium
	}
	return ConfidenceHigh
}

// Brief is the deterministic daily recommendation.
type Brief struct {
	Phase           BriefPhase       `json:"phase"`
	Title           string           `json:"title"`
	Message         string           `json:"message"`
	Reasons         []string         `json:"reasons"`
	Question        *FollowUp        `json:"question,omitempty"`
	PrimaryAction   DailyCoachAction `json:"primary_action"`
	SecondaryAction DailyCoachAction `json:"secondary_action"`
	TomorrowPreview string           `json:"tomorrow_preview"`

	WorkoutWindowStart int  `json:"workout_window_start"`
	WorkoutWindowEnd   int  `json:"workout_window_end"`
	WindowLearned      bool `json:"window_learned"`

	ScheduleRisk      float64         `json:"schedule_risk"`
	RecoveryReadiness float64         `json:"recovery_readiness"`
	TrendRisk         float64         `json:"trend_risk"`
	Confidence        float64         `json:"confidence"`
	ConfidenceLabel   ConfidenceLabel `json:"confidence_label"`
}

// DailyCoachRecommendation is the name the presentation layer uses.
type DailyCoachRecommendation = Brief

// workoutWindow returns the learned window when the pattern profile is
// confident about one, otherwise the default evening window.
func workoutWindow(p *PatternProfile) (start, end int, learned bool) {
	if w, score, ok := p.StrongestWorkoutWindow(); ok && score >= LearnedWindowMinScore {
		start, end = WorkoutWindowHours(w)
		return start, end, true
	}
	return DefaultWorkoutWindowStart, DefaultWorkoutWindowEnd, false
}

// MakeBrief runs the phase state machine and the copy cascade for ctx. It
// reads no clock other than ctx.Now.
func MakeBrief(ctx DailyCoachContext) Brief {
	start, end, learned := workoutWindow(ctx.Patterns)
	phase := phaseFor(ctx, start, end)
	answer := RecentAnswer(ctx.ActiveSignals, ctx.Now)

	b := Brief{
		Phase:              phase,
		WorkoutWindowStart: start,
		WorkoutWindowEnd:   end,
		WindowLearned:      learned,
		ScheduleRisk:       scheduleRisk(ctx, start, end),
		RecoveryReadiness:  recoveryReadiness(ctx),
		TrendRisk:          trendRisk(ctx.Trend),
	}
	b.Confidence = clamp01(
		ConfidenceCoverageWeight*dataCoverage(ctx) +
			ConfidenceConsistencyWeight*ctx.Trend.LoggingConsistency() +
			ConfidenceScheduleWeight*(1-b.ScheduleRisk) +
			ConfidenceTrendWeight*(1-b.TrendRisk),
	)
	b.ConfidenceLabel = labelConfidence(b.Confidence)

	b.Title, b.Message = headline(ctx, phase, start, end)
	b.Reasons = reasons(ctx, phase, answer)
	b.Question = chooseQuestion(ctx, phase)
	b.PrimaryAction, b.SecondaryAction = chooseActions(ctx, phase, answer)
	b.TomorrowPreview = tomorrowPreview(ctx, start, end, learned)
	return b
}

func phaseFor(ctx DailyCoachContext, start, end int) BriefPhase {
	if ctx.HasActiveWorkout {
		return PhaseOnTrack
	}
	if ctx.HasWorkoutToday {
		return PhaseCompleted
	}
	hour := ctx.Now.Hour()
	switch {
	case hour < start:
		return PhaseMorningPlan
	case hour < end:
		if hour >= end-1 {
			return PhaseAtRisk
		}
		return PhaseOnTrack
	}
	return PhaseRescue
}

/* =================================================================================
									METRICS
=================================================================================*/

func scheduleRisk(ctx DailyCoachContext, start, end int) float64 {
	if ctx.HasWorkoutToday || ctx.HasActiveWorkout {
		return ScheduleRiskDone
	}
	minutes := ctx.Now.Hour()*60 + ctx.Now.Minute()
	switch {
	case minutes < start*60:
		return ScheduleRiskBefore
	case minutes >= end*60:
		return ScheduleRiskMissed
	}
	progress := float64(minutes-start*60) / float64((end-start)*60)
	return ScheduleRiskBefore + (ScheduleRiskMissed-ScheduleRiskBefore)*progress
}

func recoveryReadiness(ctx DailyCoachContext) float64 {
	ready := math.Min(float64(ctx.ReadyMuscleCount)/TotalMuscleGroups, 1)
	pain := maxSeverity(ctx.ActiveSignals, ctx.Now, DomainPain)
	sleep := maxSeverity(ctx.ActiveSignals, ctx.Now, DomainSleep)
	return clamp01(ready - pain*PainReadinessPenalty - sleep*SleepReadinessPenalty)
}

func trendRisk(t *TrendSnapshot) float64 {
	if t == nil {
		return TrendRiskUnknown
	}
	return clamp01(
		TrendRiskLoggingWeight*(1-t.LoggingConsistency()) +
			TrendRiskProteinWeight*(1-t.ProteinHitRate()) +
			workoutStalenessPenalty(t.DaysSinceWorkout) +
			streakPenalty(t.LowProteinStreak),
	)
}

// dataCoverage averages how much of the context is backed by real data.
func dataCoverage(ctx DailyCoachContext) float64 {
	var parts [4]float64
	if p := ctx.Profile; p != nil && p.CalorieGoal > 0 && p.ProteinGoal > 0 {
		parts[0] = 1
	}
	if ctx.Trend != nil {
		parts[1] = ctx.Trend.LoggingConsistency()
	}
	if ctx.Patterns != nil {
		parts[2] = ctx.Patterns.Confidence
	}
	if ctx.Behavior != nil && !ctx.Behavior.IsEmpty() {
		parts[3] = 1
	}
	return (parts[0] + parts[1] + parts[2] + parts[3]) / 4
}

/* =================================================================================
									COPY CASCADE
=================================================================================*/

func headline(ctx DailyCoachContext, phase BriefPhase, start, end int) (string, string) {
	// 1. Active pain
	if pain, ok := strongestSignal(ctx.ActiveSignals, ctx.Now, DomainPain); ok && pain.Severity >= PainHeadlineSeverity {
		return "Train around " + strings.ToLower(pain.Title),
			"Keep today light and skip anything that aggravates it. Mobility still counts."
	}

	// 2. Multi-day workout gap
	if t := ctx.Trend; t != nil && workoutPending(ctx) && t.DaysSinceWorkout >= WorkoutGapHeadlineDays {
		return fmt.Sprintf("Break the %d-day gap", t.DaysSinceWorkout),
			"A short session today restarts the rhythm. It does not need to be a big one."
	}

	// 3. Phase template
	switch phase {
	case PhaseMorningPlan:
		return "Plan today's session",
			fmt.Sprintf("Your workout window opens at %s. Line up your first meal around it.", hourLabel(start))
	case PhaseOnTrack:
		if ctx.HasActiveWorkout {
			return "Finish strong", "Your session is in progress. Close it out and log your next meal."
		}
		return "You're in your window", fmt.Sprintf("Good time to train. The window runs until %s.", hourLabel(end))
	case PhaseAtRisk:
		return "Last hour of your window", "Start something now, even a short session keeps the day on plan."
	case PhaseRescue:
		return "Rescue the day", "Your usual window has passed. A 15-minute session still counts."
	}

	if gap := ctx.ProteinRemaining(); gap >= ProteinCloseGrams {
		return "Workout done", fmt.Sprintf("Now close out the last %.0fg of protein.", gap)
	}
	return "Workout done", "Training is in. Keep the rest of the day steady."
}

func reasons(ctx DailyCoachContext, phase BriefPhase, answer *Answer) []string {
	var out []string
	if answer != nil {
		out = append(out, fmt.Sprintf("You said \"%s\" earlier", answer.Text))
	}

	switch phase {
	case PhaseCompleted:
		if gap := ctx.ProteinRemaining(); gap > 0 {
			out = append(out, fmt.Sprintf("%.0fg protein left today", gap))
		}
	case PhaseRescue, PhaseAtRisk:
		out = append(out, "Today's workout is still open")
	default:
		if ctx.ReadyMuscleCount > 0 {
			out = append(out, fmt.Sprintf("%d muscle groups are recovered", ctx.ReadyMuscleCount))
		}
	}

	if p := ctx.Packet; p != nil {
		if len(p.Patterns) > 0 {
			out = append(out, upperFirst(p.Patterns[0]))
		}
		if len(p.Anomalies) > 0 {
			out = append(out, upperFirst(p.Anomalies[0]))
		}
	}

	if len(out) > MaxBriefReasons {
		out = out[:MaxBriefReasons]
	}
	return out
}

func chooseActions(ctx DailyCoachContext, phase BriefPhase, answer *Answer) (DailyCoachAction, DailyCoachAction) {
	primary := phaseAction(ctx, phase)
	if a, ok := answerAction(answer); ok {
		primary = a
	}

	ranked := RankActions(ctx, ctx.Now, DefaultRankLimit)
	for _, r := range ranked {
		if r.Action.Kind != primary.Kind {
			return primary, r.Action
		}
	}
	return primary, DailyCoachAction{Kind: ActionOpenCoachChat, Title: "Ask your coach"}
}

func phaseAction(ctx DailyCoachContext, phase BriefPhase) DailyCoachAction {
	switch phase {
	case PhaseMorningPlan:
		return DailyCoachAction{Kind: ActionStartWorkout, Title: "Preview today's workout"}
	case PhaseOnTrack:
		if ctx.HasActiveWorkout {
			return DailyCoachAction{Kind: ActionStartWorkout, Title: "Resume workout"}
		}
		return DailyCoachAction{Kind: ActionStartWorkout, Title: "Start workout"}
	case PhaseAtRisk:
		return shortWorkout(20)
	case PhaseRescue:
		return shortWorkout(15)
	}
	if ctx.ProteinRemaining() >= ProteinCloseGrams {
		return DailyCoachAction{Kind: ActionLogFood, Title: "Log a protein-rich meal"}
	}
	return DailyCoachAction{Kind: ActionOpenProgress, Title: "See today's progress"}
}

func shortWorkout(minutes int) DailyCoachAction {
	return DailyCoachAction{
		Kind:     ActionStartWorkout,
		Title:    fmt.Sprintf("Start a %d-minute session", minutes),
		Metadata: map[string]string{"duration_minutes": fmt.Sprint(minutes)},
	}
}

// answerAction branches on the literal text of the latest answer.
func answerAction(answer *Answer) (DailyCoachAction, bool) {
	if answer == nil {
		return DailyCoachAction{}, false
	}
	text := strings.ToLower(answer.Text)
	switch answer.QuestionID {
	case QuestionScheduleRescue:
		switch {
		case strings.Contains(text, "15"):
			return shortWorkout(15), true
		case strings.Contains(text, "30"):
			return shortWorkout(30), true
		case strings.Contains(text, "not"):
			return DailyCoachAction{Kind: ActionLogFood, Title: "Keep nutrition on plan"}, true
		}
	case QuestionPainFollowUp:
		if strings.Contains(text, "worse") {
			return DailyCoachAction{Kind: ActionRecoveryCheck, Title: "Run a recovery check"}, true
		}
	case QuestionLoggingConsistency:
		if strings.Contains(text, "photo") {
			return DailyCoachAction{Kind: ActionLogFoodCamera, Title: "Snap your next meal"}, true
		}
	case QuestionProteinClose:
		if strings.HasPrefix(text, "yes") {
			return DailyCoachAction{Kind: ActionSuggestMeal, Title: "Get a high-protein idea"}, true
		}
	}
	return DailyCoachAction{}, false
}

func tomorrowPreview(ctx DailyCoachContext, start, end int, learned bool) string {
	window := "usual"
	if learned {
		window = "learned"
	}
	preview := fmt.Sprintf("Tomorrow: aim for your %s window, %s to %s.", window, hourLabel(start), hourLabel(end))
	if t := ctx.Trend; t != nil && t.LowProteinStreak >= 2 {
		preview += " Lead with protein at breakfast."
	} else if anchors := ctx.Patterns; anchors != nil && len(anchors.CommonProteinAnchors) > 0 {
		preview += fmt.Sprintf(" %s is an easy protein win.", anchors.CommonProteinAnchors[0])
	}
	return preview
}

func hourLabel(hour int) string {
	h := hour % 24
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	}
	return fmt.Sprintf("%d PM", h-12)
}

