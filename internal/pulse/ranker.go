package pulse

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type candidate struct {
	action DailyCoachAction
	base   float64
}

// RankActions scores every applicable action for the context at now and
// returns at most limit entries, one per kind, best first.
func RankActions(ctx DailyCoachContext, now time.Time, limit int) []RankedAction {
	if limit <= 0 {
		limit = DefaultRankLimit
	}

	candidates := buildCandidates(ctx, now)

	best := make(map[ActionKind]RankedAction, len(candidates))
	for _, c := range candidates {
		base := c.base + RankAffinityWeight*ctx.Patterns.Affinity(c.action.Kind)
		score := adjustedScore(ctx, c.action.Kind, base, now)
		if prev, ok := best[c.action.Kind]; ok && prev.Score >= score {
			continue
		}
		best[c.action.Kind] = RankedAction{Action: c.action, Score: score}
	}

	ranked := make([]RankedAction, 0, len(best))
	for _, r := range best {
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Action.Kind < ranked[j].Action.Kind
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// ScoreFor looks up kind in an already ranked list; 0 when absent.
func ScoreFor(kind ActionKind, ranked []RankedAction) float64 {
	for _, r := range ranked {
		if r.Action.Kind == kind {
			return r.Score
		}
	}
	return 0
}

// adjustedScore applies timing alignment, staleness and same-day repetition
// to a base utility. Kinds without a behavior key only get clamped.
func adjustedScore(ctx DailyCoachContext, kind ActionKind, base float64, now time.Time) float64 {
	key, ok := kind.BehaviorKey()
	if !ok {
		return clamp01(base)
	}

	var timing, staleness, penalty float64
	if ctx.Behavior != nil {
		pref := ctx.Behavior.HourlyPreferenceScore(key, now.Hour(), TimingMinEvents)
		timing = math.Min(pref*TimingWeight, TimingCap)

		if days, seen := ctx.Behavior.DaysSinceLastAction(key, now); seen {
			limit, listed := stalenessCaps[kind]
			if !listed {
				limit = defaultStalenessCap
			}
			staleness = math.Min(float64(days)*StalenessPerDay, limit)
		}
	}

	if outcome, seen := ctx.TodayOutcomes[key]; seen {
		switch {
		case outcome.Completed:
			penalty = RepetitionDonePenalty
		case outcome.Opened:
			penalty = RepetitionOpenedPenalty
		}
	}

	return clamp01(base + timing + staleness - penalty)
}

/* =================================================================================
								CANDIDATE RULES
=================================================================================*/

func buildCandidates(ctx DailyCoachContext, now time.Time) []candidate {
	var out []candidate
	out = append(out, reminderCandidates(ctx.Reminders, now)...)
	out = append(out, weightCandidates(ctx)...)
	out = append(out, workoutCandidates(ctx)...)
	out = append(out, nutritionCandidates(ctx)...)
	out = append(out, recoveryCandidates(ctx, now)...)
	out = append(out, profileCandidates(ctx)...)
	out = append(out, planReviewCandidates(ctx.PlanReviewTrigger)...)
	return out
}

// dueReminders returns pending reminders due within the lookahead, earliest
// first.
func dueReminders(reminders []ReminderCandidate, now time.Time) []ReminderCandidate {
	var due []ReminderCandidate
	horizon := now.Add(ReminderLookahead)
	for _, r := range reminders {
		if r.Completed || r.DueAt.After(horizon) {
			continue
		}
		due = append(due, r)
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].ID < due[j].ID
	})
	return due
}

func nextReminder(reminders []ReminderCandidate, now time.Time) (ReminderCandidate, bool) {
	due := dueReminders(reminders, now)
	if len(due) == 0 {
		return ReminderCandidate{}, false
	}
	return due[0], true
}

func reminderCandidates(reminders []ReminderCandidate, now time.Time) []candidate {
	var out []candidate
	for _, r := range dueReminders(reminders, now) {
		base := 0.62
		subtitle := "Due " + r.DueAt.In(now.Location()).Format("3:04 PM")
		if r.DueAt.Before(now) {
			base += 0.1
			subtitle = "Overdue"
		}
		out = append(out, candidate{
			action: DailyCoachAction{
				Kind:     ActionCompleteReminder,
				Title:    r.Title,
				Subtitle: subtitle,
				Metadata: map[string]string{"reminder_id": r.ID},
			},
			base: base,
		})
	}
	return out
}

func weightCandidates(ctx DailyCoachContext) []candidate {
	var out []candidate
	days := ctx.DaysSinceWeightLog
	if days == nil || *days >= WeightLogDueDays {
		bonus := 0.24
		subtitle := "No weigh-in on record yet"
		if days != nil {
			bonus = math.Min(float64(*days)*0.03, 0.24)
			subtitle = fmt.Sprintf("Last weigh-in %d days ago", *days)
		}
		out = append(out, candidate{
			action: DailyCoachAction{
				Kind:     ActionLogWeight,
				Title:    "Log your weight",
				Subtitle: subtitle,
				Metadata: map[string]string{"variant": "log_now"},
			},
			base: 0.34 + bonus,
		})
	}
	if days != nil {
		out = append(out, candidate{
			action: DailyCoachAction{
				Kind:     ActionLogWeight,
				Title:    "Review your weight trend",
				Metadata: map[string]string{"variant": "review_trend"},
			},
			base: 0.28,
		})
	}
	return out
}

func workoutCandidates(ctx DailyCoachContext) []candidate {
	var out []candidate
	switch {
	case ctx.HasActiveWorkout:
		out = append(out, candidate{
			action: DailyCoachAction{Kind: ActionStartWorkout, Title: "Finish your workout", Subtitle: "Session in progress"},
			base:   0.9,
		})
	case !ctx.HasWorkoutToday:
		base := 0.5 + math.Min(float64(ctx.ReadyMuscleCount)/TotalMuscleGroups, 1)*0.15
		if ctx.Trend != nil && ctx.Trend.DaysSinceWorkout >= 2 {
			base += 0.08
		}
		subtitle := ""
		if ctx.ReadyMuscleCount > 0 {
			subtitle = fmt.Sprintf("%d muscle groups ready", ctx.ReadyMuscleCount)
		}
		out = append(out, candidate{
			action: DailyCoachAction{Kind: ActionStartWorkout, Title: "Start today's workout", Subtitle: subtitle},
			base:   base,
		})
	}

	browse := 0.3
	if ctx.HasWorkoutToday {
		browse = 0.22
	}
	out = append(out, candidate{
		action: DailyCoachAction{Kind: ActionBrowseWorkouts, Title: "Browse workouts"},
		base:   browse,
	})
	return out
}

func nutritionCandidates(ctx DailyCoachContext) []candidate {
	var out []candidate

	share := 0.0
	if ctx.Profile != nil && ctx.Profile.ProteinGoal > 0 {
		share = clamp01(ctx.ProteinRemaining() / ctx.Profile.ProteinGoal)
	}
	subtitle := ""
	if gap := ctx.ProteinRemaining(); gap > 0 {
		subtitle = fmt.Sprintf("%.0fg protein to go", gap)
	}

	out = append(out, candidate{
		action: DailyCoachAction{Kind: ActionLogFood, Title: "Log a protein-forward meal", Subtitle: subtitle},
		base:   0.35 + share*0.3,
	})

	camera := 0.3 + share*0.25
	if ctx.FoodEntriesToday == 0 {
		camera += CameraFirstNoEntryBoost
	}
	out = append(out, candidate{
		action: DailyCoachAction{Kind: ActionLogFoodCamera, Title: "Snap your next meal", Subtitle: subtitle},
		base:   camera,
	})

	calories := 0.24
	if ctx.CaloriesRemaining() >= GoalCalorieGap {
		calories += 0.08
	}
	out = append(out, candidate{
		action: DailyCoachAction{Kind: ActionOpenCalorieDetail, Title: "Check today's calories"},
		base:   calories,
	})

	macros := 0.22
	if share >= 0.5 {
		macros += 0.06
	}
	out = append(out, candidate{
		action: DailyCoachAction{Kind: ActionOpenMacroDetail, Title: "See your macro split"},
		base:   macros,
	})
	return out
}

func recoveryCandidates(ctx DailyCoachContext, now time.Time) []candidate {
	signal, ok := strongestSignal(ctx.ActiveSignals, now, DomainPain, DomainRecovery)
	if !ok || signal.Severity < RecoverySignalMinSeverity {
		return nil
	}
	return []candidate{{
		action: DailyCoachAction{
			Kind:     ActionRecoveryCheck,
			Title:    "Run a recovery check",
			Subtitle: signal.Title,
			Metadata: map[string]string{"signal_id": signal.ID},
		},
		base: 0.55 + 0.3*signal.Severity,
	}}
}

func profileCandidates(ctx DailyCoachContext) []candidate {
	p := ctx.Profile
	if p == nil || p.CalorieGoal <= 0 || p.ProteinGoal <= 0 {
		return []candidate{{
			action: DailyCoachAction{Kind: ActionReviewProfile, Title: "Finish setting your goals"},
			base:   0.5,
		}}
	}
	return []candidate{{
		action: DailyCoachAction{Kind: ActionReviewProfile, Title: "Review your profile"},
		base:   0.12,
	}}
}

func planReviewCandidates(trigger *PlanReviewTrigger) []candidate {
	if trigger == nil {
		return nil
	}
	kind, title := ActionReviewNutritionPlan, "Review your nutrition plan"
	if trigger.Kind == PlanWorkout {
		kind, title = ActionReviewWorkoutPlan, "Review your workout plan"
	}
	return []candidate{{
		action: DailyCoachAction{Kind: kind, Title: title, Subtitle: trigger.Reason},
		base:   0.42 + 0.2*clamp01(trigger.Strength),
	}}
}
