package pulse

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"traipulse/internal/behavior"
)

// PatternProfile is the longer-horizon view of how the user actually
// trains and eats. Window scores and affinities are distributions that sum
// to at most 1.
type PatternProfile struct {
	WorkoutWindowScores  map[TimeWindow]float64 `json:"workout_window_scores"`
	MealWindowScores     map[TimeWindow]float64 `json:"meal_window_scores"`
	CommonProteinAnchors []string               `json:"common_protein_anchors"`
	AdherenceNotes       []string               `json:"adherence_notes"`
	ActionAffinity       map[ActionKind]float64 `json:"action_affinity"`
	Confidence           float64                `json:"confidence"`
}

// StrongestWorkoutWindow returns the most frequent workout bucket.
func (p *PatternProfile) StrongestWorkoutWindow() (TimeWindow, float64, bool) {
	if p == nil {
		return "", 0, false
	}
	return strongestWindow(p.WorkoutWindowScores)
}

// StrongestMealWindow returns the most frequent food-logging bucket.
func (p *PatternProfile) StrongestMealWindow() (TimeWindow, float64, bool) {
	if p == nil {
		return "", 0, false
	}
	return strongestWindow(p.MealWindowScores)
}

// Affinity returns the normalized tap share for kind, 0 when unknown.
func (p *PatternProfile) Affinity(kind ActionKind) float64 {
	if p == nil {
		return 0
	}
	return p.ActionAffinity[kind]
}

// BuildPatternProfile scans the last PatternWindowDays of history ending at
// now. It never fails; missing data yields empty distributions and a low
// confidence.
func BuildPatternProfile(
	now time.Time,
	foodEntries []FoodEntry,
	workouts []WorkoutSession,
	liveWorkouts []LiveWorkout,
	usage []SuggestionUsage,
	profile *UserProfile,
) PatternProfile {
	windowStart := behavior.StartOfDay(now).AddDate(0, 0, -(PatternWindowDays - 1))
	inWindow := func(t time.Time) bool {
		return !t.Before(windowStart) && !t.After(now)
	}

	// 1. Day-part distributions
	workoutCounts := make(map[TimeWindow]int)
	workoutDays := make(map[int]bool)
	workoutTotal := 0
	for _, t := range workoutTimes(workouts, liveWorkouts) {
		if !inWindow(t) {
			continue
		}
		workoutCounts[WorkoutWindowFor(t.In(now.Location()).Hour())]++
		workoutDays[behavior.DaysBetween(t, now)] = true
		workoutTotal++
	}

	var windowedFood []FoodEntry
	mealCounts := make(map[TimeWindow]int)
	for _, e := range foodEntries {
		if !inWindow(e.LoggedAt) {
			continue
		}
		windowedFood = append(windowedFood, e)
		mealCounts[MealWindowFor(e.LoggedAt.In(now.Location()).Hour())]++
	}

	proteinGoal := 0.0
	if profile != nil {
		proteinGoal = profile.ProteinGoal
	}

	// 2-4. Anchors, adherence and affinity
	coverage, notes := adherence(now, windowedFood, proteinGoal)
	affinity := ActionAffinityFromUsage(usage)

	affinitySum := 0.0
	for _, v := range affinity {
		affinitySum += v
	}
	workoutCoverage := math.Min(float64(len(workoutDays))/WorkoutCoverageDays, 1)

	// 5. Confidence
	confidence := clamp01(
		PatternConfidenceLogging*coverage +
			PatternConfidenceWorkout*workoutCoverage +
			PatternConfidenceAffinity*math.Min(affinitySum, 1),
	)

	return PatternProfile{
		WorkoutWindowScores:  normalizeWindows(workoutCounts, workoutTotal),
		MealWindowScores:     normalizeWindows(mealCounts, len(windowedFood)),
		CommonProteinAnchors: proteinAnchors(windowedFood, proteinGoal),
		AdherenceNotes:       notes,
		ActionAffinity:       affinity,
		Confidence:           confidence,
	}
}

func workoutTimes(workouts []WorkoutSession, live []LiveWorkout) []time.Time {
	times := make([]time.Time, 0, len(workouts)+len(live))
	for _, w := range workouts {
		times = append(times, w.StartedAt)
	}
	for _, w := range live {
		times = append(times, w.StartedAt)
	}
	return times
}

func normalizeWindows(counts map[TimeWindow]int, total int) map[TimeWindow]float64 {
	scores := make(map[TimeWindow]float64)
	if total <= 0 {
		return scores
	}
	for w, c := range counts {
		if c > 0 {
			scores[w] = float64(c) / float64(total)
		}
	}
	return scores
}

/* =================================================================================
								PROTEIN ANCHORS
=================================================================================*/

var anchorStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "with": true, "of": true, "w": true,
}

// NormalizeFoodName reduces a food name to a grouping key: lowercase,
// non-alphanumerics become spaces, at most MaxAnchorWords significant words.
func NormalizeFoodName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, name)

	words := make([]string, 0, MaxAnchorWords)
	for _, w := range strings.Fields(mapped) {
		if anchorStopWords[w] {
			continue
		}
		words = append(words, w)
		if len(words) == MaxAnchorWords {
			break
		}
	}
	return strings.Join(words, " ")
}

func proteinAnchors(entries []FoodEntry, proteinGoal float64) []string {
	threshold := math.Max(ProteinAnchorMinGrams, ProteinAnchorGoalShare*proteinGoal)

	type group struct {
		key     string
		count   int
		protein float64
	}
	groups := make(map[string]*group)
	for _, e := range entries {
		if e.Protein < threshold {
			continue
		}
		key := NormalizeFoodName(e.Name)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key}
			groups[key] = g
		}
		g.count++
		g.protein += e.Protein
	}

	ranked := make([]*group, 0, len(groups))
	for _, g := range groups {
		ranked = append(ranked, g)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		if ranked[i].protein != ranked[j].protein {
			return ranked[i].protein > ranked[j].protein
		}
		return ranked[i].key < ranked[j].key
	})

	anchors := []string{}
	for i := 0; i < len(ranked) && i < MaxProteinAnchors; i++ {
		anchors = append(anchors, titleCase(ranked[i].key))
	}
	return anchors
}

/* =================================================================================
								ADHERENCE NOTES
=================================================================================*/

// adherence returns the logging-coverage ratio over the last
// AdherenceWindowDays and up to MaxAdherenceNotes weak points, always in
// the order coverage, protein, weekday.
func adherence(now time.Time, entries []FoodEntry, proteinGoal float64) (float64, []string) {
	type dayTotal struct {
		protein float64
		weekday time.Weekday
	}
	days := make(map[int]*dayTotal)
	for _, e := range entries {
		offset := behavior.DaysBetween(e.LoggedAt, now)
		d, ok := days[offset]
		if !ok {
			d = &dayTotal{weekday: e.LoggedAt.In(now.Location()).Weekday()}
			days[offset] = d
		}
		d.protein += e.Protein
	}

	recentLogged, recentHits := 0, 0
	for offset, d := range days {
		if offset < 0 || offset >= AdherenceWindowDays {
			continue
		}
		recentLogged++
		if proteinGoal > 0 && d.protein >= ProteinHitRatio*proteinGoal {
			recentHits++
		}
	}
	coverage := math.Min(float64(recentLogged)/AdherenceWindowDays, 1)

	notes := []string{}
	if coverage < LoggingCoverageFloor {
		notes = append(notes, fmt.Sprintf("Food logging is inconsistent (%d of the last %d days)", recentLogged, AdherenceWindowDays))
	}

	if proteinGoal > 0 && recentLogged >= ProteinHitMinLoggedDays {
		if float64(recentHits)/float64(recentLogged) < ProteinHitRateFloor {
			notes = append(notes, fmt.Sprintf("Protein target often missed (%d of %d logged days)", recentHits, recentLogged))
		}
	}

	if proteinGoal > 0 {
		var samples, hits [7]int
		for _, d := range days {
			samples[d.weekday]++
			if d.protein >= ProteinHitRatio*proteinGoal {
				hits[d.weekday]++
			}
		}
		weakest, weakestRate := -1, 2.0
		for wd := 0; wd < 7; wd++ {
			if samples[wd] < WeekdayMinSamples {
				continue
			}
			rate := float64(hits[wd]) / float64(samples[wd])
			if rate < weakestRate {
				weakest, weakestRate = wd, rate
			}
		}
		if weakest >= 0 && weakestRate <= WeekdayWeakHitRate {
			notes = append(notes, fmt.Sprintf("Protein tends to slip on %ss", time.Weekday(weakest)))
		}
	}

	if len(notes) > MaxAdherenceNotes {
		notes = notes[:MaxAdherenceNotes]
	}
	return coverage, notes
}

/* =================================================================================
								ACTION AFFINITY
=================================================================================*/

type affinityRule struct {
	keywords []string
	kind     ActionKind
}

// affinityRules maps free-text suggestion types onto action kinds. Order
// matters: the first rule with a matching keyword wins.
var affinityRules = []affinityRule{
	{[]string{"camera", "photo", "scan"}, ActionLogFoodCamera},
	{[]string{"meal_plan", "plan_meal", "meal plan"}, ActionPlanMeals},
	{[]string{"nutrition_plan", "diet_plan", "macro_plan"}, ActionReviewNutritionPlan},
	{[]string{"workout_plan", "program", "split"}, ActionReviewWorkoutPlan},
	{[]string{"browse", "library", "explore"}, ActionBrowseWorkouts},
	{[]string{"workout", "train", "exercise", "lift"}, ActionStartWorkout},
	{[]string{"weight", "scale"}, ActionLogWeight},
	{[]string{"calorie", "kcal"}, ActionOpenCalorieDetail},
	{[]string{"macro", "carb", "fat"}, ActionOpenMacroDetail},
	{[]string{"recipe", "suggest", "idea"}, ActionSuggestMeal},
	{[]string{"protein", "food", "meal", "log", "snack"}, ActionLogFood},
	{[]string{"reminder", "habit"}, ActionCompleteReminder},
	{[]string{"recovery", "pain", "sore", "sleep"}, ActionRecoveryCheck},
	{[]string{"profile", "goal"}, ActionReviewProfile},
	{[]string{"progress", "trend", "stats"}, ActionOpenProgress},
	{[]string{"chat", "ask", "coach", "trai"}, ActionOpenCoachChat},
}

// ActionKindForSuggestion classifies a free-text suggestion type.
func ActionKindForSuggestion(suggestionType string) (ActionKind, bool) {
	s := strings.ToLower(strings.TrimSpace(suggestionType))
	if s == "" {
		return "", false
	}
	for _, rule := range affinityRules {
		for _, kw := range rule.keywords {
			if strings.Contains(s, kw) {
				return rule.kind, true
			}
		}
	}
	return "", false
}

// ActionAffinityFromUsage buckets tap counts by action kind and normalizes
// them to sum to 1. Unclassifiable usage is dropped.
func ActionAffinityFromUsage(usage []SuggestionUsage) map[ActionKind]float64 {
	counts := make(map[ActionKind]int)
	total := 0
	for _, u := range usage {
		if u.TapCount <= 0 {
			continue
		}
		kind, ok := ActionKindForSuggestion(u.SuggestionType)
		if !ok {
			continue
		}
		counts[kind] += u.TapCount
		total += u.TapCount
	}

	affinity := make(map[ActionKind]float64, len(counts))
	if total == 0 {
		return affinity
	}
	for kind, c := range counts {
		affinity[kind] = float64(c) / float64(total)
	}
	return affinity
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
