package pulse

import "time"

/* =================================================================================
							HEURISTIC TUNING CONSTANTS
	Every hand-tuned weight, threshold and cap used by the pulse engine lives here.
	Near-duplicate thresholds at different call sites are kept separate on purpose.
=================================================================================*/

// LiveWorkoutMaxAge bounds how long an uncompleted live session counts as
// running. Older sessions were abandoned.
const LiveWorkoutMaxAge = 4 * time.Hour

// --- Pattern & trend extraction ---
const (
	PatternWindowDays       = 28
	AdherenceWindowDays     = 14
	DefaultTrendWindowDays  = 7
	WorkoutLookbackDays     = 30
	ProteinAnchorMinGrams   = 20.0
	ProteinAnchorGoalShare  = 0.2
	MaxProteinAnchors       = 3
	MaxAnchorWords          = 4
	MaxAdherenceNotes       = 2
	LoggingCoverageFloor    = 0.45
	ProteinHitRateFloor     = 0.45
	ProteinHitMinLoggedDays = 4
	WeekdayMinSamples       = 2
	WeekdayWeakHitRate      = 0.35
	WorkoutCoverageDays     = 8.0

	PatternConfidenceLogging  = 0.45
	PatternConfidenceWorkout  = 0.30
	PatternConfidenceAffinity = 0.25

	ProteinHitRatio = 0.8
	CalorieHitLow   = 0.8
	CalorieHitHigh  = 1.15
	LowProteinRatio = 0.65
)

// --- Context packet ---
const (
	DefaultTokenBudget      = 700
	TokensPerWord           = 1.25
	MaxPacketConstraints    = 2
	MaxPacketPatterns       = 3
	MaxPacketAnomalies      = 2
	MaxPacketActions        = 2
	GoalProteinGapGrams     = 30.0
	GoalCalorieGap          = 450.0
	ConstraintSeverityShare = 0.7
	ConstraintConfidence    = 0.3
	WindowPassedUtility     = 0.8
	PacketWorkoutWindowMin  = 0.32
	PacketMealWindowMin     = 0.38
	PacketAffinityBoost     = 0.25
	PacketHabitUtility      = 0.5
)

// --- Action ranker ---
const (
	DefaultRankLimit          = 6
	TimingMinEvents           = 2
	TimingWeight              = 0.22
	TimingCap                 = 0.16
	StalenessPerDay           = 0.02
	RepetitionOpenedPenalty   = 0.12
	RepetitionDonePenalty     = 0.30
	RankAffinityWeight        = 0.12
	ReminderLookahead         = 2 * time.Hour
	WeightLogDueDays          = 3
	CameraFirstNoEntryBoost   = 0.08
	RecoverySignalMinSeverity = 0.35
)

// stalenessCaps bounds the staleness boost per action kind. Kinds that are
// not listed use defaultStalenessCap.
var stalenessCaps = map[ActionKind]float64{
	ActionLogWeight:           0.18,
	ActionReviewNutritionPlan: 0.14,
	ActionReviewWorkoutPlan:   0.12,
	ActionStartWorkout:        0.10,
	ActionLogFood:             0.08,
	ActionLogFoodCamera:       0.08,
}

const defaultStalenessCap = 0.06

// --- Brief engine ---
const (
	DefaultWorkoutWindowStart = 17
	DefaultWorkoutWindowEnd   = 20
	LearnedWindowMinScore     = 0.38
	ScheduleRiskDone          = 0.05
	ScheduleRiskBefore        = 0.25
	ScheduleRiskMissed        = 0.88
	TotalMuscleGroups         = 8.0
	PainReadinessPenalty      = 0.35
	SleepReadinessPenalty     = 0.20

	TrendRiskLoggingWeight = 0.35
	TrendRiskProteinWeight = 0.30
	TrendRiskUnknown       = 0.35

	ConfidenceCoverageWeight    = 0.40
	ConfidenceConsistencyWeight = 0.25
	ConfidenceScheduleWeight    = 0.20
	ConfidenceTrendWeight       = 0.15
	ConfidenceLowCeiling        = 0.34
	ConfidenceMediumCeiling     = 0.67

	MaxBriefReasons        = 3
	PainHeadlineSeverity   = 0.5
	PainQuestionSeverity   = 0.4
	WorkoutGapHeadlineDays = 3
	ProteinCloseGrams      = 25.0
)

// workoutStalenessPenalty and streakPenalty are tiered trend-risk terms.
func workoutStalenessPenalty(days int) float64 {
	switch {
	case days >= 5:
		return 0.25
	case days >= 3:
		return 0.15
	}
	return 0
}

func streakPenalty(streak int) float64 {
	switch {
	case streak >= 3:
		return 0.15
	case streak >= 2:
		return 0.08
	}
	return 0
}

// --- Policy engine ---
const (
	PlanProposalCooldown     = 7 * 24 * time.Hour
	EvidenceProteinStreak    = 3
	EvidenceWorkoutGapDays   = 4
	EvidenceSignalSeverity   = 0.65
	EvidenceSignalConfidence = 0.6
)

// --- Answers ---
const (
	AnswerSignalLifetime = 3 * 24 * time.Hour
	NoteMaxLength        = 280
	MaxPlaceholderLength = 80
)
