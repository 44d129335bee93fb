package pulse

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Follow-up question ids. An answer is stored as a note signal whose source
// is AnswerSourcePrefix followed by the id.
const (
	QuestionPainFollowUp       = "pain_followup"
	QuestionScheduleRescue     = "schedule_rescue"
	QuestionWorkoutUnblock     = "workout_unblock"
	QuestionProteinBlocker     = "protein_blocker"
	QuestionLoggingConsistency = "logging_consistency"
	QuestionProteinClose       = "protein_close"
	QuestionReadinessScan      = "readiness_scan"
	QuestionOpenNote           = "open_note"

	AnswerSourcePrefix = "dashboard_note:"
)

// FollowUp is the single question a brief may ask.
type FollowUp struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	InputMode   InputMode `json:"input_mode"`
	Options     []string  `json:"options,omitempty"`
	MaxLength   int       `json:"max_length,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
}

func choice(prompt string, options ...string) FollowUp {
	return FollowUp{Prompt: prompt, InputMode: InputSingleChoice, Options: options}
}

// Answer is the user's most recent reply to a follow-up.
type Answer struct {
	QuestionID string    `json:"question_id"`
	Text       string    `json:"text"`
	AnsweredAt time.Time `json:"answered_at"`
}

// AnswerSignal turns an answer into the note signal that carries it into
// later briefs.
func AnswerSignal(id, questionID, text string, now time.Time) CoachSignal {
	return CoachSignal{
		ID:         id,
		Domain:     DomainNote,
		Title:      "Answered " + questionID,
		Detail:     text,
		Confidence: 1,
		Source:     AnswerSourcePrefix + questionID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(AnswerSignalLifetime),
	}
}

// RecentAnswer returns the newest active dashboard answer, or nil.
func RecentAnswer(signals []CoachSignal, now time.Time) *Answer {
	var notes []CoachSignal
	for _, s := range signals {
		if s.Domain == DomainNote && s.IsActive(now) && strings.HasPrefix(s.Source, AnswerSourcePrefix) {
			notes = append(notes, s)
		}
	}
	if len(notes) == 0 {
		return nil
	}
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.After(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
	latest := notes[0]
	return &Answer{
		QuestionID: strings.TrimPrefix(latest.Source, AnswerSourcePrefix),
		Text:       latest.Detail,
		AnsweredAt: latest.CreatedAt,
	}
}

func answered(signals []CoachSignal, now time.Time, questionID string) bool {
	source := AnswerSourcePrefix + questionID
	for _, s := range signals {
		if s.Domain == DomainNote && s.Source == source && s.IsActive(now) {
			return true
		}
	}
	return false
}

type questionRule struct {
	id    string
	build func(ctx DailyCoachContext, phase BriefPhase) (FollowUp, bool)
}

// questionRules is in priority order; the first applicable, unanswered
// question wins.
var questionRules = []questionRule{
	{QuestionPainFollowUp, func(ctx DailyCoachContext, _ BriefPhase) (FollowUp, bool) {
		pain, ok := strongestSignal(ctx.ActiveSignals, ctx.Now, DomainPain)
		if !ok || pain.Severity < PainQuestionSeverity {
			return FollowUp{}, false
		}
		return choice(fmt.Sprintf("How is the %s feeling today?", strings.ToLower(pain.Title)), "Better", "About the same", "Worse"), true
	}},
	{QuestionScheduleRescue, func(_ DailyCoachContext, phase BriefPhase) (FollowUp, bool) {
		if phase != PhaseRescue && phase != PhaseAtRisk {
			return FollowUp{}, false
		}
		return choice("Can you still fit a short session in today?", "Yes, 15 minutes", "Yes, 30 minutes", "Not today"), true
	}},
	{QuestionWorkoutUnblock, func(ctx DailyCoachContext, _ BriefPhase) (FollowUp, bool) {
		if ctx.Trend == nil || ctx.Trend.DaysSinceWorkout < WorkoutGapHeadlineDays || !workoutPending(ctx) {
			return FollowUp{}, false
		}
		return choice("What's been getting in the way of training?", "Time", "Energy", "Motivation", "Soreness"), true
	}},
	{QuestionProteinBlocker, func(ctx DailyCoachContext, _ BriefPhase) (FollowUp, bool) {
		if ctx.Trend == nil || ctx.Trend.LowProteinStreak < 2 {
			return FollowUp{}, false
		}
		return choice("What makes protein hard lately?", "Appetite", "Time to cook", "Not sure what to eat"), true
	}},
	{QuestionLoggingConsistency, func(ctx DailyCoachContext, _ BriefPhase) (FollowUp, bool) {
		if ctx.Trend == nil || ctx.Trend.LoggingConsistency() >= 0.5 {
			return FollowUp{}, false
		}
		return choice("What would make logging easier?", "Photo logging", "Quick add", "A reminder"), true
	}},
	{QuestionProteinClose, func(ctx DailyCoachContext, _ BriefPhase) (FollowUp, bool) {
		gap := ctx.ProteinRemaining()
		if gap <= 0 || gap > ProteinCloseGrams {
			return FollowUp{}, false
		}
		return choice(fmt.Sprintf("Want an easy way to close the last %.0fg of protein?", gap), "Yes", "No thanks"), true
	}},
	{QuestionReadinessScan, func(_ DailyCoachContext, phase BriefPhase) (FollowUp, bool) {
		if phase != PhaseMorningPlan && phase != PhaseOnTrack {
			return FollowUp{}, false
		}
		return choice("How ready do you feel to train today?", "Fresh", "A bit tired", "Sore"), true
	}},
	{QuestionOpenNote, func(DailyCoachContext, BriefPhase) (FollowUp, bool) {
		return FollowUp{
			Prompt:      "Anything I should know about today?",
			InputMode:   InputNote,
			MaxLength:   NoteMaxLength,
			Placeholder: "Short on time, sore legs, travelling...",
		}, true
	}},
}

func chooseQuestion(ctx DailyCoachContext, phase BriefPhase) *FollowUp {
	for _, rule := range questionRules {
		if answered(ctx.ActiveSignals, ctx.Now, rule.id) {
			continue
		}
		q, ok := rule.build(ctx, phase)
		if !ok {
			continue
		}
		q.ID = rule.id
		return &q
	}
	return nil
}
