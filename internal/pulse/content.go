package pulse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMalformedContent is returned for any generative output that fails
// validation. Callers fall back to MakeBrief.
var ErrMalformedContent = errors.New("malformed pulse content")

// SurfaceType is the kind of card model-managed content asks for.
type SurfaceType string

const (
	SurfaceCoachNote    SurfaceType = "coach_note"
	SurfaceQuickCheckin SurfaceType = "quick_checkin"
	SurfaceQuestion     SurfaceType = "question"
	SurfaceAction       SurfaceType = "action"
	SurfacePlanProposal SurfaceType = "plan_proposal"
)

func (s SurfaceType) valid() bool {
	switch s {
	case SurfaceCoachNote, SurfaceQuickCheckin, SurfaceQuestion, SurfaceAction, SurfacePlanProposal:
		return true
	}
	return false
}

// PromptKind is the interactive element attached to a content snapshot.
type PromptKind string

const (
	PromptQuestion     PromptKind = "question"
	PromptAction       PromptKind = "action"
	PromptPlanProposal PromptKind = "plan_proposal"
	PromptNone         PromptKind = "none"
)

// InputMode is how a question collects its answer.
type InputMode string

const (
	InputSingleChoice   InputMode = "single_choice"
	InputMultipleChoice InputMode = "multiple_choice"
	InputSlider         InputMode = "slider"
	InputNote           InputMode = "note"
)

// Question is a model-authored check-in. Slider bounds are only read for
// InputSlider, MaxLength only for InputNote.
type Question struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	InputMode   InputMode `json:"input_mode"`
	Options     []string  `json:"options,omitempty"`
	Min         float64   `json:"min,omitempty"`
	Max         float64   `json:"max,omitempty"`
	Step        float64   `json:"step,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	MaxLength   int       `json:"max_length,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	IsRequired  bool      `json:"is_required"`
}

// PlanProposal suggests adjusting a nutrition or workout plan. Changes are
// short human-readable edits.
type PlanProposal struct {
	ID          string   `json:"id"`
	Plan        PlanKind `json:"plan"`
	Title       string   `json:"title"`
	Rationale   string   `json:"rationale"`
	Impact      string   `json:"impact"`
	Changes     []string `json:"changes"`
	ApplyLabel  string   `json:"apply_label"`
	ReviewLabel string   `json:"review_label"`
	DeferLabel  string   `json:"defer_label"`
}

const maxPlanChanges = 3

// ContentPrompt carries exactly the payload that matches Kind.
type ContentPrompt struct {
	Kind         PromptKind        `json:"kind"`
	Question     *Question         `json:"question,omitempty"`
	Action       *DailyCoachAction `json:"action,omitempty"`
	PlanProposal *PlanProposal     `json:"plan_proposal,omitempty"`
}

// ContentSnapshot is validated model-managed content.
type ContentSnapshot struct {
	SurfaceType SurfaceType    `json:"surface_type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Prompt      *ContentPrompt `json:"prompt,omitempty"`
}

// PromptKind returns the attached prompt kind, PromptNone when there is none.
func (c ContentSnapshot) PromptKind() PromptKind {
	if c.Prompt == nil {
		return PromptNone
	}
	return c.Prompt.Kind
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedContent, fmt.Sprintf(format, args...))
}

// ParseContent decodes and validates generative output. Nothing is
// partially accepted: any invalid field fails the whole snapshot.
func ParseContent(data []byte) (ContentSnapshot, error) {
	var snap ContentSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ContentSnapshot{}, malformed("decode: %v", err)
	}

	snap.Title = strings.TrimSpace(snap.Title)
	snap.Message = strings.TrimSpace(snap.Message)
	if snap.Title == "" {
		return ContentSnapshot{}, malformed("title is empty")
	}
	if snap.Message == "" {
		return ContentSnapshot{}, malformed("message is empty")
	}

	if snap.Prompt != nil {
		if err := validatePrompt(snap.Prompt); err != nil {
			return ContentSnapshot{}, err
		}
		if snap.Prompt.Kind == PromptNone {
			snap.Prompt = nil
		}
	}

	if snap.SurfaceType == "" {
		snap.SurfaceType = surfaceForPrompt(snap.PromptKind())
	}
	if !snap.SurfaceType.valid() {
		return ContentSnapshot{}, malformed("surface_type %q is not recognized", snap.SurfaceType)
	}
	return snap, nil
}

func surfaceForPrompt(kind PromptKind) SurfaceType {
	switch kind {
	case PromptQuestion:
		return SurfaceQuestion
	case PromptAction:
		return SurfaceAction
	case PromptPlanProposal:
		return SurfacePlanProposal
	}
	return SurfaceCoachNote
}

func validatePrompt(p *ContentPrompt) error {
	switch p.Kind {
	case PromptNone:
		return nil
	case PromptQuestion:
		if p.Question == nil {
			return malformed("prompt.question is missing")
		}
		return validateQuestion(p.Question)
	case PromptAction:
		if p.Action == nil {
			return malformed("prompt.action is missing")
		}
		if !p.Action.Kind.Valid() {
			return malformed("prompt.action.kind %q is not recognized", p.Action.Kind)
		}
		if strings.TrimSpace(p.Action.Title) == "" {
			return malformed("prompt.action.title is empty")
		}
		return nil
	case PromptPlanProposal:
		if p.PlanProposal == nil {
			return malformed("prompt.plan_proposal is missing")
		}
		return validateProposal(p.PlanProposal)
	}
	return malformed("prompt.kind %q is not recognized", p.Kind)
}

func validateQuestion(q *Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return malformed("question.prompt is empty")
	}
	if utf8.RuneCountInString(q.Placeholder) > MaxPlaceholderLength {
		return malformed("question.placeholder exceeds %d characters", MaxPlaceholderLength)
	}
	switch q.InputMode {
	case InputSingleChoice, InputMultipleChoice:
		if len(q.Options) < 2 {
			return malformed("question.options needs at least 2 entries, got %d", len(q.Options))
		}
		for i, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				return malformed("question.options[%d] is empty", i)
			}
		}
	case InputSlider:
		if q.Max <= q.Min {
			return malformed("question slider max %v must exceed min %v", q.Max, q.Min)
		}
		if q.Step <= 0 {
			return malformed("question slider step must be positive")
		}
	case InputNote:
		if q.MaxLength == 0 {
			q.MaxLength = NoteMaxLength
		}
		if q.MaxLength < 0 || q.MaxLength > NoteMaxLength {
			return malformed("question.max_length must be 1 to %d, got %d", NoteMaxLength, q.MaxLength)
		}
	default:
		return malformed("question.input_mode %q is not recognized", q.InputMode)
	}
	return nil
}

func validateProposal(p *PlanProposal) error {
	if p.Plan != PlanNutrition && p.Plan != PlanWorkout {
		return malformed("plan_proposal.plan %q is not recognized", p.Plan)
	}
	required := []struct{ name, value string }{
		{"title", p.Title},
		{"impact", p.Impact},
		{"apply_label", p.ApplyLabel},
		{"review_label", p.ReviewLabel},
		{"defer_label", p.DeferLabel},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return malformed("plan_proposal.%s is empty", f.name)
		}
	}
	if len(p.Changes) == 0 || len(p.Changes) > maxPlanChanges {
		return malformed("plan_proposal.changes must have 1 to %d entries, got %d", maxPlanChanges, len(p.Changes))
	}
	for i, c := range p.Changes {
		if strings.TrimSpace(c) == "" {
			return malformed("plan_proposal.changes[%d] is empty", i)
		}
	}
	return nil
}

// ContentFromBrief renders the deterministic brief in the content shape so
// callers have one output type on both paths.
func ContentFromBrief(b Brief) ContentSnapshot {
	snap := ContentSnapshot{
		SurfaceType: SurfaceCoachNote,
		Title:       b.Title,
		Message:     b.Message,
	}
	if q := b.Question; q != nil {
		snap.SurfaceType = SurfaceQuickCheckin
		snap.Prompt = &ContentPrompt{
			Kind: PromptQuestion,
			Question: &Question{
				ID:          q.ID,
				Prompt:      q.Prompt,
				InputMode:   q.InputMode,
				Options:     q.Options,
				MaxLength:   q.MaxLength,
				Placeholder: q.Placeholder,
			},
		}
	}
	return snap
}
