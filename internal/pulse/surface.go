package pulse

import (
	"fmt"
	"time"
)

// SurfaceLayout tells the presentation layer how loud to be.
type SurfaceLayout string

const (
	LayoutCinematic      SurfaceLayout = "cinematic"
	LayoutConversational SurfaceLayout = "conversational"
	LayoutCompact        SurfaceLayout = "compact"
)

// ActionSpec is one rendered button.
type ActionSpec struct {
	Role   string           `json:"role"`
	Action DailyCoachAction `json:"action"`
}

// SurfaceSpec is the fully resolved dashboard card.
type SurfaceSpec struct {
	Layout          SurfaceLayout   `json:"layout"`
	Header          string          `json:"header"`
	Title           string          `json:"title"`
	Message         string          `json:"message"`
	Reasons         []string        `json:"reasons"`
	Actions         []ActionSpec    `json:"actions"`
	Question        *FollowUp       `json:"question,omitempty"`
	ConfidenceLabel ConfidenceLabel `json:"confidence_label"`
}

// Compose maps a recommendation onto a surface. It always emits exactly two
// actions.
func Compose(rec DailyCoachRecommendation, now time.Time, recentAnswer *Answer) SurfaceSpec {
	layout := LayoutCompact
	switch {
	case rec.Phase == PhaseAtRisk || rec.Phase == PhaseRescue:
		layout = LayoutCinematic
	case recentAnswer != nil:
		layout = LayoutConversational
	}

	maxReasons := 2
	if layout == LayoutCompact {
		maxReasons = 1
	}
	reasons := append([]string{}, rec.Reasons...)
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}

	return SurfaceSpec{
		Layout:  layout,
		Header:  fmt.Sprintf("%s · %s", timeOfDayLabel(now.Hour()), rec.Phase.Label()),
		Title:   rec.Title,
		Message: rec.Message,
		Reasons: reasons,
		Actions: []ActionSpec{
			{Role: "primary", Action: rec.PrimaryAction},
			{Role: "secondary", Action: rec.SecondaryAction},
		},
		Question:        rec.Question,
		ConfidenceLabel: rec.ConfidenceLabel,
	}
}

func timeOfDayLabel(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 17:
		return "Afternoon"
	case hour >= 17 && hour < 21:
		return "Evening"
	case hour >= 21:
		return "Tonight"
	}
	return "Late night"
}
