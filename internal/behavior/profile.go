package behavior

import (
	"math"
	"sort"
	"time"
)

const (
	DefaultWindowDays    = 45
	DefaultMinimumEvents = 3
	DefaultMaxLabels     = 2

	// NeighborHourWeight discounts events logged one hour either side of
	// the queried hour.
	NeighborHourWeight = 0.35
)

// Snapshot is the derived, read-only profile over a rolling window.
// For every key, ActionCounts[key] equals the sum of ActionHourlyCounts[key].
type Snapshot struct {
	ActionCounts       map[ActionKey]int         `json:"action_counts"`
	ActionHourlyCounts map[ActionKey]map[int]int `json:"action_hourly_counts"`
	LastActionAt       map[ActionKey]time.Time   `json:"last_action_at"`
}

// BuildProfile aggregates events that fall within the last windowDays
// calendar days ending at now (inclusive on both ends). Dismissed events
// and events without an action key are ignored. Hours and days are taken
// in now's location.
func BuildProfile(now time.Time, events []Event, windowDays int) Snapshot {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	snap := Snapshot{
		ActionCounts:       make(map[ActionKey]int),
		ActionHourlyCounts: make(map[ActionKey]map[int]int),
		LastActionAt:       make(map[ActionKey]time.Time),
	}

	windowStart := StartOfDay(now).AddDate(0, 0, -(windowDays - 1))

	for _, ev := range events {
		if ev.ActionKey == "" || ev.Outcome == OutcomeDismissed {
			continue
		}
		if ev.OccurredAt.Before(windowStart) || ev.OccurredAt.After(now) {
			continue
		}

		key := ev.ActionKey
		snap.ActionCounts[key]++

		hourly, ok := snap.ActionHourlyCounts[key]
		if !ok {
			hourly = make(map[int]int)
			snap.ActionHourlyCounts[key] = hourly
		}
		hourly[ev.OccurredAt.In(now.Location()).Hour()]++

		if last, ok := snap.LastActionAt[key]; !ok || ev.OccurredAt.After(last) {
			snap.LastActionAt[key] = ev.OccurredAt
		}
	}

	return snap
}

// IsEmpty reports whether no action was retained.
func (s Snapshot) IsEmpty() bool {
	return len(s.ActionCounts) == 0
}

// DaysSinceLastAction returns the calendar-day distance between the last
// occurrence of key and now. Future timestamps clamp to 0. The second
// return value is false when key never occurred.
func (s Snapshot) DaysSinceLastAction(key ActionKey, now time.Time) (int, bool) {
	last, ok := s.LastActionAt[key]
	if !ok {
		return 0, false
	}
	days := DaysBetween(last, now)
	if days < 0 {
		days = 0
	}
	return days, true
}

// HourlyPreferenceScore measures how concentrated key's history is around
// hour. It returns 0 below minimumEvents total occurrences.
func (s Snapshot) HourlyPreferenceScore(key ActionKey, hour, minimumEvents int) float64 {
	total := s.ActionCounts[key]
	if total <= 0 || total < minimumEvents {
		return 0
	}
	hourly := s.ActionHourlyCounts[key]
	h := wrapHour(hour)

	exactWeight := float64(hourly[h]) / float64(total)
	neighborWeight := float64(hourly[wrapHour(h-1)]+hourly[wrapHour(h+1)]) / float64(total)

	return clamp01(exactWeight + NeighborHourWeight*neighborWeight)
}

// LikelyTimeLabels returns up to maxLabels day-part labels where key is
// most often performed, ordered by count desc then label asc.
func (s Snapshot) LikelyTimeLabels(key ActionKey, maxLabels, minimumEvents int) []string {
	total := s.ActionCounts[key]
	if total <= 0 || total < minimumEvents || maxLabels <= 0 {
		return []string{}
	}

	byLabel := make(map[string]int)
	for hour, count := range s.ActionHourlyCounts[key] {
		if count == 0 {
			continue
		}
		byLabel[DayPartLabel(hour)] += count
	}

	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if byLabel[labels[i]] != byLabel[labels[j]] {
			return byLabel[labels[i]] > byLabel[labels[j]]
		}
		return labels[i] < labels[j]
	})

	if len(labels) > maxLabels {
		labels = labels[:maxLabels]
	}
	return labels
}

// DayPartLabel maps an hour of day onto one of six fixed labels.
func DayPartLabel(hour int) string {
	switch h := wrapHour(hour); {
	case h < 4:
		return "Late night (12-4 AM)"
	case h < 9:
		return "Morning (4-9 AM)"
	case h < 12:
		return "Late morning (9 AM-12 PM)"
	case h < 16:
		return "Afternoon (12-4 PM)"
	case h < 20:
		return "Evening (4-8 PM)"
	default:
		return "Night (8 PM-12 AM)"
	}
}

func wrapHour(h int) int {
	return ((h % 24) + 24) % 24
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
