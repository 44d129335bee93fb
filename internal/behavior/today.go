package behavior

import "time"

// DayOutcome summarizes what happened to one action key on a single day.
type DayOutcome struct {
	Opened    bool
	Completed bool
}

// TodayOutcomes collects, per action key, whether it was opened or
// performed on now's calendar day. Dismissals are ignored.
func TodayOutcomes(events []Event, now time.Time) map[ActionKey]DayOutcome {
	out := make(map[ActionKey]DayOutcome)
	start := StartOfDay(now)
	for _, ev := range events {
		if ev.ActionKey == "" || ev.OccurredAt.Before(start) || ev.OccurredAt.After(now) {
			continue
		}
		o := out[ev.ActionKey]
		switch ev.Outcome {
		case OutcomeOpened:
			o.Opened = true
		case OutcomePerformed:
			o.Completed = true
		default:
			continue
		}
		out[ev.ActionKey] = o
	}
	return out
}
