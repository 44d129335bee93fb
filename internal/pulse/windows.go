package pulse

// TimeWindow is one of six fixed day-part buckets. Workouts and meals share
// the bucket names but use slightly different hour boundaries.
type TimeWindow string

const (
	WindowEarlyMorning TimeWindow = "early_morning"
	WindowMorning      TimeWindow = "morning"
	WindowMidday       TimeWindow = "midday"
	WindowAfternoon    TimeWindow = "afternoon"
	WindowEvening      TimeWindow = "evening"
	WindowNight        TimeWindow = "night"
)

// AllTimeWindows is the fixed partition of the day, in chronological order.
var AllTimeWindows = []TimeWindow{
	WindowEarlyMorning,
	WindowMorning,
	WindowMidday,
	WindowAfternoon,
	WindowEvening,
	WindowNight,
}

// hourRange is [Start, End) in hours; End may be 24.
type hourRange struct {
	Start, End int
}

var workoutWindowHours = map[TimeWindow]hourRange{
	WindowEarlyMorning: {4, 7},
	WindowMorning:      {7, 11},
	WindowMidday:       {11, 14},
	WindowAfternoon:    {14, 17},
	WindowEvening:      {17, 21},
	WindowNight:        {21, 24},
}

var mealWindowHours = map[TimeWindow]hourRange{
	WindowEarlyMorning: {4, 8},
	WindowMorning:      {8, 11},
	WindowMidday:       {11, 15},
	WindowAfternoon:    {15, 18},
	WindowEvening:      {18, 22},
	WindowNight:        {22, 24},
}

// WorkoutWindowFor buckets an hour of day for workout occurrences.
func WorkoutWindowFor(hour int) TimeWindow {
	return windowFor(workoutWindowHours, hour)
}

// MealWindowFor buckets an hour of day for food-log occurrences.
func MealWindowFor(hour int) TimeWindow {
	return windowFor(mealWindowHours, hour)
}

// WorkoutWindowHours returns the [start, end) hours of a workout bucket.
// The night bucket wraps past midnight; its daytime part is reported.
func WorkoutWindowHours(w TimeWindow) (start, end int) {
	r, ok := workoutWindowHours[w]
	if !ok {
		return DefaultWorkoutWindowStart, DefaultWorkoutWindowEnd
	}
	return r.Start, r.End
}

func windowFor(table map[TimeWindow]hourRange, hour int) TimeWindow {
	h := ((hour % 24) + 24) % 24
	for _, w := range AllTimeWindows {
		r := table[w]
		if h >= r.Start && h < r.End {
			return w
		}
	}
	// Hours before the early-morning bucket belong to the previous night.
	return WindowNight
}

// Label is the human-readable name used in packet and brief copy.
func (w TimeWindow) Label() string {
	switch w {
	case WindowEarlyMorning:
		return "early morning"
	case WindowMorning:
		return "morning"
	case WindowMidday:
		return "midday"
	case WindowAfternoon:
		return "afternoon"
	case WindowEvening:
		return "evening"
	case WindowNight:
		return "night"
	}
	return string(w)
}

// strongestWindow returns the highest-scoring window; ties go to the earlier
// bucket in the day.
func strongestWindow(scores map[TimeWindow]float64) (TimeWindow, float64, bool) {
	var best TimeWindow
	bestScore := -1.0
	for _, w := range AllTimeWindows {
		if s, ok := scores[w]; ok && s > bestScore {
			best, bestScore = w, s
		}
	}
	if bestScore < 0 {
		return "", 0, false
	}
	return best, bestScore, true
}
