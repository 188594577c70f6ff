package dispatch

import (
	"time"

	"github.com/tuntasinaja/notify/internal/clock"
)

// EvaluateDeadline classifies which notification threshold, if any, the
// deadline is currently inside. A nil or elapsed deadline yields
// ThresholdNone, as does a remaining time outside every window.
//
// Windows are checked nearest-first so overlapping bounds can never
// misclassify (they do not overlap with the current constants, but the
// order makes the intent explicit).
func EvaluateDeadline(deadline *time.Time, now time.Time) Threshold {
	if deadline == nil {
		return ThresholdNone
	}
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return ThresholdNone
	}

	switch {
	case remaining > oneHourLow && remaining <= oneHourHigh:
		return ThresholdOneHour
	case remaining > sixHourLow && remaining <= sixHourHigh:
		return ThresholdSixHour
	case remaining > oneDayLow && remaining <= oneDayHigh:
		return ThresholdOneDay
	default:
		return ThresholdNone
	}
}

// ScheduleDue reports whether tomorrow (one civil day after now) falls on a
// weekday with at least one schedule entry for the class. Day-granularity:
// the trigger cadence decides the hour, not this check.
func ScheduleDue(entries []ScheduleEntry, classID string, now time.Time) bool {
	tomorrow := clock.Tomorrow(now).Weekday()
	for _, e := range entries {
		if e.ClassID == classID && e.Weekday == tomorrow {
			return true
		}
	}
	return false
}
