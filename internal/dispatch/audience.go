package dispatch

import (
	"strings"
	"time"

	"github.com/tuntasinaja/notify/internal/clock"
)

// Kind selects which preference toggle gates a notification.
type Kind int

const (
	KindDeadline Kind = iota
	KindSchedule
)

// EligibleMembers filters class members down to those whose preferences allow
// the given notification kind and who are not inside their do-not-disturb
// window at the current civil time.
func EligibleMembers(members []Member, kind Kind, now time.Time) []Member {
	var out []Member
	for _, m := range members {
		if !m.PushEnabled {
			continue
		}
		switch kind {
		case KindDeadline:
			if !m.DeadlineReminder {
				continue
			}
		case KindSchedule:
			if !m.ScheduleReminder {
				continue
			}
		}
		if inDNDWindow(m, now) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// inDNDWindow reports whether the member's civil time of day falls inside
// their configured do-not-disturb window. Windows that wrap across midnight
// (22:00–06:00) are supported; both ends are inclusive. Malformed or missing
// bounds disable the window.
func inDNDWindow(m Member, now time.Time) bool {
	if m.DNDStart == "" || m.DNDEnd == "" {
		return false
	}
	start, err := clock.ParseTimeOfDay(m.DNDStart)
	if err != nil {
		return false
	}
	end, err := clock.ParseTimeOfDay(m.DNDEnd)
	if err != nil {
		return false
	}
	cur := clock.MinuteOfDay(now)

	if start > end {
		// wraps midnight
		return cur >= start || cur <= end
	}
	return cur >= start && cur <= end
}

// ResolveUncompleted maps each member to the subset of candidate items they
// have not completed yet. Members with nothing left are dropped entirely —
// the engine never sends "all done" messages.
//
// marks is keyed user → item → completed.
func ResolveUncompleted(members []Member, candidates []WorkItem, marks map[string]map[string]bool) map[string][]WorkItem {
	out := make(map[string][]WorkItem, len(members))
	for _, m := range members {
		done := marks[m.UserID]
		var remaining []WorkItem
		for _, it := range candidates {
			if !done[it.ID] {
				remaining = append(remaining, it)
			}
		}
		if len(remaining) > 0 {
			out[m.UserID] = remaining
		}
	}
	return out
}

// reminderDue reports whether the member's configured reminder time of day
// is within the match window of the current civil time. Members without a
// reminder time never match.
func reminderDue(m Member, now time.Time) bool {
	if m.ReminderTime == "" {
		return false
	}
	want, err := clock.ParseTimeOfDay(m.ReminderTime)
	if err != nil {
		return false
	}
	diff := clock.MinuteOfDay(now) - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= reminderMatchWindow
}

// MatchesSubject reports whether an item title mentions one of the subjects.
// Case-insensitive substring match with no word-boundary check: the data
// model carries no subject reference on work items, so the title is the only
// link between a task and tomorrow's timetable. A short subject name
// contained in an unrelated title will false-positive; accepted as a known
// approximation.
func MatchesSubject(title string, subjects []string) bool {
	upper := strings.ToUpper(title)
	for _, s := range subjects {
		if s != "" && strings.Contains(upper, strings.ToUpper(s)) {
			return true
		}
	}
	return false
}
