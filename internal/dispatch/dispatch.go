// Package dispatch is the deadline and schedule notification engine.
//
// Pipeline per invocation: load candidate items → evaluate thresholds →
// check dedup ledger → resolve audience → build messages → send via push
// channels → mark ledger → delete invalid endpoints.
//
// Each run is stateless; the only persistence is the dedup ledger and the
// delete-only writes to device endpoints. An external scheduler triggers
// runs on a fixed cadence, so failed sends are retried naturally on the
// next tick as long as the threshold window is still open.
package dispatch

import "time"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// Threshold windows, measured as time remaining until the deadline.
	// Each window is wider than the trigger cadence (30 min) so a crossing
	// is observed at least once, and narrow enough that it is not observed
	// on two consecutive ticks.
	oneDayLow  = 23*time.Hour + 30*time.Minute
	oneDayHigh = 24*time.Hour + 30*time.Minute

	sixHourLow  = 5*time.Hour + 30*time.Minute
	sixHourHigh = 6*time.Hour + 30*time.Minute

	oneHourLow  = 30 * time.Minute
	oneHourHigh = 1*time.Hour + 30*time.Minute

	// Personal reminders fire when the civil time of day is within this
	// many minutes of the user's configured reminder time.
	reminderMatchWindow = 30

	// Ledger entries are purged once the deadline has passed by this
	// margin; no threshold can fire for an elapsed deadline.
	ledgerRetention = 48 * time.Hour

	// Upper bound on item titles enumerated in a message body; the rest
	// are summarized as a count.
	maxTitlesPerMessage = 3

	defaultWorkers = 4
)

// --------------------------------------------------------------------------
// Threshold kinds
// --------------------------------------------------------------------------

// Threshold identifies a proximity-to-deadline bucket. Each (item, threshold)
// pair is announced at most once via the dedup ledger.
type Threshold int

const (
	ThresholdNone Threshold = iota
	ThresholdOneDay
	ThresholdSixHour
	ThresholdOneHour
)

// String returns the ledger key fragment for the threshold.
func (t Threshold) String() string {
	switch t {
	case ThresholdOneDay:
		return "1day"
	case ThresholdSixHour:
		return "6hours"
	case ThresholdOneHour:
		return "1hour"
	default:
		return "none"
	}
}

// DetailLevel selects between the two schedule-reminder variants: a per-class
// summary or a body that calls out unfinished work matching tomorrow's
// subjects.
type DetailLevel int

const (
	LevelSummary DetailLevel = iota
	LevelDetailed
)

// --------------------------------------------------------------------------
// Domain types (read-only to this engine except DeviceEndpoint deletes)
// --------------------------------------------------------------------------

// WorkItem is a unit of schoolwork: a top-level task or a sub-task.
type WorkItem struct {
	ID        string
	ClassID   string
	Title     string
	ParentID  string // empty for top-level tasks
	Deadline  *time.Time
	CreatedAt time.Time
}

// IsSubTask reports whether the item is a sub-task of another item.
func (w WorkItem) IsSubTask() bool { return w.ParentID != "" }

// Member maps a user to a class plus their notification preferences.
// Times of day are civil "HH:MM" strings; empty means unset.
type Member struct {
	UserID           string
	ClassID          string
	PushEnabled      bool
	DeadlineReminder bool
	ScheduleReminder bool
	SoundEnabled     bool
	ReminderTime     string
	DNDStart         string
	DNDEnd           string
}

// ScheduleEntry maps a class and weekday to a subject taught that day.
type ScheduleEntry struct {
	ClassID string
	Weekday time.Weekday
	Subject string
}

// Summary aggregates the outcome of one orchestrator invocation.
type Summary struct {
	Sent             int
	Failed           int
	ClassesProcessed int
	LedgerMarked     int
	EndpointsDeleted int
	Errors           []string
}
