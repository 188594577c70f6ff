package dispatch

import (
	"context"
	"time"

	"github.com/tuntasinaja/notify/internal/push"
)

// Endpoint is one delivery address owned by a user: an FCM device token or a
// Web Push subscription, discriminated by Channel. The engine only ever
// deletes endpoints, and only when a channel reports them permanently dead.
type Endpoint struct {
	ID       string
	UserID   string
	Channel  push.Channel
	Token    string
	Endpoint string
	P256dh   string
	Auth     string
}

// Target converts the endpoint to a channel send target.
func (e Endpoint) Target() push.Target {
	return push.Target{
		ID:       e.ID,
		Token:    e.Token,
		Endpoint: e.Endpoint,
		P256dh:   e.P256dh,
		Auth:     e.Auth,
	}
}

// Store is the engine's view of persisted state. Everything is read-only
// except DeleteEndpoints. Implementations must be safe for concurrent use
// by the per-class workers.
type Store interface {
	// DeadlineCandidates returns all work items whose deadline is set and
	// still in the future at now.
	DeadlineCandidates(ctx context.Context, now time.Time) ([]WorkItem, error)

	// ScheduleEntries returns all weekly schedule entries for a weekday.
	ScheduleEntries(ctx context.Context, weekday time.Weekday) ([]ScheduleEntry, error)

	// ClassItemsCreatedBetween returns a class's items created in [from, to),
	// used to match unfinished work against tomorrow's subjects.
	ClassItemsCreatedBetween(ctx context.Context, classID string, from, to time.Time) ([]WorkItem, error)

	// ClassItemsDueBetween returns a class's items with a deadline inside
	// [from, to], used for personal reminders.
	ClassItemsDueBetween(ctx context.Context, classID string, from, to time.Time) ([]WorkItem, error)

	// ClassMembers returns every membership row for a class.
	ClassMembers(ctx context.Context, classID string) ([]Member, error)

	// MembersWithReminderTime returns members across all classes that have
	// deadline reminders enabled and a reminder time of day configured.
	MembersWithReminderTime(ctx context.Context) ([]Member, error)

	// CompletionMarks reports, per user, which of the given items they have
	// completed. Keyed user → item → true.
	CompletionMarks(ctx context.Context, userIDs, itemIDs []string) (map[string]map[string]bool, error)

	// Endpoints returns all device endpoints owned by the given users.
	Endpoints(ctx context.Context, userIDs []string) ([]Endpoint, error)

	// DeleteEndpoints removes endpoints reported permanently invalid by a
	// channel. Idempotent; returns the number of rows removed.
	DeleteEndpoints(ctx context.Context, ids []string) (int, error)
}
