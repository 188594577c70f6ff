package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuntasinaja/notify/internal/push"
)

// PGStore is the Postgres-backed Store. All statements are prepared on
// connect (see internal/db); this type only binds parameters and scans.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a connection pool as a Store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) DeadlineCandidates(ctx context.Context, now time.Time) ([]WorkItem, error) {
	rows, err := s.pool.Query(ctx, "deadline_candidates", now)
	if err != nil {
		return nil, fmt.Errorf("deadline candidates: %w", err)
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (s *PGStore) ScheduleEntries(ctx context.Context, weekday time.Weekday) ([]ScheduleEntry, error) {
	rows, err := s.pool.Query(ctx, "schedule_entries", int(weekday))
	if err != nil {
		return nil, fmt.Errorf("schedule entries: %w", err)
	}
	defer rows.Close()

	var entries []ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		var wd int
		if err := rows.Scan(&e.ClassID, &wd, &e.Subject); err != nil {
			return nil, fmt.Errorf("scan schedule entry: %w", err)
		}
		e.Weekday = time.Weekday(wd)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PGStore) ClassItemsCreatedBetween(ctx context.Context, classID string, from, to time.Time) ([]WorkItem, error) {
	rows, err := s.pool.Query(ctx, "class_items_created_between", classID, from, to)
	if err != nil {
		return nil, fmt.Errorf("class items created between: %w", err)
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (s *PGStore) ClassItemsDueBetween(ctx context.Context, classID string, from, to time.Time) ([]WorkItem, error) {
	rows, err := s.pool.Query(ctx, "class_items_due_between", classID, from, to)
	if err != nil {
		return nil, fmt.Errorf("class items due between: %w", err)
	}
	defer rows.Close()
	return scanWorkItems(rows)
}

func (s *PGStore) ClassMembers(ctx context.Context, classID string) ([]Member, error) {
	rows, err := s.pool.Query(ctx, "class_members", classID)
	if err != nil {
		return nil, fmt.Errorf("class members: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (s *PGStore) MembersWithReminderTime(ctx context.Context) ([]Member, error) {
	rows, err := s.pool.Query(ctx, "members_with_reminder_time")
	if err != nil {
		return nil, fmt.Errorf("members with reminder time: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (s *PGStore) CompletionMarks(ctx context.Context, userIDs, itemIDs []string) (map[string]map[string]bool, error) {
	marks := make(map[string]map[string]bool)
	if len(userIDs) == 0 || len(itemIDs) == 0 {
		return marks, nil
	}
	rows, err := s.pool.Query(ctx, "completion_marks", userIDs, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("completion marks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, itemID string
		if err := rows.Scan(&userID, &itemID); err != nil {
			return nil, fmt.Errorf("scan completion mark: %w", err)
		}
		if marks[userID] == nil {
			marks[userID] = make(map[string]bool)
		}
		marks[userID][itemID] = true
	}
	return marks, rows.Err()
}

func (s *PGStore) Endpoints(ctx context.Context, userIDs []string) ([]Endpoint, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, "endpoints_for_users", userIDs)
	if err != nil {
		return nil, fmt.Errorf("endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []Endpoint
	for rows.Next() {
		var e Endpoint
		var channel string
		if err := rows.Scan(&e.ID, &e.UserID, &channel, &e.Token, &e.Endpoint, &e.P256dh, &e.Auth); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		e.Channel = push.Channel(channel)
		endpoints = append(endpoints, e)
	}
	return endpoints, rows.Err()
}

func (s *PGStore) DeleteEndpoints(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, "delete_endpoints", ids)
	if err != nil {
		return 0, fmt.Errorf("delete endpoints: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --------------------------------------------------------------------------
// Ledger
// --------------------------------------------------------------------------

// PGLedger is the Postgres dedup ledger. The unique constraint on
// (item_id, threshold) makes check-then-mark safe even if the external
// scheduler overlaps two invocations.
type PGLedger struct {
	pool *pgxpool.Pool
}

// NewPGLedger wraps a connection pool as a Ledger.
func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool}
}

func (l *PGLedger) HasFired(ctx context.Context, itemID string, threshold Threshold) (bool, error) {
	var fired bool
	if err := l.pool.QueryRow(ctx, "ledger_has_fired", itemID, threshold.String()).Scan(&fired); err != nil {
		return false, fmt.Errorf("ledger has fired: %w", err)
	}
	return fired, nil
}

func (l *PGLedger) MarkFired(ctx context.Context, itemID string, threshold Threshold) error {
	if _, err := l.pool.Exec(ctx, "ledger_mark_fired", itemID, threshold.String()); err != nil {
		return fmt.Errorf("ledger mark fired: %w", err)
	}
	return nil
}

// Purge removes ledger entries whose deadline elapsed past the retention
// margin. No future threshold can fire for them, so this loses nothing.
func (l *PGLedger) Purge(ctx context.Context) (int, error) {
	tag, err := l.pool.Exec(ctx, "ledger_purge")
	if err != nil {
		return 0, fmt.Errorf("ledger purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --------------------------------------------------------------------------
// Scan helpers
// --------------------------------------------------------------------------

type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanWorkItems(rows pgRows) ([]WorkItem, error) {
	var items []WorkItem
	for rows.Next() {
		var it WorkItem
		if err := rows.Scan(&it.ID, &it.ClassID, &it.Title, &it.ParentID, &it.Deadline, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanMembers(rows pgRows) ([]Member, error) {
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.ClassID, &m.PushEnabled, &m.DeadlineReminder,
			&m.ScheduleReminder, &m.SoundEnabled, &m.ReminderTime, &m.DNDStart, &m.DNDEnd); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
