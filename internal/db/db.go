// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuntasinaja/notify/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers every statement the dispatch engine
// uses. Prepared statements eliminate parse overhead on every invocation.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Candidate loading (read-only)
		"deadline_candidates": `
			SELECT id, class_id, title, COALESCE(parent_id, ''), deadline, created_at
			FROM work_items
			WHERE deadline IS NOT NULL AND deadline >= $1`,
		"schedule_entries": `
			SELECT class_id, weekday, subject
			FROM weekly_schedule
			WHERE weekday = $1`,
		"class_items_created_between": `
			SELECT id, class_id, title, COALESCE(parent_id, ''), deadline, created_at
			FROM work_items
			WHERE class_id = $1 AND created_at >= $2 AND created_at < $3`,
		"class_items_due_between": `
			SELECT id, class_id, title, COALESCE(parent_id, ''), deadline, created_at
			FROM work_items
			WHERE class_id = $1 AND deadline IS NOT NULL
			  AND deadline >= $2 AND deadline <= $3`,

		// Audience (read-only)
		"class_members": `
			SELECT user_id, class_id, push_enabled, deadline_reminder,
			       schedule_reminder, sound_enabled,
			       COALESCE(reminder_time, ''), COALESCE(dnd_start, ''), COALESCE(dnd_end, '')
			FROM class_members
			WHERE class_id = $1`,
		"members_with_reminder_time": `
			SELECT user_id, class_id, push_enabled, deadline_reminder,
			       schedule_reminder, sound_enabled,
			       COALESCE(reminder_time, ''), COALESCE(dnd_start, ''), COALESCE(dnd_end, '')
			FROM class_members
			WHERE deadline_reminder = true AND reminder_time IS NOT NULL`,
		"completion_marks": `
			SELECT user_id, item_id
			FROM completion_marks
			WHERE user_id = ANY($1) AND item_id = ANY($2)`,

		// Device endpoints (read + delete-only write)
		"endpoints_for_users": `
			SELECT id, user_id, channel,
			       COALESCE(token, ''), COALESCE(endpoint, ''),
			       COALESCE(p256dh, ''), COALESCE(auth, '')
			FROM device_endpoints
			WHERE user_id = ANY($1)`,
		"delete_endpoints": `
			DELETE FROM device_endpoints WHERE id = ANY($1)`,

		// Dedup ledger (insert-only + purge); the unique constraint on
		// (item_id, threshold) makes concurrent marking idempotent.
		"ledger_has_fired": `
			SELECT EXISTS (
				SELECT 1 FROM dispatch_ledger
				WHERE item_id = $1 AND threshold = $2)`,
		"ledger_mark_fired": `
			INSERT INTO dispatch_ledger (item_id, threshold, fired_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (item_id, threshold) DO NOTHING`,
		"ledger_purge": `
			DELETE FROM dispatch_ledger l
			USING work_items w
			WHERE w.id = l.item_id
			  AND w.deadline IS NOT NULL
			  AND w.deadline < NOW() - INTERVAL '48 hours'`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
