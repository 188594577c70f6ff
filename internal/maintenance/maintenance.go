// Package maintenance runs periodic background tasks as Go tickers.
// All scheduled housekeeping is driven from Go since the dispatcher is
// already a persistent, long-running service.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuntasinaja/notify/internal/dispatch"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	LedgerPurgeInterval   time.Duration // Dispatch ledger rows past retention
	EndpointSweepInterval time.Duration // Device endpoints with no class membership
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		LedgerPurgeInterval:   6 * time.Hour,
		EndpointSweepInterval: 0, // opt-in
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, ledger *dispatch.PGLedger, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"ledgerPurge", cfg.LedgerPurgeInterval,
		"endpointSweep", cfg.EndpointSweepInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Ledger purge: drop dedup rows whose deadlines are long past
	if cfg.LedgerPurgeInterval > 0 {
		t := time.NewTicker(cfg.LedgerPurgeInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { purgeLedger(ctx, ledger, logger) })
	}

	// Endpoint sweep: remove device endpoints for users who left all classes
	if cfg.EndpointSweepInterval > 0 {
		t := time.NewTicker(cfg.EndpointSweepInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { sweepEndpoints(ctx, pool, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

func purgeLedger(ctx context.Context, ledger *dispatch.PGLedger, logger *slog.Logger) {
	n, err := ledger.Purge(ctx)
	if err != nil {
		logger.Warn("Ledger purge: failed", "error", err)
	} else if n > 0 {
		logger.Info("Ledger purge: removed stale entries", "count", n)
	}
}

// sweepEndpoints deletes device endpoints belonging to users with no class
// membership left. Such rows can no longer receive any reminder and would
// otherwise accumulate forever.
func sweepEndpoints(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM device_endpoints de
		WHERE NOT EXISTS (
			SELECT 1 FROM class_members cm WHERE cm.user_id = de.user_id
		)`)
	if err != nil {
		logger.Warn("Endpoint sweep: failed", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Endpoint sweep: removed orphaned endpoints", "count", tag.RowsAffected())
	}
}
