package dispatch

import (
	"context"
	"sync"
	"time"
)

// Ledger is the idempotency record preventing a (work item, threshold) pair
// from being announced twice. MarkFired must only be called after a send
// attempt completed with at least one success: a failed send stays unmarked
// so the next tick inside the window retries it.
//
// Implementations must make the check-then-mark sequence safe under
// concurrent invocations (the Postgres ledger relies on a unique constraint).
type Ledger interface {
	HasFired(ctx context.Context, itemID string, threshold Threshold) (bool, error)
	MarkFired(ctx context.Context, itemID string, threshold Threshold) error
}

// MemoryLedger is an in-process Ledger. Suitable for tests and single-node
// deployments where the external scheduler guarantees non-overlapping runs;
// entries do not survive a restart.
type MemoryLedger struct {
	mu      sync.Mutex
	fired   map[string]time.Time
	maxAge  time.Duration
	nowFunc func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		fired:   make(map[string]time.Time),
		maxAge:  ledgerRetention,
		nowFunc: time.Now,
	}
}

func ledgerKey(itemID string, threshold Threshold) string {
	return itemID + "-" + threshold.String()
}

// HasFired reports whether the pair was already announced.
func (l *MemoryLedger) HasFired(_ context.Context, itemID string, threshold Threshold) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.fired[ledgerKey(itemID, threshold)]
	return ok, nil
}

// MarkFired records a successful dispatch for the pair.
func (l *MemoryLedger) MarkFired(_ context.Context, itemID string, threshold Threshold) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fired[ledgerKey(itemID, threshold)] = l.nowFunc()
	return nil
}

// Purge drops entries older than the retention margin and returns how many
// were removed.
func (l *MemoryLedger) Purge(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.nowFunc().Add(-l.maxAge)
	removed := 0
	for k, at := range l.fired {
		if at.Before(cutoff) {
			delete(l.fired, k)
			removed++
		}
	}
	return removed, nil
}
