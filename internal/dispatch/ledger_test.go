package dispatch

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLedgerMarkAndCheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemoryLedger()

	fired, err := l.HasFired(ctx, "i1", ThresholdOneDay)
	if err != nil {
		t.Fatalf("HasFired error: %v", err)
	}
	if fired {
		t.Fatal("fresh ledger should have no entries")
	}

	if err := l.MarkFired(ctx, "i1", ThresholdOneDay); err != nil {
		t.Fatalf("MarkFired error: %v", err)
	}

	fired, _ = l.HasFired(ctx, "i1", ThresholdOneDay)
	if !fired {
		t.Fatal("marked pair should report fired")
	}

	// Other thresholds of the same item are independent.
	fired, _ = l.HasFired(ctx, "i1", ThresholdSixHour)
	if fired {
		t.Fatal("6hours threshold must be independent of 1day")
	}
	fired, _ = l.HasFired(ctx, "i2", ThresholdOneDay)
	if fired {
		t.Fatal("other items must be unaffected")
	}
}

func TestMemoryLedgerPurge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemoryLedger()

	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }
	_ = l.MarkFired(ctx, "old", ThresholdOneDay)

	now = now.Add(ledgerRetention + time.Hour)
	_ = l.MarkFired(ctx, "recent", ThresholdOneDay)

	removed, err := l.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Purge removed %d, want 1", removed)
	}

	fired, _ := l.HasFired(ctx, "old", ThresholdOneDay)
	if fired {
		t.Fatal("purged entry should be gone")
	}
	fired, _ = l.HasFired(ctx, "recent", ThresholdOneDay)
	if !fired {
		t.Fatal("recent entry must survive the purge")
	}
}
