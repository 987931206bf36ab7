package dedup

import (
	"context"
	"testing"
	"time"
)

func TestPairKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	if PairKey(12, 7) != PairKey(7, 12) {
		t.Fatalf("expected order independent pair key")
	}
	if got := PairKey(7, 12); got != "7:12" {
		t.Fatalf("unexpected pair key: %q", got)
	}
}

func TestPurgeStalePairs(t *testing.T) {
	t.Parallel()

	cutoff := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	progress := NewScanProgress()
	progress.AnalyzedPairs["1:2"] = PairAnalysis{AnalyzedAt: cutoff.AddDate(0, 0, -10)}
	progress.AnalyzedPairs["1:3"] = PairAnalysis{AnalyzedAt: cutoff.AddDate(0, 0, 10)}
	progress.AnalyzedPairs["2:3"] = PairAnalysis{AnalyzedAt: cutoff}

	purged := progress.PurgeStalePairs(cutoff)
	if purged != 1 {
		t.Fatalf("expected 1 purged pair, got %d", purged)
	}
	if _, ok := progress.AnalyzedPairs["1:2"]; ok {
		t.Fatalf("expected stale pair to be removed")
	}
	if len(progress.AnalyzedPairs) != 2 {
		t.Fatalf("expected 2 remaining pairs, got %d", len(progress.AnalyzedPairs))
	}
}

func TestProgressTracker_LoadDefault(t *testing.T) {
	t.Parallel()

	tracker := NewProgressTracker(newFakeStateStore(), "test-agent")
	progress, err := tracker.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if progress.LastProcessedEventID != 0 {
		t.Fatalf("expected zero cursor on first load, got %d", progress.LastProcessedEventID)
	}
	if progress.AnalyzedPairs == nil {
		t.Fatalf("expected initialized pair map")
	}
}

func TestProgressTracker_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := NewProgressTracker(newFakeStateStore(), "test-agent")

	progress := NewScanProgress()
	progress.LastProcessedEventID = 42
	progress.TotalEventsAnalyzed = 100
	progress.AnalyzedPairs["1:2"] = PairAnalysis{
		AnalyzedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Score:      0.81,
	}

	if err := tracker.Save(ctx, progress); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	loaded, err := tracker.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if loaded.LastProcessedEventID != 42 {
		t.Fatalf("unexpected cursor: got %d want 42", loaded.LastProcessedEventID)
	}
	if loaded.TotalEventsAnalyzed != 100 {
		t.Fatalf("unexpected analyzed total: got %d want 100", loaded.TotalEventsAnalyzed)
	}
	pair, ok := loaded.AnalyzedPairs["1:2"]
	if !ok {
		t.Fatalf("expected memoized pair to survive the round trip")
	}
	if pair.Score != 0.81 {
		t.Fatalf("unexpected pair score: got %f want 0.81", pair.Score)
	}
}
