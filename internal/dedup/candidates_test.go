package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"stride.fit/curator/internal/db"
	"stride.fit/curator/internal/search"
)

func TestFindCandidates_IndexFirst(t *testing.T) {
	t.Parallel()

	store := newFakeEventStore(
		makeCatalogEvent(1, "Marathon de Paris", "Paris", "FR-75", "2025", nil),
		makeCatalogEvent(2, "Paris Marathon", "Paris", "FR-75", "2025", nil),
		makeCatalogEvent(3, "Marathon du Medoc", "Pauillac", "FR-33", "2025", nil),
	)
	index := &fakeIndex{hits: []search.Hit{{EventID: 2, Name: "Paris Marathon"}}}
	retriever := NewRetriever(store, index, zerolog.Nop())

	event := summarizeEvent(store.events[1])
	candidates, err := retriever.FindCandidates(context.Background(), event, DefaultDetectionConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != 2 {
		t.Fatalf("expected index hit to be the only candidate, got %v", candidates)
	}
	if len(store.searchCalls) != 0 {
		t.Fatalf("expected no sql passes when the index answered, got %d", len(store.searchCalls))
	}
	if len(index.queries) != 1 || index.queries[0] != "marathon de paris" {
		t.Fatalf("unexpected index query: %v", index.queries)
	}
}

func TestFindCandidates_IndexFailureFallsBackToSQL(t *testing.T) {
	t.Parallel()

	paris := makeCatalogEvent(1, "Marathon de Paris", "Paris", "FR-75", "2025", nil)
	twin := makeCatalogEvent(2, "Marathon de Paris 2025", "Paris", "FR-75", "2025", nil)
	store := newFakeEventStore(paris, twin)
	store.searchResults = []db.Event{twin}
	index := &fakeIndex{err: errors.New("index down")}
	retriever := NewRetriever(store, index, zerolog.Nop())

	candidates, err := retriever.FindCandidates(context.Background(), summarizeEvent(paris), DefaultDetectionConfig())
	if err != nil {
		t.Fatalf("expected index failure to degrade, got %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != 2 {
		t.Fatalf("expected sql fallback candidate, got %v", candidates)
	}
}

func TestFindCandidates_EnrichmentErrorPropagates(t *testing.T) {
	t.Parallel()

	paris := makeCatalogEvent(1, "Marathon de Paris", "Paris", "FR-75", "2025", nil)
	store := newFakeEventStore(paris)
	store.getErr = errors.New("connection reset")
	index := &fakeIndex{hits: []search.Hit{{EventID: 2}}}
	retriever := NewRetriever(store, index, zerolog.Nop())

	if _, err := retriever.FindCandidates(context.Background(), summarizeEvent(paris), DefaultDetectionConfig()); err == nil {
		t.Fatalf("expected enrichment failure to propagate")
	}
}

func TestFindCandidates_NarrowThenBroad(t *testing.T) {
	t.Parallel()

	paris := makeCatalogEvent(1, "Marathon de Paris", "Paris", "FR-75", "2025", nil)
	narrow := makeCatalogEvent(2, "Paris Marathon", "Paris", "FR-75", "2025", nil)
	broad := makeCatalogEvent(3, "Grand Marathon de Paris", "Pantin", "FR-93", "2025", nil)
	store := newFakeEventStore(paris, narrow, broad)
	store.searchResults = []db.Event{narrow, broad}
	retriever := NewRetriever(store, nil, zerolog.Nop())

	candidates, err := retriever.FindCandidates(context.Background(), summarizeEvent(paris), DefaultDetectionConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected narrow and broad candidates, got %v", candidates)
	}
	if len(store.searchCalls) != 2 {
		t.Fatalf("expected two sql passes, got %d", len(store.searchCalls))
	}
	if store.searchCalls[0].SubdivisionCode != "FR-75" {
		t.Fatalf("expected first pass scoped to the subdivision, got %q", store.searchCalls[0].SubdivisionCode)
	}
	if store.searchCalls[1].SubdivisionCode != "" {
		t.Fatalf("expected second pass unscoped, got %q", store.searchCalls[1].SubdivisionCode)
	}
}

func TestFindCandidates_BroadPassExcludesNarrowResults(t *testing.T) {
	t.Parallel()

	paris := makeCatalogEvent(1, "Marathon de Paris", "Paris", "FR-75", "2025", nil)
	narrow := makeCatalogEvent(2, "Paris Marathon", "Paris", "FR-75", "2025", nil)
	store := newFakeEventStore(paris, narrow)
	store.searchResults = []db.Event{narrow}
	retriever := NewRetriever(store, nil, zerolog.Nop())

	if _, err := retriever.FindCandidates(context.Background(), summarizeEvent(paris), DefaultDetectionConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.searchCalls) != 2 {
		t.Fatalf("expected two sql passes, got %d", len(store.searchCalls))
	}

	excluded := store.searchCalls[1].ExcludeEventIDs
	found := false
	for _, id := range excluded {
		if id == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected broad pass to exclude narrow results, excluded %v", excluded)
	}
}

func TestFindCandidates_SkipsNarrowWithoutSubdivision(t *testing.T) {
	t.Parallel()

	event := makeCatalogEvent(1, "Marathon de Paris", "Paris", "", "2025", nil)
	store := newFakeEventStore(event)
	retriever := NewRetriever(store, nil, zerolog.Nop())

	if _, err := retriever.FindCandidates(context.Background(), summarizeEvent(event), DefaultDetectionConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.searchCalls) != 1 {
		t.Fatalf("expected a single unscoped pass, got %d", len(store.searchCalls))
	}
	if store.searchCalls[0].SubdivisionCode != "" {
		t.Fatalf("expected unscoped pass, got %q", store.searchCalls[0].SubdivisionCode)
	}
}

func TestFindCandidates_NeverReturnsSelf(t *testing.T) {
	t.Parallel()

	paris := makeCatalogEvent(1, "Marathon de Paris", "Paris", "FR-75", "2025", nil)
	store := newFakeEventStore(paris)
	index := &fakeIndex{hits: []search.Hit{{EventID: 1, Name: "Marathon de Paris"}}}
	retriever := NewRetriever(store, index, zerolog.Nop())

	candidates, err := retriever.FindCandidates(context.Background(), summarizeEvent(paris), DefaultDetectionConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, candidate := range candidates {
		if candidate.ID == 1 {
			t.Fatalf("retriever returned the event itself")
		}
	}
}

func TestFindCandidates_CapsAtConfiguredLimit(t *testing.T) {
	t.Parallel()

	paris := makeCatalogEvent(1, "Marathon de Paris", "Paris", "FR-75", "2025", nil)
	store := newFakeEventStore(paris)
	for id := int64(2); id <= 20; id++ {
		candidate := makeCatalogEvent(id, "Marathon de Paris", "Paris", "FR-75", "2025", nil)
		store.events[id] = candidate
		store.searchResults = append(store.searchResults, candidate)
	}
	retriever := NewRetriever(store, nil, zerolog.Nop())

	cfg := DefaultDetectionConfig()
	cfg.MaxCandidatesPerEvent = 4
	candidates, err := retriever.FindCandidates(context.Background(), summarizeEvent(paris), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 4 {
		t.Fatalf("expected candidate cap of 4, got %d", len(candidates))
	}
}
