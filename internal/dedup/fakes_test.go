package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"stride.fit/curator/internal/db"
	"stride.fit/curator/internal/search"
)

type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]json.RawMessage
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]json.RawMessage)}
}

func (s *fakeStateStore) LoadState(_ context.Context, agent, stateName string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.states[agent+"/"+stateName]
	return raw, ok, nil
}

func (s *fakeStateStore) SaveState(_ context.Context, agent, stateName string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[agent+"/"+stateName] = payload
	return nil
}

// fakeEventStore serves a fixed catalog and records candidate queries.
type fakeEventStore struct {
	events map[int64]db.Event

	searchResults []db.Event
	searchErr     error
	searchCalls   []db.CandidateQueryOptions

	getErr error
}

func newFakeEventStore(events ...db.Event) *fakeEventStore {
	store := &fakeEventStore{events: make(map[int64]db.Event, len(events))}
	for _, event := range events {
		store.events[event.EventID] = event
	}
	return store
}

func (s *fakeEventStore) ListEventsForScan(_ context.Context, opts db.ScanPageOptions) ([]db.Event, error) {
	ids := make([]int64, 0, len(s.events))
	for id := range s.events {
		if id > opts.AfterEventID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	page := make([]db.Event, 0, opts.Limit)
	for _, id := range ids {
		page = append(page, s.events[id])
		if opts.Limit > 0 && len(page) == opts.Limit {
			break
		}
	}
	return page, nil
}

func (s *fakeEventStore) GetEventsByIDs(_ context.Context, ids []int64) ([]db.Event, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	events := make([]db.Event, 0, len(ids))
	for _, id := range ids {
		if event, ok := s.events[id]; ok {
			events = append(events, event)
		}
	}
	return events, nil
}

func (s *fakeEventStore) SearchCandidateEvents(_ context.Context, opts db.CandidateQueryOptions) ([]db.Event, error) {
	s.searchCalls = append(s.searchCalls, opts)
	if s.searchErr != nil {
		return nil, s.searchErr
	}

	excluded := make(map[int64]struct{}, len(opts.ExcludeEventIDs))
	for _, id := range opts.ExcludeEventIDs {
		excluded[id] = struct{}{}
	}

	results := make([]db.Event, 0, len(s.searchResults))
	for _, event := range s.searchResults {
		if _, skip := excluded[event.EventID]; skip {
			continue
		}
		if opts.SubdivisionCode != "" {
			if event.SubdivisionCode == nil || *event.SubdivisionCode != opts.SubdivisionCode {
				continue
			}
		}
		results = append(results, event)
		if opts.Limit > 0 && len(results) == opts.Limit {
			break
		}
	}
	return results, nil
}

type fakeIndex struct {
	hits    []search.Hit
	err     error
	queries []string
}

func (i *fakeIndex) SearchEvents(_ context.Context, query string, _ search.Filter) ([]search.Hit, error) {
	i.queries = append(i.queries, query)
	if i.err != nil {
		return nil, i.err
	}
	return i.hits, nil
}

type fakeSink struct {
	existing  map[string]bool
	created   []*db.MergeRecommendation
	createErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{existing: make(map[string]bool)}
}

func (s *fakeSink) HasOpenRecommendation(_ context.Context, eventIDA, eventIDB int64) (bool, error) {
	return s.existing[PairKey(eventIDA, eventIDB)], nil
}

func (s *fakeSink) CreateRecommendation(_ context.Context, rec *db.MergeRecommendation) error {
	if s.createErr != nil {
		return s.createErr
	}
	if rec.KeepEventID == rec.DuplicateEventID {
		return fmt.Errorf("keep and duplicate event ids must differ")
	}
	s.created = append(s.created, rec)
	s.existing[PairKey(rec.KeepEventID, rec.DuplicateEventID)] = true
	return nil
}

func makeCatalogEvent(id int64, name, city, subdivision, year string, start *time.Time) db.Event {
	event := db.Event{
		EventID: id,
		Name:    name,
		City:    city,
		Status:  StatusLive,
		Editions: []db.EventEdition{{
			EditionID: id * 100,
			EventID:   id,
			Year:      year,
			StartDate: start,
			Races: []db.Race{{
				RaceID:         id * 1000,
				CategoryLevel1: stringPtr("running"),
			}},
		}},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if subdivision != "" {
		event.SubdivisionCode = &subdivision
	}
	return event
}

func stringPtr(v string) *string { return &v }
