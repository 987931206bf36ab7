package dedup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"stride.fit/curator/internal/db"
	"stride.fit/curator/internal/search"
	"stride.fit/curator/internal/textnorm"
)

// Broaden the SQL search when the narrow subdivision-scoped pass found fewer
// candidates than this.
const narrowPassFloor = 5

const candidateKeywordCount = 3

// EventStore is the slice of the relational store the engine reads. The
// catalog is the system of record; its failures propagate.
type EventStore interface {
	ListEventsForScan(ctx context.Context, opts db.ScanPageOptions) ([]db.Event, error)
	GetEventsByIDs(ctx context.Context, ids []int64) ([]db.Event, error)
	SearchCandidateEvents(ctx context.Context, opts db.CandidateQueryOptions) ([]db.Event, error)
}

// EventIndex is the optional full-text index. A nil index means "not
// configured"; errors and empty results degrade to SQL retrieval.
type EventIndex interface {
	SearchEvents(ctx context.Context, query string, filter search.Filter) ([]search.Hit, error)
}

// Retriever finds plausible duplicate candidates for one event using a
// funnel: index lookup first, then a narrow SQL keyword pass scoped to the
// event's subdivision, then a broader unscoped pass when the narrow one came
// up short.
type Retriever struct {
	store  EventStore
	index  EventIndex
	logger zerolog.Logger
}

func NewRetriever(store EventStore, index EventIndex, logger zerolog.Logger) *Retriever {
	return &Retriever{
		store:  store,
		index:  index,
		logger: logger,
	}
}

// FindCandidates returns at most cfg.MaxCandidatesPerEvent scorable
// candidates for the event, deduplicated by id and never containing the
// event itself.
func (r *Retriever) FindCandidates(ctx context.Context, event EventSummary, cfg DetectionConfig) ([]EventSummary, error) {
	limit := cfg.MaxCandidatesPerEvent
	if limit <= 0 {
		limit = DefaultDetectionConfig().MaxCandidatesPerEvent
	}

	if r.index != nil {
		candidates, err := r.findViaIndex(ctx, event, limit)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	return r.findViaSQL(ctx, event, limit)
}

// findViaIndex queries the search index and enriches hits from the relational
// store. Index errors are logged and swallowed (the funnel falls through to
// SQL); enrichment errors propagate because the store is the system of record.
func (r *Retriever) findViaIndex(ctx context.Context, event EventSummary, limit int) ([]EventSummary, error) {
	query := textnorm.RemoveEditionNumber(textnorm.NormalizeString(event.Name))
	if query == "" {
		return nil, nil
	}

	hits, err := r.index.SearchEvents(ctx, query, search.Filter{
		SubdivisionCode: event.SubdivisionCode,
		ExcludeEventID:  event.ID,
		Limit:           limit,
	})
	if err != nil {
		r.logger.Warn().
			Err(err).
			Int64("event_id", event.ID).
			Msg("search index lookup failed; falling back to sql retrieval")
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(hits))
	for _, hit := range hits {
		if hit.EventID == event.ID {
			continue
		}
		ids = append(ids, hit.EventID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Index hits carry no edition or race data; scoring needs both.
	events, err := r.store.GetEventsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("enrich %d index hits: %w", len(ids), err)
	}

	return summarizeCandidates(events, event.ID, limit), nil
}

func (r *Retriever) findViaSQL(ctx context.Context, event EventSummary, limit int) ([]EventSummary, error) {
	keywords := textnorm.TopKeywords(event.Name, candidateKeywordCount)
	if len(keywords) == 0 {
		return nil, nil
	}

	found := make([]db.Event, 0, limit)
	excluded := []int64{event.ID}

	if event.SubdivisionCode != "" {
		narrow, err := r.store.SearchCandidateEvents(ctx, db.CandidateQueryOptions{
			Keywords:        keywords,
			SubdivisionCode: event.SubdivisionCode,
			ExcludeEventIDs: excluded,
			Limit:           limit,
		})
		if err != nil {
			return nil, fmt.Errorf("narrow candidate pass: %w", err)
		}
		found = append(found, narrow...)
		for _, candidate := range narrow {
			excluded = append(excluded, candidate.EventID)
		}
	}

	if len(found) < narrowPassFloor && len(found) < limit {
		broad, err := r.store.SearchCandidateEvents(ctx, db.CandidateQueryOptions{
			Keywords:        keywords,
			ExcludeEventIDs: excluded,
			Limit:           limit - len(found),
		})
		if err != nil {
			return nil, fmt.Errorf("broad candidate pass: %w", err)
		}
		found = append(found, broad...)
	}

	return summarizeCandidates(found, event.ID, limit), nil
}

func summarizeCandidates(events []db.Event, sourceEventID int64, limit int) []EventSummary {
	candidates := make([]EventSummary, 0, len(events))
	seen := make(map[int64]struct{}, len(events))
	for _, event := range events {
		if event.EventID == sourceEventID {
			continue
		}
		if _, exists := seen[event.EventID]; exists {
			continue
		}
		seen[event.EventID] = struct{}{}
		candidates = append(candidates, summarizeEvent(event))
		if len(candidates) == limit {
			break
		}
	}
	return candidates
}
