package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ScanPageOptions controls one paged fetch of the event catalog.
type ScanPageOptions struct {
	AfterEventID     int64
	Limit            int
	EligibleStatuses []string
	ExcludedStatuses []string
}

// CandidateQueryOptions parameterizes one keyword/region filter pass of the
// SQL candidate search.
type CandidateQueryOptions struct {
	Keywords        []string
	SubdivisionCode string
	ExcludeEventIDs []int64
	Limit           int
}

func withEditions(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Editions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("year DESC")
		}).
		Preload("Editions.Races")
}

// ListEventsForScan fetches up to Limit catalog events with an id greater than
// the resume point, restricted to eligible lifecycle statuses, ordered by id
// ascending, with editions and races preloaded for scoring.
func (p *Pool) ListEventsForScan(ctx context.Context, opts ScanPageOptions) ([]Event, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	query := p.gdb.WithContext(ctx).
		Where("event_id > ?", opts.AfterEventID).
		Where("deleted_at IS NULL")
	if len(opts.EligibleStatuses) > 0 {
		query = query.Where("status IN ?", opts.EligibleStatuses)
	}
	if len(opts.ExcludedStatuses) > 0 {
		query = query.Where("status NOT IN ?", opts.ExcludedStatuses)
	}

	var events []Event
	err := withEditions(query).
		Order("event_id ASC").
		Limit(opts.Limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events for scan after id=%d: %w", opts.AfterEventID, err)
	}
	return events, nil
}

// GetEventsByIDs loads full events including editions and races. Used to
// enrich search-index hits, which carry none of the nested data scoring needs.
func (p *Pool) GetEventsByIDs(ctx context.Context, ids []int64) ([]Event, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var events []Event
	err := withEditions(p.gdb.WithContext(ctx)).
		Where("event_id IN ?", ids).
		Where("deleted_at IS NULL").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("get events by ids: %w", err)
	}
	return events, nil
}

// SearchCandidateEvents runs one keyword filter pass: events whose name
// contains any of the keywords (case-insensitive), optionally restricted to a
// subdivision code, excluding the listed ids. Editions and races are preloaded
// so results are directly scorable.
func (p *Pool) SearchCandidateEvents(ctx context.Context, opts CandidateQueryOptions) ([]Event, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if len(opts.Keywords) == 0 {
		return nil, nil
	}

	keywordFilter := p.gdb.Where("name ILIKE ?", "%"+opts.Keywords[0]+"%")
	for _, keyword := range opts.Keywords[1:] {
		keywordFilter = keywordFilter.Or("name ILIKE ?", "%"+keyword+"%")
	}

	query := p.gdb.WithContext(ctx).
		Where("deleted_at IS NULL").
		Where(keywordFilter)
	if opts.SubdivisionCode != "" {
		query = query.Where("subdivision_code = ?", opts.SubdivisionCode)
	}
	if len(opts.ExcludeEventIDs) > 0 {
		query = query.Where("event_id NOT IN ?", opts.ExcludeEventIDs)
	}

	var events []Event
	err := withEditions(query).
		Order("event_id ASC").
		Limit(opts.Limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("search candidate events: %w", err)
	}
	return events, nil
}

// CountEventsByStatus returns how many non-deleted events carry each status.
func (p *Pool) CountEventsByStatus(ctx context.Context) (map[string]int64, error) {
	if p == nil || p.gdb == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	const q = `
SELECT status, COUNT(*)
FROM catalog.events
WHERE deleted_at IS NULL
GROUP BY status
`
	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count events by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan event status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event status counts: %w", err)
	}
	return counts, nil
}
