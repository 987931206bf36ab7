package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RecommendationSummary is a read model used by the recommendations command.
type RecommendationSummary struct {
	RecommendationID   int64           `json:"recommendation_id"`
	RecommendationUUID string          `json:"recommendation_uuid"`
	KeepEventID        int64           `json:"keep_event_id"`
	DuplicateEventID   int64           `json:"duplicate_event_id"`
	Confidence         float64         `json:"confidence"`
	Status             string          `json:"status"`
	Justification      json.RawMessage `json:"justification"`
	CreatedAt          time.Time       `json:"created_at"`
}

// HasOpenRecommendation reports whether a pending or approved merge
// recommendation already exists for the unordered (a, b) event pair.
func (p *Pool) HasOpenRecommendation(ctx context.Context, eventIDA, eventIDB int64) (bool, error) {
	const q = `
SELECT 1
FROM curation.merge_recommendations
WHERE status IN ('pending', 'approved')
  AND LEAST(keep_event_id, duplicate_event_id) = LEAST($1::bigint, $2::bigint)
  AND GREATEST(keep_event_id, duplicate_event_id) = GREATEST($1::bigint, $2::bigint)
LIMIT 1
`
	var one int
	err := p.QueryRow(ctx, q, eventIDA, eventIDB).Scan(&one)
	if err != nil {
		if IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("check open recommendation for pair (%d, %d): %w", eventIDA, eventIDB, err)
	}
	return true, nil
}

// CreateRecommendation inserts a pending merge recommendation.
func (p *Pool) CreateRecommendation(ctx context.Context, rec *MergeRecommendation) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}
	if rec == nil {
		return fmt.Errorf("recommendation is nil")
	}
	if rec.KeepEventID == rec.DuplicateEventID {
		return fmt.Errorf("keep and duplicate event ids must differ")
	}

	if err := p.gdb.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("insert merge recommendation keep=%d duplicate=%d: %w",
			rec.KeepEventID, rec.DuplicateEventID, err)
	}
	return nil
}

// ListRecommendations returns recommendations newest first, optionally
// filtered by status.
func (p *Pool) ListRecommendations(ctx context.Context, status string, limit int) ([]RecommendationSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	recommendation_id,
	recommendation_uuid::text,
	keep_event_id,
	duplicate_event_id,
	confidence,
	status,
	justification,
	created_at
FROM curation.merge_recommendations
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC, recommendation_id DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, strings.ToLower(strings.TrimSpace(status)), limit)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	summaries := make([]RecommendationSummary, 0, limit)
	for rows.Next() {
		var s RecommendationSummary
		if err := rows.Scan(
			&s.RecommendationID,
			&s.RecommendationUUID,
			&s.KeepEventID,
			&s.DuplicateEventID,
			&s.Confidence,
			&s.Status,
			&s.Justification,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}
	return summaries, nil
}
