// Package search wraps the optional Meilisearch event index used as the first
// stage of candidate retrieval. The index holds a lightweight projection of
// the catalog; hits must be enriched from the relational store before scoring.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"

	"stride.fit/curator/internal/config"
)

// Hit is one ranked index result. Edition and race data is not indexed.
type Hit struct {
	EventID         int64    `json:"event_id"`
	Name            string   `json:"name"`
	City            string   `json:"city"`
	SubdivisionCode *string  `json:"subdivision_code,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Status          string   `json:"status"`
}

// Filter narrows an index query.
type Filter struct {
	SubdivisionCode string
	ExcludeEventID  int64
	Limit           int
}

type Client struct {
	manager meilisearch.ServiceManager
	index   meilisearch.IndexManager
	timeout time.Duration
	logger  zerolog.Logger
}

// NewClient builds an index client, or returns nil when no index host is
// configured. A nil *Client is a valid "index absent" value for the retriever.
func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	if cfg == nil || strings.TrimSpace(cfg.MeiliHost) == "" {
		return nil
	}

	var opts []meilisearch.Option
	if strings.TrimSpace(cfg.MeiliAPIKey) != "" {
		opts = append(opts, meilisearch.WithAPIKey(cfg.MeiliAPIKey))
	}

	manager := meilisearch.New(cfg.MeiliHost, opts...)
	timeout := cfg.MeiliTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Client{
		manager: manager,
		index:   manager.Index(cfg.MeiliIndex),
		timeout: timeout,
		logger:  logger,
	}
}

// SearchEvents queries the index. Errors are the caller's signal to fall back
// to SQL retrieval; they are never fatal to a detection batch.
func (c *Client) SearchEvents(ctx context.Context, query string, filter Filter) ([]Hit, error) {
	if c == nil || c.index == nil {
		return nil, fmt.Errorf("search index is not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	request := &meilisearch.SearchRequest{
		Limit: int64(limit),
	}
	if expression := buildFilterExpression(filter); expression != "" {
		request.Filter = expression
	}

	response, err := c.index.SearchWithContext(ctx, query, request)
	if err != nil {
		return nil, fmt.Errorf("search index query %q: %w", query, err)
	}

	hits := make([]Hit, 0, len(response.Hits))
	for _, raw := range response.Hits {
		encoded, err := json.Marshal(raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping undecodable search hit")
			continue
		}
		var hit Hit
		if err := json.Unmarshal(encoded, &hit); err != nil {
			c.logger.Warn().Err(err).Msg("skipping malformed search hit")
			continue
		}
		if hit.EventID == 0 {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Healthy reports index reachability for the health command.
func (c *Client) Healthy() bool {
	if c == nil || c.manager == nil {
		return false
	}
	return c.manager.IsHealthy()
}

func buildFilterExpression(filter Filter) string {
	var clauses []string
	if code := sanitizeFilterValue(filter.SubdivisionCode); code != "" {
		clauses = append(clauses, fmt.Sprintf("subdivision_code = '%s'", code))
	}
	if filter.ExcludeEventID > 0 {
		clauses = append(clauses, fmt.Sprintf("event_id != %d", filter.ExcludeEventID))
	}
	return strings.Join(clauses, " AND ")
}

func sanitizeFilterValue(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.ReplaceAll(trimmed, "'", "")
	return strings.ReplaceAll(trimmed, "\\", "")
}
