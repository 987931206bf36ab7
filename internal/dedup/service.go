package dedup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"stride.fit/curator/internal/db"
	"stride.fit/curator/internal/globaltime"
)

// RecommendationSink receives duplicate findings for human review.
type RecommendationSink interface {
	HasOpenRecommendation(ctx context.Context, eventIDA, eventIDB int64) (bool, error)
	CreateRecommendation(ctx context.Context, rec *db.MergeRecommendation) error
}

// BatchResult summarizes one RunBatch invocation.
type BatchResult struct {
	EventsAnalyzed         int      `json:"events_analyzed"`
	DuplicatesFound        int      `json:"duplicates_found"`
	RecommendationsCreated int      `json:"recommendations_created"`
	PairsSkipped           int      `json:"pairs_skipped"`
	SweepCompleted         bool     `json:"sweep_completed"`
	Errors                 []string `json:"errors,omitempty"`
}

// Success reports whether the batch ran without any per-event failures.
func (r BatchResult) Success() bool { return len(r.Errors) == 0 }

// Service runs the detection sweep: page through the catalog, retrieve
// candidates per event, score pairs, and file merge recommendations. Progress
// lives in the state store so sweeps survive restarts.
type Service struct {
	store     EventStore
	sink      RecommendationSink
	retriever *Retriever
	tracker   *ProgressTracker
	cfg       DetectionConfig
	logger    zerolog.Logger
}

func NewService(
	store EventStore,
	sink RecommendationSink,
	states StateStore,
	index EventIndex,
	cfg DetectionConfig,
	agentID string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		store:     store,
		sink:      sink,
		retriever: NewRetriever(store, index, logger),
		tracker:   NewProgressTracker(states, agentID),
		cfg:       cfg,
		logger:    logger,
	}
}

// RunBatch processes one page of events starting after the persisted cursor.
// Per-event failures are recorded in the result and do not stop the batch;
// the cursor still advances past a failed event so a poisoned row cannot
// wedge the sweep. An empty page completes the sweep: the cursor resets,
// the full-scan timestamp is stamped and stale pair memos are purged.
func (s *Service) RunBatch(ctx context.Context) (BatchResult, error) {
	result := BatchResult{}

	progress, err := s.tracker.Load(ctx)
	if err != nil {
		return result, err
	}

	events, err := s.store.ListEventsForScan(ctx, db.ScanPageOptions{
		AfterEventID:     progress.LastProcessedEventID,
		Limit:            s.cfg.BatchSize,
		EligibleStatuses: s.cfg.EligibleStatuses,
		ExcludedStatuses: s.cfg.ExcludedStatuses,
	})
	if err != nil {
		return result, fmt.Errorf("list events after id %d: %w", progress.LastProcessedEventID, err)
	}

	if len(events) == 0 {
		s.completeSweep(progress)
		result.SweepCompleted = true
		if err := s.tracker.Save(ctx, progress); err != nil {
			return result, err
		}
		return result, nil
	}

	for _, event := range events {
		summary := summarizeEvent(event)
		if err := s.analyzeEvent(ctx, summary, progress, &result); err != nil {
			s.logger.Error().
				Err(err).
				Int64("event_id", summary.ID).
				Msg("event analysis failed")
			result.Errors = append(result.Errors, fmt.Sprintf("event %d: %v", summary.ID, err))
		}
		// Advance past the event even when it failed.
		progress.LastProcessedEventID = summary.ID
		result.EventsAnalyzed++
		progress.TotalEventsAnalyzed++
	}

	if err := s.tracker.Save(ctx, progress); err != nil {
		return result, err
	}

	s.logger.Info().
		Int("events_analyzed", result.EventsAnalyzed).
		Int("duplicates_found", result.DuplicatesFound).
		Int("recommendations_created", result.RecommendationsCreated).
		Int("pairs_skipped", result.PairsSkipped).
		Int("errors", len(result.Errors)).
		Int64("cursor", progress.LastProcessedEventID).
		Msg("detection batch done")
	return result, nil
}

// Progress exposes the persisted scan progress for the progress command.
func (s *Service) Progress(ctx context.Context) (*ScanProgress, error) {
	return s.tracker.Load(ctx)
}

func (s *Service) completeSweep(progress *ScanProgress) {
	now := globaltime.UTC()
	progress.LastProcessedEventID = 0
	progress.LastFullScanAt = &now

	cutoff := now.AddDate(0, 0, -s.cfg.RescanDelayDays)
	purged := progress.PurgeStalePairs(cutoff)
	s.logger.Info().
		Int("pairs_purged", purged).
		Time("last_full_scan_at", now).
		Msg("sweep complete, cursor reset")
}

func (s *Service) analyzeEvent(ctx context.Context, event EventSummary, progress *ScanProgress, result *BatchResult) error {
	candidates, err := s.retriever.FindCandidates(ctx, event, s.cfg)
	if err != nil {
		return fmt.Errorf("retrieve candidates: %w", err)
	}

	for _, candidate := range candidates {
		key := PairKey(event.ID, candidate.ID)
		if _, done := progress.AnalyzedPairs[key]; done {
			result.PairsSkipped++
			continue
		}

		score := Score(event, candidate, s.cfg)
		analysis := PairAnalysis{
			AnalyzedAt: globaltime.UTC(),
			Score:      score.Score,
		}

		if score.IsDuplicate {
			result.DuplicatesFound++
			progress.TotalDuplicatesFound++
			created, err := s.emitRecommendation(ctx, event, candidate, score)
			if err != nil {
				// Keep the pair unmemoized so the next sweep retries it.
				return fmt.Errorf("recommendation for pair %s: %w", key, err)
			}
			analysis.ProposalCreated = created
			if created {
				result.RecommendationsCreated++
			}
		}

		progress.AnalyzedPairs[key] = analysis
	}
	return nil
}

// emitRecommendation files a merge recommendation for a duplicate pair unless
// an open one already exists. Returns whether a row was inserted.
func (s *Service) emitRecommendation(ctx context.Context, a, b EventSummary, score DuplicateScore) (bool, error) {
	exists, err := s.sink.HasOpenRecommendation(ctx, a.ID, b.ID)
	if err != nil {
		return false, err
	}
	if exists {
		s.logger.Debug().
			Int64("event_a", a.ID).
			Int64("event_b", b.ID).
			Msg("open recommendation already exists")
		return false, nil
	}

	decision := ChooseKeep(a, b)
	justification, err := buildJustification(decision, score)
	if err != nil {
		return false, err
	}

	rec := &db.MergeRecommendation{
		KeepEventID:      decision.Keep.ID,
		DuplicateEventID: decision.Duplicate.ID,
		Confidence:       score.Score,
		Status:           "pending",
		Justification:    justification,
	}
	if err := s.sink.CreateRecommendation(ctx, rec); err != nil {
		return false, err
	}

	s.logger.Info().
		Int64("keep_event_id", decision.Keep.ID).
		Int64("duplicate_event_id", decision.Duplicate.ID).
		Float64("confidence", score.Score).
		Str("reason", decision.Reason).
		Msg("merge recommendation created")
	return true, nil
}

func buildJustification(decision KeepDecision, score DuplicateScore) (json.RawMessage, error) {
	payload := struct {
		Method    string       `json:"method"`
		Rationale string       `json:"rationale"`
		Details   ScoreDetails `json:"details"`
	}{
		Method: "duplicate-detection",
		Rationale: fmt.Sprintf("%.0f%% match; keeping event %d (%s)",
			score.Score*100, decision.Keep.ID, decision.Reason),
		Details: score.Details,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode justification: %w", err)
	}
	return raw, nil
}
