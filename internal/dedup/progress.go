package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ProgressStateName is the agent-state key under which scan progress is
// persisted.
const ProgressStateName = "duplicate-scan"

// StateStore persists named agent state blobs between runs.
type StateStore interface {
	LoadState(ctx context.Context, agent, stateName string) (json.RawMessage, bool, error)
	SaveState(ctx context.Context, agent, stateName string, payload json.RawMessage) error
}

// PairAnalysis memoizes one scored event pair so a resumed or repeated scan
// does not rescore it.
type PairAnalysis struct {
	AnalyzedAt      time.Time `json:"analyzed_at"`
	Score           float64   `json:"score"`
	ProposalCreated bool      `json:"proposal_created"`
}

// ScanProgress is the persisted cursor of the sweep over the catalog plus the
// pair memo. The cursor resets to zero when a sweep completes so the next
// batch starts a fresh pass.
type ScanProgress struct {
	LastProcessedEventID int64                   `json:"last_processed_event_id"`
	LastFullScanAt       *time.Time              `json:"last_full_scan_at,omitempty"`
	TotalEventsAnalyzed  int64                   `json:"total_events_analyzed"`
	TotalDuplicatesFound int64                   `json:"total_duplicates_found"`
	AnalyzedPairs        map[string]PairAnalysis `json:"analyzed_pairs"`
}

func NewScanProgress() *ScanProgress {
	return &ScanProgress{AnalyzedPairs: make(map[string]PairAnalysis)}
}

// PairKey is order independent: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// PurgeStalePairs drops memo entries analyzed before the cutoff and reports
// how many were removed. Stale pairs become eligible for rescoring.
func (p *ScanProgress) PurgeStalePairs(cutoff time.Time) int {
	purged := 0
	for key, analysis := range p.AnalyzedPairs {
		if analysis.AnalyzedAt.Before(cutoff) {
			delete(p.AnalyzedPairs, key)
			purged++
		}
	}
	return purged
}

// ProgressTracker loads and saves ScanProgress for one agent.
type ProgressTracker struct {
	store StateStore
	agent string
}

func NewProgressTracker(store StateStore, agent string) *ProgressTracker {
	return &ProgressTracker{store: store, agent: agent}
}

// Load returns the persisted progress, or a fresh zero progress when none has
// been saved yet.
func (t *ProgressTracker) Load(ctx context.Context) (*ScanProgress, error) {
	raw, found, err := t.store.LoadState(ctx, t.agent, ProgressStateName)
	if err != nil {
		return nil, fmt.Errorf("load scan progress: %w", err)
	}
	if !found {
		return NewScanProgress(), nil
	}

	progress := &ScanProgress{}
	if err := json.Unmarshal(raw, progress); err != nil {
		return nil, fmt.Errorf("decode scan progress: %w", err)
	}
	if progress.AnalyzedPairs == nil {
		progress.AnalyzedPairs = make(map[string]PairAnalysis)
	}
	return progress, nil
}

func (t *ProgressTracker) Save(ctx context.Context, progress *ScanProgress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode scan progress: %w", err)
	}
	if err := t.store.SaveState(ctx, t.agent, ProgressStateName, raw); err != nil {
		return fmt.Errorf("save scan progress: %w", err)
	}
	return nil
}
