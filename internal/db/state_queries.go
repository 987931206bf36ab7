package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LoadState reads one agent checkpoint payload. The second return value is
// false when no state has been persisted yet.
func (p *Pool) LoadState(ctx context.Context, agent, stateName string) (json.RawMessage, bool, error) {
	const q = `
SELECT payload
FROM curation.agent_states
WHERE agent = $1
  AND state_name = $2
`
	var payload json.RawMessage
	err := p.QueryRow(ctx, q, agent, stateName).Scan(&payload)
	if err != nil {
		if IsNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load state %s/%s: %w", agent, stateName, err)
	}
	return payload, true, nil
}

// SaveState upserts one agent checkpoint payload. Read-modify-write at batch
// granularity is the only guarantee callers get; overlapping writers clobber
// each other, so the scheduler must never run the same agent concurrently.
func (p *Pool) SaveState(ctx context.Context, agent, stateName string, payload json.RawMessage) error {
	if strings.TrimSpace(agent) == "" {
		return fmt.Errorf("agent must not be empty")
	}
	if strings.TrimSpace(stateName) == "" {
		return fmt.Errorf("state name must not be empty")
	}
	if len(payload) == 0 {
		return fmt.Errorf("payload must not be empty")
	}

	const q = `
INSERT INTO curation.agent_states (agent, state_name, payload, updated_at)
VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (agent, state_name)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
`
	if _, err := p.Exec(ctx, q, agent, stateName, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("save state %s/%s: %w", agent, stateName, err)
	}
	return nil
}

// DeleteState removes one agent checkpoint. Used by `progress --reset`.
func (p *Pool) DeleteState(ctx context.Context, agent, stateName string) error {
	const q = `
DELETE FROM curation.agent_states
WHERE agent = $1
  AND state_name = $2
`
	if _, err := p.Exec(ctx, q, agent, stateName); err != nil {
		return fmt.Errorf("delete state %s/%s: %w", agent, stateName, err)
	}
	return nil
}
