package tuningschema

import (
	"encoding/json"
	"testing"

	"stride.fit/curator/internal/dedup"
)

func TestValidateDetectionOverrides_Valid(t *testing.T) {
	t.Parallel()

	overrides, err := ValidateDetectionOverrides(json.RawMessage(`{
		"min_duplicate_score": 0.8,
		"max_distance_km": 25,
		"eligible_statuses": ["live", "draft"]
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overrides.MinDuplicateScore == nil || *overrides.MinDuplicateScore != 0.8 {
		t.Fatalf("unexpected min score override: %+v", overrides.MinDuplicateScore)
	}
	if overrides.NameWeight != nil {
		t.Fatalf("did not expect a name weight override")
	}
}

func TestValidateDetectionOverrides_RejectsUnknownField(t *testing.T) {
	t.Parallel()

	if _, err := ValidateDetectionOverrides(json.RawMessage(`{"min_score": 0.8}`)); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestValidateDetectionOverrides_RejectsZeroMinScore(t *testing.T) {
	t.Parallel()

	if _, err := ValidateDetectionOverrides(json.RawMessage(`{"min_duplicate_score": 0}`)); err == nil {
		t.Fatalf("expected a zero score threshold to be rejected")
	}
}

func TestValidateDetectionOverrides_RejectsPartialWeights(t *testing.T) {
	t.Parallel()

	if _, err := ValidateDetectionOverrides(json.RawMessage(`{"name_weight": 0.5}`)); err == nil {
		t.Fatalf("expected a lone weight override to be rejected")
	}
}

func TestValidateDetectionOverrides_RejectsWeightSum(t *testing.T) {
	t.Parallel()

	_, err := ValidateDetectionOverrides(json.RawMessage(`{
		"name_weight": 0.5,
		"location_weight": 0.3,
		"date_weight": 0.3,
		"category_weight": 0.1
	}`))
	if err == nil {
		t.Fatalf("expected weights summing to 1.2 to be rejected")
	}
}

func TestValidateDetectionOverrides_AcceptsFullWeightSet(t *testing.T) {
	t.Parallel()

	overrides, err := ValidateDetectionOverrides(json.RawMessage(`{
		"name_weight": 0.5,
		"location_weight": 0.25,
		"date_weight": 0.15,
		"category_weight": 0.1
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overrides.NameWeight == nil || *overrides.NameWeight != 0.5 {
		t.Fatalf("unexpected name weight: %+v", overrides.NameWeight)
	}
}

func TestValidateDetectionOverrides_RejectsTrailingContent(t *testing.T) {
	t.Parallel()

	if _, err := ValidateDetectionOverrides(json.RawMessage(`{} {}`)); err == nil {
		t.Fatalf("expected trailing content to be rejected")
	}
}

func TestValidateDetectionOverrides_RejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := ValidateDetectionOverrides(json.RawMessage("  ")); err == nil {
		t.Fatalf("expected empty payload to be rejected")
	}
}

func TestDetectionOverrides_Apply(t *testing.T) {
	t.Parallel()

	minScore := 0.85
	batchSize := 200
	overrides := &DetectionOverrides{
		MinDuplicateScore: &minScore,
		BatchSize:         &batchSize,
		EligibleStatuses:  []string{"live", " draft ", "LIVE"},
	}

	cfg := overrides.Apply(dedup.DefaultDetectionConfig())
	if cfg.MinDuplicateScore != 0.85 {
		t.Fatalf("unexpected min score: %f", cfg.MinDuplicateScore)
	}
	if cfg.BatchSize != 200 {
		t.Fatalf("unexpected batch size: %d", cfg.BatchSize)
	}
	if len(cfg.EligibleStatuses) != 2 || cfg.EligibleStatuses[0] != "LIVE" || cfg.EligibleStatuses[1] != "DRAFT" {
		t.Fatalf("unexpected statuses: %v", cfg.EligibleStatuses)
	}
	if cfg.NameWeight != 0.40 {
		t.Fatalf("expected untouched weight to keep its default, got %f", cfg.NameWeight)
	}
}

func TestDetectionOverrides_ApplyNil(t *testing.T) {
	t.Parallel()

	var overrides *DetectionOverrides
	cfg := overrides.Apply(dedup.DefaultDetectionConfig())
	if cfg.MinDuplicateScore != dedup.DefaultDetectionConfig().MinDuplicateScore {
		t.Fatalf("expected nil overrides to be a no-op")
	}
}
