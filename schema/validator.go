package tuningschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"stride.fit/curator/internal/dedup"
)

//go:embed detection_config.schema.json
var detectionConfigSchemaJSON string

// DetectionOverrides is a partial tuning config. Nil fields keep the value
// already configured through the environment.
type DetectionOverrides struct {
	MinDuplicateScore     *float64 `json:"min_duplicate_score,omitempty"`
	NameWeight            *float64 `json:"name_weight,omitempty"`
	LocationWeight        *float64 `json:"location_weight,omitempty"`
	DateWeight            *float64 `json:"date_weight,omitempty"`
	CategoryWeight        *float64 `json:"category_weight,omitempty"`
	MaxDistanceKm         *float64 `json:"max_distance_km,omitempty"`
	DateToleranceDays     *int     `json:"date_tolerance_days,omitempty"`
	MaxCandidatesPerEvent *int     `json:"max_candidates_per_event,omitempty"`
	BatchSize             *int     `json:"batch_size,omitempty"`
	RescanDelayDays       *int     `json:"rescan_delay_days,omitempty"`
	EligibleStatuses      []string `json:"eligible_statuses,omitempty"`
	ExcludedStatuses      []string `json:"excluded_statuses,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateDetectionOverrides validates a tuning config document against the
// embedded schema and returns the decoded overrides.
func ValidateDetectionOverrides(payload json.RawMessage) (*DetectionOverrides, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode tuning config JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize tuning config JSON: %w", err)
	}

	var overrides DetectionOverrides
	if err := json.Unmarshal(normalized, &overrides); err != nil {
		return nil, fmt.Errorf("unmarshal tuning config: %w", err)
	}

	if err := validateSemantics(&overrides); err != nil {
		return nil, err
	}

	return &overrides, nil
}

// Apply overlays the overrides onto a base config and returns the result.
func (o *DetectionOverrides) Apply(base dedup.DetectionConfig) dedup.DetectionConfig {
	if o == nil {
		return base
	}
	cfg := base
	if o.MinDuplicateScore != nil {
		cfg.MinDuplicateScore = *o.MinDuplicateScore
	}
	if o.NameWeight != nil {
		cfg.NameWeight = *o.NameWeight
	}
	if o.LocationWeight != nil {
		cfg.LocationWeight = *o.LocationWeight
	}
	if o.DateWeight != nil {
		cfg.DateWeight = *o.DateWeight
	}
	if o.CategoryWeight != nil {
		cfg.CategoryWeight = *o.CategoryWeight
	}
	if o.MaxDistanceKm != nil {
		cfg.MaxDistanceKm = *o.MaxDistanceKm
	}
	if o.DateToleranceDays != nil {
		cfg.DateToleranceDays = *o.DateToleranceDays
	}
	if o.MaxCandidatesPerEvent != nil {
		cfg.MaxCandidatesPerEvent = *o.MaxCandidatesPerEvent
	}
	if o.BatchSize != nil {
		cfg.BatchSize = *o.BatchSize
	}
	if o.RescanDelayDays != nil {
		cfg.RescanDelayDays = *o.RescanDelayDays
	}
	if len(o.EligibleStatuses) > 0 {
		cfg.EligibleStatuses = normalizeStatuses(o.EligibleStatuses)
	}
	if len(o.ExcludedStatuses) > 0 {
		cfg.ExcludedStatuses = normalizeStatuses(o.ExcludedStatuses)
	}
	return cfg
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("detection_config.schema.json", strings.NewReader(detectionConfigSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("detection_config.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("tuning config is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("tuning config contains trailing content")
	}

	return value, nil
}

// validateSemantics enforces the cross-field rules the JSON schema cannot
// express: the four weights are overridden together and must sum to 1.0.
func validateSemantics(overrides *DetectionOverrides) error {
	if overrides == nil {
		return fmt.Errorf("tuning config is nil")
	}

	weights := []*float64{
		overrides.NameWeight,
		overrides.LocationWeight,
		overrides.DateWeight,
		overrides.CategoryWeight,
	}
	set := 0
	sum := 0.0
	for _, w := range weights {
		if w != nil {
			set++
			sum += *w
		}
	}
	if set > 0 && set < len(weights) {
		return fmt.Errorf("weights must be overridden together: name_weight, location_weight, date_weight and category_weight")
	}
	if set == len(weights) && math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("weights must sum to 1.0, got %.4f", sum)
	}

	for i, status := range overrides.EligibleStatuses {
		if strings.TrimSpace(status) == "" {
			return fmt.Errorf("eligible_statuses[%d] must not be empty", i)
		}
	}
	for i, status := range overrides.ExcludedStatuses {
		if strings.TrimSpace(status) == "" {
			return fmt.Errorf("excluded_statuses[%d] must not be empty", i)
		}
	}

	return nil
}

func normalizeStatuses(statuses []string) []string {
	out := make([]string, 0, len(statuses))
	seen := make(map[string]struct{}, len(statuses))
	for _, status := range statuses {
		normalized := strings.ToUpper(strings.TrimSpace(status))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
