package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"8"`

	// Full-text index is optional; an empty host disables funnel step 1.
	MeiliHost    string        `envconfig:"MEILI_HOST" default:""`
	MeiliAPIKey  string        `envconfig:"MEILI_API_KEY" default:""`
	MeiliIndex   string        `envconfig:"MEILI_EVENT_INDEX" default:"events"`
	MeiliTimeout time.Duration `envconfig:"MEILI_TIMEOUT" default:"3s"`

	AgentID string `envconfig:"DETECTION_AGENT_ID" default:"duplicate-detector"`

	MinDuplicateScore     float64 `envconfig:"MIN_DUPLICATE_SCORE" default:"0.75"`
	NameWeight            float64 `envconfig:"NAME_WEIGHT" default:"0.40"`
	LocationWeight        float64 `envconfig:"LOCATION_WEIGHT" default:"0.30"`
	DateWeight            float64 `envconfig:"DATE_WEIGHT" default:"0.20"`
	CategoryWeight        float64 `envconfig:"CATEGORY_WEIGHT" default:"0.10"`
	MaxDistanceKm         float64 `envconfig:"MAX_DISTANCE_KM" default:"15"`
	DateToleranceDays     int     `envconfig:"DATE_TOLERANCE_DAYS" default:"30"`
	MaxCandidatesPerEvent int     `envconfig:"MAX_CANDIDATES_PER_EVENT" default:"10"`
	BatchSize             int     `envconfig:"DETECTION_BATCH_SIZE" default:"50"`
	RescanDelayDays       int     `envconfig:"RESCAN_DELAY_DAYS" default:"30"`
	EligibleStatuses      string  `envconfig:"ELIGIBLE_STATUSES" default:"LIVE"`
	ExcludedStatuses      string  `envconfig:"EXCLUDED_STATUSES" default:"REJECTED,ARCHIVED"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.MinDuplicateScore <= 0 || c.MinDuplicateScore > 1 {
		return fmt.Errorf("MIN_DUPLICATE_SCORE must be in (0, 1]")
	}
	weightSum := c.NameWeight + c.LocationWeight + c.DateWeight + c.CategoryWeight
	if math.Abs(weightSum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", weightSum)
	}
	if c.MaxDistanceKm <= 0 {
		return fmt.Errorf("MAX_DISTANCE_KM must be > 0")
	}
	if c.DateToleranceDays < 1 {
		return fmt.Errorf("DATE_TOLERANCE_DAYS must be >= 1")
	}
	if c.MaxCandidatesPerEvent < 1 {
		return fmt.Errorf("MAX_CANDIDATES_PER_EVENT must be >= 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("DETECTION_BATCH_SIZE must be >= 1")
	}
	if c.RescanDelayDays < 1 {
		return fmt.Errorf("RESCAN_DELAY_DAYS must be >= 1")
	}
	if len(c.EligibleStatusList()) == 0 {
		return fmt.Errorf("ELIGIBLE_STATUSES must name at least one status")
	}
	if strings.TrimSpace(c.AgentID) == "" {
		return fmt.Errorf("DETECTION_AGENT_ID is required")
	}
	return nil
}

func (c *Config) EligibleStatusList() []string {
	return splitStatusList(c.EligibleStatuses)
}

func (c *Config) ExcludedStatusList() []string {
	return splitStatusList(c.ExcludedStatuses)
}

func splitStatusList(raw string) []string {
	parts := strings.Split(raw, ",")
	statuses := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		status := strings.ToUpper(strings.TrimSpace(part))
		if status == "" {
			continue
		}
		if _, exists := seen[status]; exists {
			continue
		}
		seen[status] = struct{}{}
		statuses = append(statuses, status)
	}
	return statuses
}
