// Package dedup is the duplicate detection engine: candidate retrieval,
// weighted pair scoring, keep/duplicate resolution and the resumable scan
// over the event catalog.
package dedup

import (
	"time"

	"stride.fit/curator/internal/db"
)

// StatusLive is the lifecycle status of a published catalog event.
const StatusLive = "LIVE"

// EventSummary is the immutable projection of a catalog event used for
// matching. It is rebuilt from the store on every batch and never mutated.
type EventSummary struct {
	ID              int64
	Name            string
	City            string
	SubdivisionCode string // empty when unknown
	Latitude        *float64
	Longitude       *float64
	Status          string
	CreatedAt       *time.Time
	Editions        []EditionSummary
}

// EditionSummary is one year's occurrence of an event.
type EditionSummary struct {
	ID        int64
	Year      string
	StartDate *time.Time
	Races     []RaceSummary
}

// RaceSummary carries the coarse category tag used by category scoring.
type RaceSummary struct {
	CategoryLevel1 string
}

// ScoreDetails is the audit breakdown attached to every duplicate score.
type ScoreDetails struct {
	NameScore     float64  `json:"name_score"`
	LocationScore float64  `json:"location_score"`
	DateScore     float64  `json:"date_score"`
	CategoryScore float64  `json:"category_score"`
	EditionRatio  float64  `json:"edition_ratio"`
	DistanceKm    *float64 `json:"distance_km,omitempty"`
}

// DuplicateScore is the outcome of scoring one event pair.
type DuplicateScore struct {
	Score       float64      `json:"score"`
	IsDuplicate bool         `json:"is_duplicate"`
	Details     ScoreDetails `json:"details"`
}

// KeepDecision names which event of a duplicate pair survives a merge.
type KeepDecision struct {
	Keep      EventSummary
	Duplicate EventSummary
	Reason    string
}

// DetectionConfig tunes scoring and retrieval. Weights must sum to 1.0.
type DetectionConfig struct {
	MinDuplicateScore     float64
	NameWeight            float64
	LocationWeight        float64
	DateWeight            float64
	CategoryWeight        float64
	MaxDistanceKm         float64
	DateToleranceDays     int
	MaxCandidatesPerEvent int
	BatchSize             int
	RescanDelayDays       int
	EligibleStatuses      []string
	ExcludedStatuses      []string
}

// DefaultDetectionConfig returns the tuned production defaults. The neutral
// constants inside the scorer (0.5 for missing categories, 0.6 for same
// subdivision without coordinates) are business defaults and not configurable.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		MinDuplicateScore:     0.75,
		NameWeight:            0.40,
		LocationWeight:        0.30,
		DateWeight:            0.20,
		CategoryWeight:        0.10,
		MaxDistanceKm:         15,
		DateToleranceDays:     30,
		MaxCandidatesPerEvent: 10,
		BatchSize:             50,
		RescanDelayDays:       30,
		EligibleStatuses:      []string{StatusLive},
	}
}

func summarizeEvent(event db.Event) EventSummary {
	summary := EventSummary{
		ID:       event.EventID,
		Name:     event.Name,
		City:     event.City,
		Latitude: event.Latitude,
		Status:   event.Status,
	}
	summary.Longitude = event.Longitude
	if event.SubdivisionCode != nil {
		summary.SubdivisionCode = *event.SubdivisionCode
	}
	if !event.CreatedAt.IsZero() {
		createdAt := event.CreatedAt
		summary.CreatedAt = &createdAt
	}

	summary.Editions = make([]EditionSummary, 0, len(event.Editions))
	for _, edition := range event.Editions {
		editionSummary := EditionSummary{
			ID:        edition.EditionID,
			Year:      edition.Year,
			StartDate: edition.StartDate,
		}
		editionSummary.Races = make([]RaceSummary, 0, len(edition.Races))
		for _, race := range edition.Races {
			raceSummary := RaceSummary{}
			if race.CategoryLevel1 != nil {
				raceSummary.CategoryLevel1 = *race.CategoryLevel1
			}
			editionSummary.Races = append(editionSummary.Races, raceSummary)
		}
		summary.Editions = append(summary.Editions, editionSummary)
	}
	return summary
}
