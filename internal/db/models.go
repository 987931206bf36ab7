package db

import (
	"encoding/json"
	"time"
)

// Event maps catalog.events. The catalog is owned by the wider platform; the
// detection engine reads events and never mutates them.
type Event struct {
	EventID         int64          `gorm:"column:event_id;primaryKey;autoIncrement"`
	EventUUID       string         `gorm:"column:event_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	Name            string         `gorm:"column:name;type:text;not null"`
	City            string         `gorm:"column:city;type:text;not null;default:''"`
	SubdivisionCode *string        `gorm:"column:subdivision_code;type:text"`
	Latitude        *float64       `gorm:"column:latitude;type:double precision"`
	Longitude       *float64       `gorm:"column:longitude;type:double precision"`
	Status          string         `gorm:"column:status;type:text;not null;default:DRAFT"`
	Editions        []EventEdition `gorm:"foreignKey:EventID;references:EventID"`
	DeletedAt       *time.Time     `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt       time.Time      `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Event) TableName() string { return "catalog.events" }

// EventEdition maps catalog.event_editions, one year's occurrence of an event.
type EventEdition struct {
	EditionID int64      `gorm:"column:edition_id;primaryKey;autoIncrement"`
	EventID   int64      `gorm:"column:event_id;type:bigint;not null;index"`
	Year      string     `gorm:"column:year;type:text;not null"`
	StartDate *time.Time `gorm:"column:start_date;type:timestamptz"`
	Races     []Race     `gorm:"foreignKey:EditionID;references:EditionID"`
	CreatedAt time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (EventEdition) TableName() string { return "catalog.event_editions" }

// Race maps catalog.races.
type Race struct {
	RaceID         int64     `gorm:"column:race_id;primaryKey;autoIncrement"`
	EditionID      int64     `gorm:"column:edition_id;type:bigint;not null;index"`
	Name           string    `gorm:"column:name;type:text;not null;default:''"`
	CategoryLevel1 *string   `gorm:"column:category_level1;type:text"`
	DistanceKm     *float64  `gorm:"column:distance_km;type:double precision"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Race) TableName() string { return "catalog.races" }

// MergeRecommendation maps curation.merge_recommendations, the sink for
// duplicate findings awaiting human review.
type MergeRecommendation struct {
	RecommendationID   int64           `gorm:"column:recommendation_id;primaryKey;autoIncrement"`
	RecommendationUUID string          `gorm:"column:recommendation_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	KeepEventID        int64           `gorm:"column:keep_event_id;type:bigint;not null;index"`
	DuplicateEventID   int64           `gorm:"column:duplicate_event_id;type:bigint;not null;index"`
	Confidence         float64         `gorm:"column:confidence;type:double precision;not null"`
	Status             string          `gorm:"column:status;type:text;not null;default:pending"`
	Justification      json.RawMessage `gorm:"column:justification;type:jsonb;not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (MergeRecommendation) TableName() string { return "curation.merge_recommendations" }

// AgentState maps curation.agent_states, a per-agent checkpoint keyed by a
// state name. The detection sweep persists its ScanProgress here.
type AgentState struct {
	Agent     string          `gorm:"column:agent;type:text;primaryKey"`
	StateName string          `gorm:"column:state_name;type:text;primaryKey"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (AgentState) TableName() string { return "curation.agent_states" }

func autoMigrateModels() []any {
	return []any{
		&Event{},
		&EventEdition{},
		&Race{},
		&MergeRecommendation{},
		&AgentState{},
	}
}
