// Package types defines the shared data model for the feeder daemon.
package types

import (
	"time"
)

// EventKind classifies a feeding event.
type EventKind string

const (
	// EventEating is a weight drop detected by the monitoring loop.
	EventEating EventKind = "eating"
	// EventFoodAdded is a weight increase detected by the monitoring loop.
	EventFoodAdded EventKind = "food_added"
	// EventAutomaticFeed is a dispense triggered by a schedule.
	EventAutomaticFeed EventKind = "automatic_feed"
	// EventManualFeed is a dispense triggered by a user action.
	EventManualFeed EventKind = "manual_feed"
)

// Source tags recorded alongside feeding log entries.
const (
	SourceAutoDetected = "Auto Detected"
	SourceManual       = "Manual"
	SourceScheduled    = "Scheduled"
)

// UnknownCatName is the sentinel identity used when an eating event cannot
// be attributed to a specific cat.
const UnknownCatName = "Unknown"

// FeedingEvent is an append-only record of food leaving or entering the
// bowl. Produced by the event detector (eating/food added) or the feed
// actuator (automatic/manual feed) and handed to the storage engines.
// Never mutated after creation.
type FeedingEvent struct {
	Timestamp   time.Time `gorm:"column:time" json:"timestamp"`
	Kind        EventKind `gorm:"column:kind" json:"kind"`
	CatID       int64     `gorm:"column:cat_id" json:"cat_id,omitempty"`
	AmountGrams float64   `gorm:"column:amount_grams" json:"amount_grams"`
	Source      string    `gorm:"column:source" json:"source"`
}

// TableName customizes the table name used by GORM-backed storage engines.
func (FeedingEvent) TableName() string {
	return "feeding_events"
}

// SensorSample is one raw acquisition from the rig. Ephemeral; only the
// monitoring loop's last-sample slot outlives a cycle.
type SensorSample struct {
	Timestamp    time.Time
	RawWeight    float64
	RawWaterEcho float64
}

// Status is the externally-visible snapshot of the rig. Overwritten every
// monitoring cycle; single writer, many readers.
type Status struct {
	Timestamp         time.Time `json:"timestamp"`
	FoodWeightGrams   float64   `json:"food_weight"`
	WaterLevelPercent float64   `json:"water_level"`
	HardwareAvailable bool      `json:"hardware_available"`
}

// AlertKind identifies a monitored low condition.
type AlertKind string

const (
	AlertFoodLow  AlertKind = "food_low"
	AlertWaterLow AlertKind = "water_low"
)

// Alert is raised once on the falling edge of a threshold crossing and
// held active until the value recovers.
type Alert struct {
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedResult is the caller-visible outcome of a dispense request.
type FeedResult struct {
	Success         bool    `json:"success"`
	Message         string  `json:"message"`
	RequestID       string  `json:"request_id,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// IdentificationResult is the caller-visible outcome of a camera
// identification request.
type IdentificationResult struct {
	Success    bool    `json:"success"`
	CatID      int64   `json:"cat_id,omitempty"`
	CatName    string  `json:"cat_name,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Cat is a registered cat identity from the feeding log store.
type Cat struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
