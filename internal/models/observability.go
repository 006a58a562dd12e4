package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MetricType represents the type of metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// SystemMetric is a point-in-time reading persisted alongside the
// Prometheus/OTel series, keyed by the dispatch component that emitted it
// (scheduler, cluster, selector, assembler, retry) rather than by actor.
type SystemMetric struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	MetricName  string          `json:"metric_name" db:"metric_name"`
	MetricType  MetricType      `json:"metric_type" db:"metric_type"`
	MetricValue float64         `json:"metric_value" db:"metric_value"`
	Labels      json.RawMessage `json:"labels" db:"labels"`
	Component   string          `json:"component" db:"component"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// EventCategory represents the category of an event.
type EventCategory string

const (
	EventCategoryBusiness    EventCategory = "business"
	EventCategorySystem      EventCategory = "system"
	EventCategoryError       EventCategory = "error"
	EventCategoryPerformance EventCategory = "performance"
)

// EventSeverity represents the severity of an event.
type EventSeverity string

const (
	EventSeverityDebug EventSeverity = "debug"
	EventSeverityInfo  EventSeverity = "info"
	EventSeverityWarn  EventSeverity = "warn"
	EventSeverityError EventSeverity = "error"
)

// EventLog is a structured record of one dispatch-round event: a cluster
// processed, a driver reservation conflict, a round that timed out. It is
// the durable counterpart to the round's slog output.
type EventLog struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	RoundID       uuid.UUID       `json:"round_id" db:"round_id"`
	EventType     string          `json:"event_type" db:"event_type"`
	EventCategory EventCategory   `json:"event_category" db:"event_category"`
	Component     string          `json:"component" db:"component"`
	EntityType    *string         `json:"entity_type,omitempty" db:"entity_type"`
	EntityID      *string         `json:"entity_id,omitempty" db:"entity_id"`
	EventData     json.RawMessage `json:"event_data" db:"event_data"`
	Severity      EventSeverity   `json:"severity" db:"severity"`
	Message       string          `json:"message" db:"message"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
