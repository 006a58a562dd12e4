package requeststore

import (
	"context"
	"encoding/json"
	"time"

	"ride-dispatch-engine/internal/models"

	"github.com/google/uuid"
)

// RecordMetric persists one SystemMetric row alongside the OTel/Prometheus
// series, giving each round's counters a queryable, durable history that
// survives Prometheus's retention window.
func (s *Store) RecordMetric(ctx context.Context, name string, metricType models.MetricType, value float64, component string) error {
	query := `INSERT INTO system_metrics (id, metric_name, metric_type, metric_value, labels, component, timestamp, created_at)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query, uuid.New(), name, metricType, value, json.RawMessage(`{}`), component, now, now)
	return classify(err)
}

// RecordEvent persists one EventLog row, the durable counterpart to the
// round's slog output (spec §4.I's round summary and §7's failure paths).
func (s *Store) RecordEvent(ctx context.Context, log *models.EventLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.EventData == nil {
		log.EventData = json.RawMessage(`{}`)
	}
	log.CreatedAt = time.Now()

	query := `INSERT INTO event_logs (id, round_id, event_type, event_category, component, entity_type, entity_id,
	                 event_data, severity, message, timestamp, created_at)
	          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := s.db.ExecContext(ctx, query, log.ID, log.RoundID, log.EventType, log.EventCategory, log.Component,
		log.EntityType, log.EntityID, log.EventData, log.Severity, log.Message, log.Timestamp, log.CreatedAt)
	return classify(err)
}
