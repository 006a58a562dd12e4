package main

import (
	"context"
	"fmt"
	"time"

	"ride-dispatch-engine/internal/assembler"
	"ride-dispatch-engine/internal/cluster"
	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/driverregistry"
	"ride-dispatch-engine/internal/geo"
	"ride-dispatch-engine/internal/logging"
	"ride-dispatch-engine/internal/models"
	"ride-dispatch-engine/internal/notifier"
	"ride-dispatch-engine/internal/observability"
	"ride-dispatch-engine/internal/requeststore"
	"ride-dispatch-engine/internal/retry"
	"ride-dispatch-engine/internal/worker"

	"github.com/google/uuid"
)

// engine holds everything one dispatch round needs. It is built once in
// main and handed to the scheduler as a bound RoundFunc.
type engine struct {
	store    *requeststore.Store
	drivers  *driverregistry.Registry
	notifier *notifier.Notifier
	retries  *retry.Registry
	metrics  *observability.RoundMetrics
	pool     *worker.Pool
	assemble *assembler.Assembler
	cfg      config.DispatchConfig
	logger   *logging.Logger
}

// run implements scheduler.RoundFunc: load every pending request, cluster
// them, and hand the resulting groups to the worker pool for assembly one
// at a time, awaiting each result before the next (spec §4.E-§4.G). A
// request with an unparseable location, every request of a group whose
// Assemble failed, and every request Assemble skipped for capacity is handed
// to the retry registry so it waits out its cooldown before counting again.
// Requests below MinClusterSize are assembled as singletons, not enqueued.
func (e *engine) run(ctx context.Context) error {
	start := time.Now()
	roundID := uuid.New()

	passengers, err := e.store.ListPendingPassengers(ctx)
	if err != nil {
		return err
	}
	deliveries, err := e.store.ListPendingDeliveries(ctx)
	if err != nil {
		return err
	}

	items := make([]cluster.Item, 0, len(passengers)+len(deliveries))
	for _, p := range passengers {
		it, ok := e.toItem(p, p.DepartureTime)
		if !ok {
			continue
		}
		items = append(items, it)
	}
	for _, d := range deliveries {
		it, ok := e.toItem(d, d.CreatedAt)
		if !ok {
			continue
		}
		items = append(items, it)
	}

	e.logger.WithField("pending_requests", len(items)).Debug("dispatch round: pending requests loaded")

	groups := cluster.Cluster(items, cluster.Config{
		MinClusterSize: e.cfg.MinClusterSize,
		Eps:            e.cfg.DBSCANEpsilon,
		MinSamples:     e.cfg.DBSCANMinSamples,
	})

	bucketed := make([]cluster.Group, 0, len(groups))
	for _, g := range groups {
		bucketed = append(bucketed, cluster.Bucket(g, e.assemble.Clock().Now())...)
	}

	clustersFormed, assembled, failed, reserved := 0, 0, 0, 0
	for _, g := range bucketed {
		if len(g.Items) == 0 {
			continue
		}
		clustersFormed++

		outcome, err := e.pool.Submit(ctx, g, func(ctx context.Context, group cluster.Group) (worker.Outcome, error) {
			return e.assemble.Assemble(ctx, group)
		})
		if err != nil {
			failed++
			for _, item := range g.Items {
				e.retries.Enqueue(item.Request.RequestID())
			}
			e.logger.WithError(err).WithField("cluster_label", g.Label).Warn("cluster assembly failed")
			e.recordFailure(ctx, roundID, g.Label, err)
			continue
		}

		result := outcome.(*assembler.Result)
		assembled++
		if !result.Reused {
			reserved++
		}
		for _, id := range result.Skipped {
			e.retries.Enqueue(id)
		}
	}

	e.retries.Purge()
	duration := time.Since(start)
	e.metrics.RecordRound(ctx, duration, clustersFormed, assembled, failed, reserved)
	e.recordRoundSummary(ctx, roundID, duration, clustersFormed, assembled, failed, reserved)
	return nil
}

// recordRoundSummary persists this round's outcome as a system_metrics row
// per counter plus one event_logs row, the durable counterpart to the
// RecordRound call above. Logged but never returned: a failure to persist
// observability rows must not fail the round itself.
func (e *engine) recordRoundSummary(ctx context.Context, roundID uuid.UUID, duration time.Duration, clustersFormed, assembled, failed, reserved int) {
	metrics := []struct {
		name  string
		value float64
	}{
		{"dispatch_round_duration_seconds", duration.Seconds()},
		{"dispatch_clusters_formed", float64(clustersFormed)},
		{"dispatch_groups_assembled", float64(assembled)},
		{"dispatch_groups_failed", float64(failed)},
		{"dispatch_drivers_reserved", float64(reserved)},
	}
	for _, m := range metrics {
		if err := e.store.RecordMetric(ctx, m.name, models.MetricTypeGauge, m.value, "dispatch_round"); err != nil {
			e.logger.WithError(err).WithField("metric", m.name).Warn("failed to persist round metric")
		}
	}

	if err := e.store.RecordEvent(ctx, &models.EventLog{
		RoundID:       roundID,
		EventType:     "round_completed",
		EventCategory: models.EventCategorySystem,
		Component:     "scheduler",
		Severity:      models.EventSeverityInfo,
		Message:       "dispatch round completed",
		Timestamp:     time.Now(),
	}); err != nil {
		e.logger.WithError(err).Warn("failed to persist round summary event")
	}
}

// recordFailure persists one failed cluster as an error-severity event, tied
// to the round it happened in.
func (e *engine) recordFailure(ctx context.Context, roundID uuid.UUID, clusterLabel int, cause error) {
	label := fmt.Sprintf("%d", clusterLabel)
	if err := e.store.RecordEvent(ctx, &models.EventLog{
		RoundID:       roundID,
		EventType:     "cluster_assembly_failed",
		EventCategory: models.EventCategoryError,
		Component:     "assembler",
		EntityType:    strPtr("cluster"),
		EntityID:      &label,
		Severity:      models.EventSeverityError,
		Message:       cause.Error(),
		Timestamp:     time.Now(),
	}); err != nil {
		e.logger.WithError(err).Warn("failed to persist cluster failure event")
	}
}

func strPtr(s string) *string { return &s }

// toItem parses a pending request's endpoints into geo.Points. A request
// whose coordinates fail to parse is invalid data, not a capacity problem,
// so it is routed straight to the retry registry rather than clustered.
func (e *engine) toItem(req models.PendingRequest, departure time.Time) (cluster.Item, bool) {
	fromStr, toStr := req.Endpoints()
	from, ok1 := geo.Parse(fromStr)
	to, ok2 := geo.Parse(toStr)
	if !ok1 || !ok2 {
		e.retries.Enqueue(req.RequestID())
		e.logger.WithField("request_id", req.RequestID()).Warn("dropping request with unparseable coordinates this round")
		return cluster.Item{}, false
	}
	return cluster.Item{Request: req, From: from, To: to, DepartureTime: departure}, true
}
