// Package observability wires dispatch-round telemetry: OpenTelemetry
// metrics exported to Prometheus and traces exported over OTLP/HTTP. It
// replaces the teacher's actor-message/trace-table collector (grounded on
// internal/actor, persisted to Postgres) with instruments aimed at the
// periodic batch round instead of per-actor mailboxes — the worker pool's
// actors are not instrumented; only rounds, clusters, and driver
// reservations are.
package observability

import (
	"context"
	"fmt"
	"time"

	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// RoundMetrics holds the instruments recorded once per dispatch round
// (spec §4.I) and is safe for concurrent use by the scheduler's RoundFunc.
type RoundMetrics struct {
	logger *logging.Logger

	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	roundDuration    metric.Float64Histogram
	clustersFormed   metric.Int64Counter
	groupsAssembled  metric.Int64Counter
	groupsFailed     metric.Int64Counter
	driversReserved  metric.Int64Counter
	retryQueueDepth  metric.Int64ObservableGauge
	retryDepthSource func() int64
}

// NewRoundMetrics builds the meter/tracer providers and instruments. When
// cfg.MetricsEnabled is false the returned RoundMetrics records into a
// no-op provider, so callers never need a nil check.
func NewRoundMetrics(ctx context.Context, cfg *config.OpenTelemetryConfig, logger *logging.Logger) (*RoundMetrics, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceNameKey.String(cfg.ServiceName),
		semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("merge otel resource: %w", err)
	}

	rm := &RoundMetrics{logger: logger.WithComponent("observability")}

	var meterOpts []sdkmetric.Option
	meterOpts = append(meterOpts, sdkmetric.WithResource(res))
	if cfg.MetricsEnabled {
		exporter, err := otelprom.New()
		if err != nil {
			return nil, fmt.Errorf("new prometheus exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(exporter))
	}
	rm.meterProvider = sdkmetric.NewMeterProvider(meterOpts...)
	meter := rm.meterProvider.Meter("ride-dispatch-engine/dispatch")

	if cfg.TracingEnabled {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("new otlp trace exporter: %w", err)
		}
		rm.tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
		)
	} else {
		rm.tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	}
	rm.tracer = rm.tracerProvider.Tracer("ride-dispatch-engine/dispatch")

	if rm.roundDuration, err = meter.Float64Histogram("dispatch_round_duration_seconds",
		metric.WithDescription("wall-clock duration of a completed dispatch round")); err != nil {
		return nil, err
	}
	if rm.clustersFormed, err = meter.Int64Counter("dispatch_clusters_formed_total",
		metric.WithDescription("groups produced by clustering across all rounds")); err != nil {
		return nil, err
	}
	if rm.groupsAssembled, err = meter.Int64Counter("dispatch_groups_assembled_total",
		metric.WithDescription("groups successfully assembled into a trip")); err != nil {
		return nil, err
	}
	if rm.groupsFailed, err = meter.Int64Counter("dispatch_groups_failed_total",
		metric.WithDescription("groups that failed assembly and were sent to retry")); err != nil {
		return nil, err
	}
	if rm.driversReserved, err = meter.Int64Counter("dispatch_drivers_reserved_total",
		metric.WithDescription("successful driver reservations")); err != nil {
		return nil, err
	}

	return rm, nil
}

// Meter returns the round meter, for callers (cmd/dispatcher) that need to
// register their own instruments such as the retry queue depth gauge.
func (rm *RoundMetrics) Meter() metric.Meter {
	return rm.meterProvider.Meter("ride-dispatch-engine/dispatch")
}

// ObserveRetryDepth registers a callback gauge backed by source, called by
// the Prometheus scrape/OTel collection pass. Call once at startup with the
// retry registry's depth accessor.
func (rm *RoundMetrics) ObserveRetryDepth(meter metric.Meter, source func() int64) error {
	gauge, err := meter.Int64ObservableGauge("dispatch_retry_queue_depth",
		metric.WithDescription("number of requests currently waiting in the retry queue"))
	if err != nil {
		return err
	}
	rm.retryQueueDepth = gauge
	rm.retryDepthSource = source
	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, rm.retryDepthSource())
		return nil
	}, gauge)
	return err
}

// RecordRound records one completed round's duration and outcome counts.
func (rm *RoundMetrics) RecordRound(ctx context.Context, duration time.Duration, clusters, assembled, failed, reserved int) {
	rm.roundDuration.Record(ctx, duration.Seconds())
	rm.clustersFormed.Add(ctx, int64(clusters))
	rm.groupsAssembled.Add(ctx, int64(assembled))
	rm.groupsFailed.Add(ctx, int64(failed))
	rm.driversReserved.Add(ctx, int64(reserved))
}

// StartSpan opens a trace span for one round; callers must end the
// returned span when the round finishes.
func (rm *RoundMetrics) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return rm.tracer.Start(ctx, name)
}

// Shutdown flushes and closes the meter/tracer providers.
func (rm *RoundMetrics) Shutdown(ctx context.Context) error {
	if err := rm.tracerProvider.Shutdown(ctx); err != nil {
		return err
	}
	return rm.meterProvider.Shutdown(ctx)
}

// Registry exposes the default Prometheus registry promhttp serves,
// kept separate from the OTel exporter's own registration so
// cmd/dispatcher can mount /metrics without importing otel internals.
var Registry = prometheus.DefaultRegisterer
