// Package scheduler drives the periodic dispatch round: a single long-lived
// loop that, at a configurable interval, runs exactly one round to
// completion before the next can start (spec §4.I). It is grounded on
// internal/observability's MetricsCollector.Start/Stop/metricsCollectionLoop
// shape — ticker plus select plus sync.WaitGroup shutdown — but drives its
// own timing through an injectable Clock instead of time.NewTicker, so
// tests can advance rounds without sleeping (spec §9).
package scheduler

import (
	"context"
	"sync"
	"time"

	"ride-dispatch-engine/internal/logging"
)

// Clock is the scheduler's time source: Now for round deadlines and After
// for the inter-round wait, both fakeable in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock is the production Clock.
var RealClock Clock = realClock{}

// RoundFunc runs one dispatch round. A returned error is logged and never
// propagated past the scheduler: per spec §7 a round's failure never stops
// the process.
type RoundFunc func(ctx context.Context) error

// Scheduler runs RoundFunc at Interval, enforcing RoundDeadline per round
// and never starting a new round while the previous one is still running.
type Scheduler struct {
	Interval      time.Duration
	RoundDeadline time.Duration
	Clock         Clock
	Logger        *logging.Logger

	wg   sync.WaitGroup
	done chan struct{}
}

// New builds a Scheduler with the given interval and round deadline. A nil
// clock defaults to RealClock.
func New(interval, roundDeadline time.Duration, clock Clock, logger *logging.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock
	}
	return &Scheduler{
		Interval:      interval,
		RoundDeadline: roundDeadline,
		Clock:         clock,
		Logger:        logger.WithComponent("scheduler"),
		done:          make(chan struct{}),
	}
}

// Run blocks, executing round once per interval until ctx is cancelled. It
// returns once the in-flight round (if any) has finished rolling back or
// committing — callers use this to implement graceful shutdown the same
// way cmd/server's performGracefulShutdown waits out in-flight work.
func (s *Scheduler) Run(ctx context.Context, round RoundFunc) {
	s.wg.Add(1)
	defer s.wg.Done()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("scheduler stopping: context cancelled")
			return
		case <-s.Clock.After(s.Interval):
			s.runOnce(ctx, round)
		}
	}
}

// Wait blocks until Run has returned, for callers that started Run in a
// goroutine and need to know shutdown completed.
func (s *Scheduler) Wait() {
	<-s.done
}

func (s *Scheduler) runOnce(ctx context.Context, round RoundFunc) {
	roundCtx, cancel := context.WithTimeout(ctx, s.RoundDeadline)
	defer cancel()

	start := s.Clock.Now()
	err := round(roundCtx)
	duration := s.Clock.Now().Sub(start)

	if err != nil {
		s.Logger.WithError(err).WithField("duration_ms", duration.Milliseconds()).Error("dispatch round failed")
		return
	}
	s.Logger.WithField("duration_ms", duration.Milliseconds()).Info("dispatch round completed")
}
