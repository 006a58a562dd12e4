package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock lets a test fire ticks on demand instead of sleeping.
type manualClock struct {
	mu   sync.Mutex
	now  time.Time
	tick chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(0, 0), tick: make(chan time.Time)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	return c.tick
}

func (c *manualClock) fire() {
	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	c.mu.Unlock()
	c.tick <- c.now
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(&config.LoggingConfig{Output: "stdout", Level: "error"})
	require.NoError(t, err)
	return logger
}

func TestScheduler_RunsOneRoundPerTick(t *testing.T) {
	clock := newManualClock()
	s := New(time.Second, 5*time.Second, clock, testLogger(t))

	var rounds int32
	ctx, cancel := context.WithCancel(context.Background())

	go s.Run(ctx, func(ctx context.Context) error {
		atomic.AddInt32(&rounds, 1)
		return nil
	})

	clock.fire()
	clock.fire()

	// give the round goroutine a moment to observe the tick and run
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&rounds) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	cancel()
	s.Wait()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&rounds), int32(2))
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	clock := newManualClock()
	s := New(time.Second, 5*time.Second, clock, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx, func(ctx context.Context) error { return nil })

	cancel()
	s.Wait()
}

func TestScheduler_RoundErrorDoesNotStopLoop(t *testing.T) {
	clock := newManualClock()
	s := New(time.Second, 5*time.Second, clock, testLogger(t))

	var rounds int32
	ctx, cancel := context.WithCancel(context.Background())

	go s.Run(ctx, func(ctx context.Context) error {
		atomic.AddInt32(&rounds, 1)
		return assert.AnError
	})

	clock.fire()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&rounds) < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	cancel()
	s.Wait()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&rounds), int32(1))
}
