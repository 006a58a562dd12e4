package worker

import (
	"context"
	"sync"
	"testing"

	"ride-dispatch-engine/internal/cluster"
	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/logging"

	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(&config.LoggingConfig{Output: "stdout", Level: "error"})
	require.NoError(t, err)
	return logger
}

func TestPool_SubmitRunsEveryGroupConcurrently(t *testing.T) {
	pool := New(3, testLogger(t))
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	groups := make([]cluster.Group, 8)
	for i := range groups {
		groups[i] = cluster.Group{Label: i}
	}

	var wg sync.WaitGroup
	results := make([]int, len(groups))
	for i, g := range groups {
		wg.Add(1)
		go func(i int, g cluster.Group) {
			defer wg.Done()
			out, err := pool.Submit(context.Background(), g, func(ctx context.Context, group cluster.Group) (Outcome, error) {
				return group.Label, nil
			})
			require.NoError(t, err)
			results[i] = out.(int)
		}(i, g)
	}
	wg.Wait()

	for i, got := range results {
		require.Equal(t, i, got)
	}
}

func TestPool_SubmitPropagatesError(t *testing.T) {
	pool := New(1, testLogger(t))
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	_, err := pool.Submit(context.Background(), cluster.Group{}, func(ctx context.Context, group cluster.Group) (Outcome, error) {
		return nil, context.DeadlineExceeded
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
