package bootstrap

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"artix/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunJobsKeepsGoingAfterFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var failing, healthy atomic.Int32
	jobs := []Job{
		{Name: "test_failing", Run: func(context.Context) error {
			failing.Add(1)
			return errors.New("ledger down")
		}},
		{Name: "test_healthy", Run: func(context.Context) error {
			if healthy.Add(1) == 2 {
				cancel()
			}
			return nil
		}},
	}

	errorsBefore := testutil.ToFloat64(metrics.WorkerRuns.WithLabelValues("test_failing", "error"))
	done := make(chan error, 1)
	go func() { done <- RunJobs(ctx, 10*time.Millisecond, jobs, nil) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("job loop did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, failing.Load(), int32(2))
	assert.Equal(t, int32(2), healthy.Load())
	assert.Equal(t, errorsBefore+float64(failing.Load()),
		testutil.ToFloat64(metrics.WorkerRuns.WithLabelValues("test_failing", "error")))
}

func TestNormalizeAddr(t *testing.T) {
	assert.Equal(t, ":8080", normalizeAddr(""))
	assert.Equal(t, ":9000", normalizeAddr("9000"))
	assert.Equal(t, ":9000", normalizeAddr(":9000"))
}
