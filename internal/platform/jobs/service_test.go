package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (c *countingReconciler) ReconcileParents(context.Context) (int, error) {
	c.calls.Add(1)
	return 3, c.err
}

func TestReconcileNowRecordsRun(t *testing.T) {
	rec := &countingReconciler{}
	svc := New(rec, 0, nil)

	run, err := svc.ReconcileNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, JobRollupReconcile, run.JobType)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, map[string]any{"parents": 3}, run.Details)
	require.NotNil(t, run.CompletedAt)

	runs := svc.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestFailedRunKeepsError(t *testing.T) {
	svc := New(&countingReconciler{err: errors.New("db down")}, 0, nil)
	run, err := svc.ReconcileNow(context.Background())
	require.Error(t, err)
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, "db down", run.Error)
}

func TestHistoryIsBounded(t *testing.T) {
	svc := New(&countingReconciler{}, 0, nil)
	for i := 0; i < historySize+5; i++ {
		_, err := svc.RunNow(context.Background(), "noop", func(context.Context) (any, error) { return i, nil })
		require.NoError(t, err)
	}
	runs := svc.Runs()
	require.Len(t, runs, historySize)
	assert.Equal(t, historySize+4, runs[0].Details)
}

func TestSchedulerReconcilesPeriodically(t *testing.T) {
	rec := &countingReconciler{}
	svc := New(rec, 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	assert.Eventually(t, func() bool { return rec.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestEnqueueRunsOnWorker(t *testing.T) {
	svc := New(nil, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	done := make(chan struct{})
	require.True(t, svc.Enqueue("custom", func(context.Context) (any, error) {
		close(done)
		return nil, nil
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestReconcileWithoutReconciler(t *testing.T) {
	svc := New(nil, 0, nil)
	run, err := svc.ReconcileNow(context.Background())
	require.ErrorIs(t, err, ErrNoReconciler)
	assert.Equal(t, "failed", run.Status)
}
