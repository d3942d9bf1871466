package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerQueueRunsEveryJob(t *testing.T) {
	var (
		mu      sync.Mutex
		results []Result
		active  atomic.Int32
		peak    atomic.Int32
	)
	handle := func(ctx context.Context, job Job) error {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		if job.ID == "bad" {
			return errors.New("boom")
		}
		return nil
	}
	q := NewWorkerQueue(handle, nil,
		WithWorkers(2),
		WithQueueSize(1),
		WithResults(func(r Result) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		}))

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.NoError(t, q.Enqueue(ctx, Job{ID: fmt.Sprint(i)}))
	}
	require.NoError(t, q.Enqueue(ctx, Job{ID: "bad"}))
	q.Shutdown(ctx)

	require.Len(t, results, 7)
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.Equal(t, "bad", r.Job.ID)
		}
		assert.False(t, r.Job.SubmittedAt.IsZero())
	}
	assert.Equal(t, 1, failed)
	assert.LessOrEqual(t, peak.Load(), int32(2))

	assert.ErrorIs(t, q.Enqueue(ctx, Job{ID: "late"}), ErrQueueClosed)
	q.Shutdown(ctx)
}

func TestWorkerQueueJobTimeout(t *testing.T) {
	errs := make(chan error, 1)
	q := NewWorkerQueue(func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		return ctx.Err()
	}, nil, WithWorkers(1), WithJobTimeout(10*time.Millisecond), WithResults(func(r Result) { errs <- r.Err }))

	require.NoError(t, q.Enqueue(context.Background(), Job{ID: "slow"}))
	assert.ErrorIs(t, <-errs, context.DeadlineExceeded)
	q.Shutdown(context.Background())
}

func TestEnqueueHonoursContextWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewWorkerQueue(func(context.Context, Job) error { <-release; return nil }, nil, WithWorkers(1), WithQueueSize(1))

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, Job{ID: "running"}))
	// wait for the worker to take the first job
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, Job{ID: "queued"}))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Enqueue(short, Job{ID: "blocked"}), context.DeadlineExceeded)

	close(release)
	q.Shutdown(ctx)
}
