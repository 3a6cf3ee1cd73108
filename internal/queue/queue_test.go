package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueProcessesJob(t *testing.T) {
	q := New(10, 1, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var processed int32
	done := make(chan struct{})
	ok := q.Enqueue(Job{
		ID:     "weekly.json",
		Source: "test",
		Work: func(ctx context.Context) error {
			atomic.AddInt32(&processed, 1)
			return nil
		},
		OnFinish: func(err error) {
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			close(done)
		},
	})
	if !ok {
		t.Fatalf("expected enqueue to succeed")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job did not complete")
	}
	if atomic.LoadInt32(&processed) != 1 {
		t.Fatalf("job not processed")
	}
}

func TestQueueTimeoutAndBounded(t *testing.T) {
	q := New(1, 0, 100*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	ok := q.Enqueue(Job{ID: "slow", Source: "test", Work: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	if !ok {
		t.Fatalf("expected first enqueue to succeed")
	}

	if ok := q.Enqueue(Job{ID: "drop", Source: "test", Work: func(ctx context.Context) error { return nil }}); ok {
		t.Fatalf("expected enqueue to be rejected when queue is full")
	}
	if got := q.Stats().Length; got != 1 {
		t.Fatalf("expected queue length 1, got %d", got)
	}
}

func TestJobTimeoutIsReported(t *testing.T) {
	q := New(1, 1, 20*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	errs := make(chan error, 1)
	q.Enqueue(Job{ID: "slow", Source: "test",
		Work:     func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() },
		OnFinish: func(err error) { errs <- err },
	})
	select {
	case err := <-errs:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("job did not time out")
	}
}

func TestPanicCountsAsFailure(t *testing.T) {
	q := New(1, 1, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	errs := make(chan error, 1)
	q.Enqueue(Job{ID: "boom", Source: "test",
		Work:     func(ctx context.Context) error { panic("bad report") },
		OnFinish: func(err error) { errs <- err },
	})
	select {
	case err := <-errs:
		if err == nil {
			t.Fatalf("expected panic to surface as error")
		}
	case <-time.After(time.Second):
		t.Fatalf("job did not finish")
	}
	deadline := time.Now().Add(time.Second)
	for q.Stats().Failed != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected failed counter to be 1, got %d", q.Stats().Failed)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEnqueueWithRetryDropsWhenFull(t *testing.T) {
	q := New(1, 0, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	// Fill the queue so the retry path triggers.
	first := q.Enqueue(Job{ID: "first", Source: "test", Work: func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }})
	if !first {
		t.Fatalf("expected initial enqueue to succeed")
	}

	enqueued, dropped := q.EnqueueWithRetry(ctx, Job{ID: "retry", Source: "test", Work: func(ctx context.Context) error { return nil }}, 200*time.Millisecond, 50*time.Millisecond)
	if enqueued {
		t.Fatalf("expected enqueue to fail due to full queue")
	}
	if !dropped {
		t.Fatalf("expected enqueue to be reported as dropped after retries")
	}
}

func TestStopRejectsNewJobs(t *testing.T) {
	q := New(4, 1, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if q.Enqueue(Job{ID: "early", Work: func(context.Context) error { return nil }}) {
		t.Fatalf("expected enqueue before start to fail")
	}
	q.Start(ctx)
	if !q.Healthy() {
		t.Fatalf("expected started queue to be healthy")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	q.Stop(stopCtx)
	q.Stop(stopCtx)

	if q.Healthy() {
		t.Fatalf("expected stopped queue to be unhealthy")
	}
	if q.Enqueue(Job{ID: "late", Work: func(context.Context) error { return nil }}) {
		t.Fatalf("expected enqueue after stop to fail")
	}
}
