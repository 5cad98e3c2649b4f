package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewQueue(t *testing.T) {
	q := NewQueue()
	if q == nil {
		t.Fatal("NewQueue() returned nil")
	}

	if q.Count() != 0 {
		t.Errorf("new queue should be empty, got %d jobs", q.Count())
	}
}

func TestEnqueue(t *testing.T) {
	q := NewQueue()

	job := q.Enqueue("test-job-1", nil)
	if job == nil {
		t.Fatal("Enqueue() returned nil")
	}

	if job.ID != "test-job-1" {
		t.Errorf("expected job ID test-job-1, got %s", job.ID)
	}

	if job.Status != StatusPending {
		t.Errorf("expected status pending, got %s", job.Status)
	}

	if q.Count() != 1 {
		t.Errorf("expected 1 job in queue, got %d", q.Count())
	}
}

func TestRun(t *testing.T) {
	q := NewQueue()
	var ran atomic.Int32
	boom := errors.New("boom")

	ok := func(context.Context) error { ran.Add(1); return nil }
	q.Enqueue("job-1", ok)
	failed := q.Enqueue("job-2", func(context.Context) error { ran.Add(1); return boom })
	q.Enqueue("job-3", ok)

	err := q.Run(context.Background(), 2)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to wrap boom, got %v", err)
	}
	if ran.Load() != 3 {
		t.Errorf("expected 3 jobs to run, got %d", ran.Load())
	}
	if failed.Status != StatusFailed || !errors.Is(failed.Err, boom) {
		t.Errorf("expected job-2 failed with boom, got %s %v", failed.Status, failed.Err)
	}
	if q.CountByStatus(StatusDone) != 2 {
		t.Errorf("expected 2 done jobs, got %d", q.CountByStatus(StatusDone))
	}

	// Finished jobs are not run again
	if err := q.Run(context.Background(), 2); err != nil {
		t.Errorf("second run: unexpected error %v", err)
	}
	if ran.Load() != 3 {
		t.Errorf("expected no reruns, got %d executions", ran.Load())
	}

	if n := q.Prune(); n != 3 {
		t.Errorf("expected 3 pruned jobs, got %d", n)
	}
	if q.Count() != 0 {
		t.Errorf("expected empty queue after prune, got %d", q.Count())
	}
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	q := NewQueue()
	var active, peak atomic.Int32

	for range 8 {
		q.Enqueue("job", func(context.Context) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	}

	if err := q.Run(context.Background(), 3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent jobs, saw %d", peak.Load())
	}
}

func TestRunCancelled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := q.Enqueue("job-1", func(context.Context) error {
		t.Error("job should not run after cancellation")
		return nil
	})

	if err := q.Run(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", job.Status)
	}
}
