// Package jobs provides background job queue management and async task processing.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the lifecycle state of a job
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Func is the work a job performs
type Func func(ctx context.Context) error

// Job represents a background job
type Job struct {
	ID         string
	Status     Status
	Err        error
	CreatedAt  time.Time
	FinishedAt time.Time

	fn Func
}

// Queue manages background jobs
type Queue struct {
	mu   sync.Mutex
	jobs []*Job
}

// NewQueue creates a new job queue
func NewQueue() *Queue {
	return &Queue{
		jobs: make([]*Job, 0),
	}
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(id string, fn Func) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := &Job{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		fn:        fn,
	}
	q.jobs = append(q.jobs, job)
	return job
}

// Count returns the number of jobs in the queue
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// CountByStatus returns the number of jobs in the given state
func (q *Queue) CountByStatus(status Status) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, job := range q.jobs {
		if job.Status == status {
			n++
		}
	}
	return n
}

// Prune drops finished jobs and returns how many were removed
func (q *Queue) Prune() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.jobs[:0]
	for _, job := range q.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			kept = append(kept, job)
		}
	}
	removed := len(q.jobs) - len(kept)
	clear(q.jobs[len(kept):])
	q.jobs = kept
	return removed
}

// Run executes every pending job with at most workers running at once.
// Failed jobs do not stop the others; their errors are joined in the result.
func (q *Queue) Run(ctx context.Context, workers int) error {
	if workers <= 0 {
		workers = 1
	}

	q.mu.Lock()
	pending := make([]*Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status == StatusPending {
			job.Status = StatusRunning
			pending = append(pending, job)
		}
	}
	q.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(workers)
	for _, job := range pending {
		g.Go(func() error {
			err := ctx.Err()
			if err == nil && job.fn != nil {
				err = job.fn(ctx)
			}
			q.finish(job, err)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("job %s: %w", job.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (q *Queue) finish(job *Job, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Err = err
	job.FinishedAt = time.Now()
	if err != nil {
		job.Status = StatusFailed
	} else {
		job.Status = StatusDone
	}
}
