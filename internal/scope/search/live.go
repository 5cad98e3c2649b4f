package search

import (
	"context"
	"sync"
	"time"
)

// LiveResult is delivered to the Live callback once per settled query
type LiveResult struct {
	Query   string
	Outcome Outcome
	Err     error
}

// Live runs SearchWithFallback for a changing query, debounced.
//
// Each Update restarts the delay and cancels a search still in flight. A
// result is delivered only if no newer Update happened while it ran, so
// callbacks never observe results out of order. Callbacks run on timer
// goroutines but never concurrently with each other.
type Live struct {
	mu       sync.Mutex
	delay    time.Duration
	fn       Func
	opts     []Option
	onResult func(LiveResult)

	timer  *time.Timer
	cancel context.CancelFunc
	seq    uint64 // sequence number to detect stale searches
	closed bool

	deliver sync.Mutex // serializes onResult
}

// NewLive creates a debounced searcher. onResult receives every result that
// is still current when its search completes.
func NewLive(delay time.Duration, fn Func, onResult func(LiveResult), opts ...Option) *Live {
	return &Live{
		delay:    delay,
		fn:       fn,
		opts:     opts,
		onResult: onResult,
	}
}

// Update schedules a search for query after the debounce delay
func (l *Live) Update(query string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.stopLocked()
	l.seq++
	currentSeq := l.seq

	l.timer = time.AfterFunc(l.delay, func() {
		l.run(query, currentSeq)
	})
}

func (l *Live) run(query string, seq uint64) {
	l.mu.Lock()
	if l.closed || l.seq != seq {
		l.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.timer = nil
	l.cancel = cancel
	l.mu.Unlock()

	out, err := SearchWithFallback(ctx, query, l.fn, l.opts...)
	cancel()

	l.deliver.Lock()
	defer l.deliver.Unlock()

	// Only deliver if no newer query superseded this one
	l.mu.Lock()
	current := !l.closed && l.seq == seq
	if current {
		l.cancel = nil
	}
	l.mu.Unlock()
	if !current || l.onResult == nil {
		return
	}
	l.onResult(LiveResult{Query: query, Outcome: out, Err: err})
}

// Pending reports whether a search is scheduled or running
func (l *Live) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timer != nil || l.cancel != nil
}

// Cancel drops any scheduled or running search without closing
func (l *Live) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
	l.seq++
}

// Close cancels pending work; later Updates are ignored
func (l *Live) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
	l.seq++
	l.closed = true
}

// stopLocked stops the timer and in-flight search (must hold lock)
func (l *Live) stopLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
