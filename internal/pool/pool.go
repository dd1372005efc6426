// Package pool bounds the number of simultaneous sync cycles.
//
// The pool is a counting semaphore with strict FIFO fairness: a
// release wakes the longest-waiting caller, which becomes active
// without re-checking the limit against new arrivals. The pool itself
// carries no timeout or cancellation policy; callers needing deadlines
// pass their own context to Acquire and must still call Release
// exactly once per successful Acquire.
package pool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool limits concurrent holders to a fixed count.
type Pool struct {
	sem   *semaphore.Weighted
	limit int
}

// New creates a pool admitting at most limit concurrent holders.
// A limit below 1 is treated as 1.
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{
		sem:   semaphore.NewWeighted(int64(limit)),
		limit: limit,
	}
}

// Acquire obtains a slot, suspending the caller while the pool is at
// capacity. Waiters are woken in FIFO order. Returns the context error
// if ctx is cancelled while waiting.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// TryAcquire obtains a slot without blocking. Returns false if the
// pool is at capacity or other callers are already queued.
func (p *Pool) TryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// Release frees a slot and wakes the longest-waiting caller, if any.
// Calling Release without a matching Acquire is a programming error.
func (p *Pool) Release() {
	p.sem.Release(1)
}

// Limit returns the configured concurrency bound.
func (p *Pool) Limit() int {
	return p.limit
}
