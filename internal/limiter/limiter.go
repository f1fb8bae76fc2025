// Package limiter bounds how many tasks run at once. Waiting tasks are
// admitted in the order they asked for a slot.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Limiter admits at most n concurrent tasks. It is safe for concurrent use.
type Limiter struct {
	sem     *semaphore.Weighted
	size    int
	active  atomic.Int64
	pending atomic.Int64
}

// New returns a limiter with n slots. n below 1 is treated as 1.
func New(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size is the concurrency bound.
func (l *Limiter) Size() int { return l.size }

// ActiveCount is the number of tasks currently running.
func (l *Limiter) ActiveCount() int { return int(l.active.Load()) }

// PendingCount is the number of tasks waiting for a slot.
func (l *Limiter) PendingCount() int { return int(l.pending.Load()) }

func (l *Limiter) acquire(ctx context.Context) error {
	l.pending.Add(1)
	defer l.pending.Add(-1)
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.active.Add(1)
	return nil
}

func (l *Limiter) release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// Do waits for a slot, runs fn and frees the slot. It returns ctx.Err()
// without running fn if ctx ends while waiting.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return fn(ctx)
}

// Task produces one result.
type Task[T any] func(ctx context.Context) (T, error)

// All runs tasks through l and returns their results in submission order.
// Tasks are admitted one by one in order, never more than l.Size() at once.
// After the first failure no further task is admitted; tasks already running
// finish, and the first error is returned.
// Admitted tasks get ctx itself, so a failing sibling never cancels them.
func All[T any](ctx context.Context, l *Limiter, tasks []Task[T]) ([]T, error) {
	results := make([]T, len(tasks))

	admit, stop := context.WithCancel(ctx)
	defer stop()

	var g errgroup.Group
	var admitErr error
	for i, task := range tasks {
		// admission happens here, in order, so FIFO holds across the batch
		if err := l.acquire(admit); err != nil {
			admitErr = err
			break
		}
		g.Go(func() error {
			res, err := task(ctx)
			if err != nil {
				// close admission before the slot frees up
				stop()
				l.release()
				return err
			}
			results[i] = res
			l.release()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, admitErr
}
