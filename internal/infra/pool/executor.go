package pool

import (
	"context"
	"log/slog"
	"sync"

	"notigram/internal/domain/notification"

	"golang.org/x/sync/semaphore"
)

var (
	_ notification.Executor = (*Executor)(nil)
	_ notification.Drainer  = (*Executor)(nil)
)

// DefaultWorkers is used when NewExecutor receives a non-positive limit.
const DefaultWorkers = 4

// Executor runs dispatches on goroutines, at most `workers` at a time.
//
// Submit never blocks: when every slot is busy the task is rejected with
// notification.ErrExecutorFull. There is no queue.
type Executor struct {
	run      func(ctx context.Context, task notification.DispatchTask)
	sem      *semaphore.Weighted
	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
	logger   *slog.Logger
}

// NewExecutor creates an executor that hands each task to run.
func NewExecutor(run func(ctx context.Context, task notification.DispatchTask), workers int, logger *slog.Logger) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		run:    run,
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logger,
	}
}

// Submit starts the task on a free slot. It returns notification.ErrExecutorFull
// when every slot is busy and notification.ErrExecutorClosed after Wait.
func (e *Executor) Submit(task notification.DispatchTask) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return notification.ErrExecutorClosed
	}
	if !e.sem.TryAcquire(1) {
		e.mu.Unlock()
		return notification.ErrExecutorFull
	}
	e.inflight.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.inflight.Done()
		defer e.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("dispatch panicked", "panic", r)
			}
		}()

		// Background dispatches are never cancelled once started.
		e.run(context.Background(), task)
	}()
	return nil
}

// Wait stops accepting tasks and blocks until every started dispatch
// finished or ctx is done.
func (e *Executor) Wait(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
