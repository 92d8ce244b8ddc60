package notification

import (
	"context"
	"errors"
)

// ErrExecutorFull is returned by an Executor that has no free capacity.
// The task is dropped; callers are never blocked.
var ErrExecutorFull = errors.New("dispatch executor at capacity")

// ErrExecutorClosed is returned by an Executor that is draining for shutdown.
var ErrExecutorClosed = errors.New("dispatch executor closed")

// PostRequest is one chunk delivery.
type PostRequest struct {
	Token     string
	ChatID    string
	Text      string
	ParseMode string
	Timeouts  Timeouts
}

// Transport performs a single delivery call to the messaging endpoint.
// Implementations live in infra/telegram/.
type Transport interface {
	// Post delivers one chunk. Any non-200 answer or network failure is
	// returned as a *common.TransportError.
	Post(ctx context.Context, req PostRequest) error
}

// Formatter turns a host event into displayable text.
// Implementations live in infra/template/.
type Formatter interface {
	Format(event Event) (string, error)
}

// Executor runs dispatch work off the caller's path.
// Implementations live in infra/pool/ and infra/queue/.
type Executor interface {
	// Submit schedules the task and returns immediately.
	Submit(task DispatchTask) error
}

// Drainer is implemented by executors that can wait for in-flight work.
// After Wait is called the executor rejects new tasks.
type Drainer interface {
	Wait(ctx context.Context) error
}
