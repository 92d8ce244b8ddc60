package queue

import (
	"context"
	"fmt"

	"notigram/internal/domain/notification"

	"github.com/hibiken/asynq"
)

// QueueName is the asynq queue carrying dispatch tasks.
const QueueName = "notifications"

var _ notification.Executor = (*Executor)(nil)

// NewClient creates a new asynq client connected to Redis.
func NewClient(redisAddr, password string, db int) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
}

// NewServer creates a new asynq server connected to Redis.
// concurrency bounds how many dispatches run at once.
func NewServer(redisAddr, password string, db int, concurrency int) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueName: 10, // priority weight
				"default": 1,
			},
		},
	)
}

// Enqueuer is the part of *asynq.Client the executor needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Executor hands dispatch tasks to asynq workers. Tasks are never retried.
type Executor struct {
	client Enqueuer
}

// NewExecutor creates a queue-backed executor.
func NewExecutor(client Enqueuer) *Executor {
	return &Executor{client: client}
}

// Submit enqueues the dispatch snapshot.
func (e *Executor) Submit(task notification.DispatchTask) error {
	t, err := notification.NewDispatchTask(task)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	_, err = e.client.Enqueue(t,
		asynq.MaxRetry(0),
		asynq.Queue(QueueName),
	)
	if err != nil {
		return fmt.Errorf("enqueuing task: %w", err)
	}

	return nil
}

// NewServeMux routes dispatch tasks to the worker.
func NewServeMux(worker *notification.Worker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TaskTypeDispatch, func(ctx context.Context, task *asynq.Task) error {
		payload, err := notification.ParseDispatchPayload(task.Payload())
		if err != nil {
			// A malformed payload will never succeed.
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return worker.ProcessTask(ctx, payload)
	})
	return mux
}
