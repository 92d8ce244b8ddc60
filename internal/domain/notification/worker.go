package notification

import (
	"context"
	"log/slog"
)

// Worker processes queued dispatch tasks.
// Delivery failures are reported, never returned, so the queue does not retry.
type Worker struct {
	dispatcher *Dispatcher
	base       DispatchConfig
	logger     *slog.Logger
}

// NewWorker creates a worker. base supplies the bot token and timeouts that
// queued payloads do not carry. A nil logger falls back to slog.Default().
func NewWorker(dispatcher *Dispatcher, base DispatchConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{dispatcher: dispatcher, base: base, logger: logger}
}

// ProcessTask handles one queued dispatch.
func (w *Worker) ProcessTask(ctx context.Context, payload *DispatchPayload) error {
	task := payload.Task(w.base)
	w.logger.Debug("processing queued dispatch", "chat_id", task.Config.ChatID, "length", len(task.Message))
	w.dispatcher.Run(ctx, task)
	return nil
}
