package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"notigram/internal/common"

	"github.com/google/uuid"
)

// Dispatcher delivers one message as a sequence of chunks.
// It holds no mutable state and may run concurrently for different messages.
type Dispatcher struct {
	transport Transport
	sink      DiagnosticSink
	logger    *slog.Logger
}

// NewDispatcher creates a new dispatcher. A nil sink reports to logger.
func NewDispatcher(transport Transport, sink DiagnosticSink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &Dispatcher{
		transport: transport,
		sink:      sink,
		logger:    logger,
	}
}

// Dispatch splits message and posts the chunks in order.
//
// A failed chunk is reported to the diagnostic sink and does not stop the
// remaining ones. With SplitMessage disabled only the first chunk is posted.
// Dispatch never returns an error and never retries.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg DispatchConfig, message string) {
	start := time.Now()
	chunks := Split(message, cfg.MaxMessageSize)

	attempted, failed := 0, 0
	for i, chunk := range chunks {
		attempted++
		err := d.transport.Post(ctx, PostRequest{
			Token:     cfg.BotToken,
			ChatID:    cfg.ChatID,
			Text:      chunk,
			ParseMode: cfg.ParseMode,
			Timeouts:  cfg.Timeouts,
		})
		if err != nil {
			failed++
			d.sink.ReportFailure(ctx, newDeliveryFailure(cfg.ChatID, i+1, len(chunks), err))
		}

		if !cfg.SplitMessage {
			break
		}
	}

	d.logger.Debug("notification dispatched",
		"chat_id", cfg.ChatID,
		"chunks", len(chunks),
		"attempted", attempted,
		"failed", failed,
		"duration", time.Since(start),
	)
}

// Run dispatches a background task snapshot.
func (d *Dispatcher) Run(ctx context.Context, task DispatchTask) {
	d.Dispatch(ctx, task.Config, task.Message)
}

func newDeliveryFailure(chatID string, chunk, chunks int, err error) *DeliveryFailure {
	f := &DeliveryFailure{
		ID:         uuid.New().String(),
		ChatID:     chatID,
		Chunk:      chunk,
		Chunks:     chunks,
		Error:      err.Error(),
		OccurredAt: time.Now().UTC(),
	}

	var terr *common.TransportError
	if errors.As(err, &terr) {
		f.StatusCode = terr.StatusCode
	}
	return f
}
