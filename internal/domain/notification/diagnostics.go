package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DeliveryFailure records one chunk that could not be delivered.
type DeliveryFailure struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	Chunk      int       `json:"chunk"`
	Chunks     int       `json:"chunks"`
	StatusCode int       `json:"status_code,omitempty"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DiagnosticSink receives delivery failures. It must not block for long and
// never reports back to the sender.
type DiagnosticSink interface {
	ReportFailure(ctx context.Context, f *DeliveryFailure)
}

// FailureReader lists recently reported failures, newest first.
type FailureReader interface {
	RecentFailures(ctx context.Context, limit int) ([]*DeliveryFailure, error)
}

// FailureStore persists delivery failures.
// Implementations live in infra/store/ (e.g., Supabase).
type FailureStore interface {
	Create(ctx context.Context, f *DeliveryFailure) error
	FailureReader
}

// LogSink writes failures to a structured logger.
//
// The logger must not feed back into a Gateway, or a failing endpoint would
// generate its own notifications.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger falls back to slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) ReportFailure(ctx context.Context, f *DeliveryFailure) {
	s.logger.LogAttrs(ctx, slog.LevelError, "notification delivery failed",
		slog.String("failure_id", f.ID),
		slog.String("chat_id", f.ChatID),
		slog.Int("chunk", f.Chunk),
		slog.Int("chunks", f.Chunks),
		slog.Int("status_code", f.StatusCode),
		slog.String("error", f.Error),
	)
}

// StoreSink persists failures through a FailureStore, logging store errors.
type StoreSink struct {
	store  FailureStore
	logger *slog.Logger
}

// NewStoreSink creates a StoreSink. A nil logger falls back to slog.Default().
func NewStoreSink(store FailureStore, logger *slog.Logger) *StoreSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreSink{store: store, logger: logger}
}

func (s *StoreSink) ReportFailure(ctx context.Context, f *DeliveryFailure) {
	if err := s.store.Create(ctx, f); err != nil {
		s.logger.Error("failed to persist delivery failure", "failure_id", f.ID, "error", err)
	}
}

// Sinks fans a failure out to every sink in order.
type Sinks []DiagnosticSink

func (s Sinks) ReportFailure(ctx context.Context, f *DeliveryFailure) {
	for _, sink := range s {
		sink.ReportFailure(ctx, f)
	}
}

// History keeps the most recent failures in memory.
// It is safe for concurrent use.
type History struct {
	mu    sync.Mutex
	items []*DeliveryFailure
	next  int
	full  bool
}

// NewHistory creates a History holding up to capacity failures.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 100
	}
	return &History{items: make([]*DeliveryFailure, capacity)}
}

func (h *History) ReportFailure(_ context.Context, f *DeliveryFailure) {
	h.mu.Lock()
	h.items[h.next] = f
	h.next = (h.next + 1) % len(h.items)
	if h.next == 0 {
		h.full = true
	}
	h.mu.Unlock()
}

// RecentFailures returns up to limit failures, newest first. A non-positive
// limit returns everything held.
func (h *History) RecentFailures(_ context.Context, limit int) ([]*DeliveryFailure, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.next
	if h.full {
		size = len(h.items)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]*DeliveryFailure, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out, nil
}
