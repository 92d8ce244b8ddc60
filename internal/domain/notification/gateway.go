package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"notigram/internal/common"
)

// sharedGateTimeout bounds the shared gate round trip.
const sharedGateTimeout = 500 * time.Millisecond

// Appender is the contract a host uses to plug the gateway into its event flow.
type Appender interface {
	// Start validates the configuration and activates the appender.
	Start() error

	// Stop deactivates the appender and waits for background work until ctx ends.
	Stop(ctx context.Context) error

	// Handle formats the event and sends it. It never fails.
	Handle(event Event)
}

var _ Appender = (*Gateway)(nil)

// Gateway is the public entry point of the notification engine.
//
// Concurrent callers are serialized only while the rate gate decides; in
// non-blocking mode the network work runs on the Executor after the lock
// is released. Rejected messages are dropped.
type Gateway struct {
	mu      sync.Mutex
	state   GateState
	started bool

	cfg        DispatchConfig
	dispatcher *Dispatcher
	executor   Executor
	formatter  Formatter
	shared     SharedGate
	clock      Clock
	logger     *slog.Logger
}

// GatewayOption configures optional Gateway collaborators.
type GatewayOption func(*Gateway)

// WithExecutor sets the background executor used in non-blocking mode.
func WithExecutor(e Executor) GatewayOption {
	return func(g *Gateway) { g.executor = e }
}

// WithFormatter sets the formatter used by Handle.
func WithFormatter(f Formatter) GatewayOption {
	return func(g *Gateway) { g.formatter = f }
}

// WithSharedGate adds a cross-process gate consulted after the local one accepts.
func WithSharedGate(s SharedGate) GatewayOption {
	return func(g *Gateway) { g.shared = s }
}

// WithClock replaces the monotonic clock.
func WithClock(c Clock) GatewayOption {
	return func(g *Gateway) { g.clock = c }
}

// WithLogger sets the gateway's own logger. It must not route back into the gateway.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// NewGateway creates an inactive gateway; call Start before sending.
func NewGateway(cfg DispatchConfig, dispatcher *Dispatcher, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		cfg:        cfg,
		dispatcher: dispatcher,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.clock == nil {
		g.clock = NewMonotonicClock()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Config returns the gateway's dispatch configuration.
func (g *Gateway) Config() DispatchConfig {
	return g.cfg
}

// Start validates the configuration. On error the gateway stays inactive and
// every Send is a no-op.
func (g *Gateway) Start() error {
	err := g.cfg.Validate()
	if err == nil && g.cfg.NonBlocking && g.executor == nil {
		cerr := &common.ConfigurationError{}
		cerr.Add("non-blocking mode requires an executor")
		err = cerr
	}
	if err != nil {
		g.logger.Error("notification gateway not started", "error", err)
		return err
	}

	g.mu.Lock()
	g.started = true
	g.mu.Unlock()

	g.logger.Info("notification gateway started",
		"chat_id", g.cfg.ChatID,
		"non_blocking", g.cfg.NonBlocking,
		"split_message", g.cfg.SplitMessage,
		"max_message_size", g.cfg.MaxMessageSize,
		"min_interval", g.cfg.MinInterval,
	)
	return nil
}

// Stop deactivates the gateway and waits for in-flight background dispatches
// when the executor supports it.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	g.started = false
	g.mu.Unlock()

	if d, ok := g.executor.(Drainer); ok {
		return d.Wait(ctx)
	}
	return nil
}

// Active reports whether the gateway accepts messages.
func (g *Gateway) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// Handle formats event and sends the result. Formatting errors fall back to
// the raw event message.
func (g *Gateway) Handle(event Event) {
	if !g.Active() {
		return
	}

	text := event.Message
	if g.formatter != nil {
		formatted, err := g.formatter.Format(event)
		if err != nil {
			g.logger.Warn("formatting event failed, sending raw message", "error", err)
		} else {
			text = formatted
		}
	}

	g.Send(text)
}

// Send forwards message if the rate gate accepts it and drops it otherwise.
// It never returns an error; delivery failures go to the diagnostic sink.
func (g *Gateway) Send(message string) {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return
	}

	now := g.clock.NowMillis()
	accept, next := ShouldSend(g.state, now, g.cfg.MinInterval.Milliseconds())
	if !accept {
		g.mu.Unlock()
		g.logger.Debug("notification dropped by rate gate", "chat_id", g.cfg.ChatID)
		return
	}
	prev := g.state
	g.state = next

	if g.shared != nil {
		// The local slot stays reserved while the shared gate is asked
		// without the lock, so callers within the interval are still rejected locally.
		g.mu.Unlock()
		if !g.allowShared() {
			g.mu.Lock()
			if g.state == next {
				g.state = prev
			}
			g.mu.Unlock()
			g.logger.Debug("notification dropped by shared rate gate", "chat_id", g.cfg.ChatID)
			return
		}
		g.mu.Lock()
		if !g.started {
			g.mu.Unlock()
			return
		}
	}

	g.deliverLocked(message)
}

// deliverLocked dispatches an accepted message. Called with g.mu held; it
// releases the lock before returning.
func (g *Gateway) deliverLocked(message string) {
	if !g.cfg.NonBlocking {
		defer g.mu.Unlock()
		g.dispatcher.Dispatch(context.Background(), g.cfg, message)
		return
	}

	task := DispatchTask{Config: g.cfg, Message: message}
	g.mu.Unlock()

	if err := g.executor.Submit(task); err != nil {
		g.logger.Warn("notification dropped, dispatch not scheduled", "chat_id", g.cfg.ChatID, "error", err)
	}
}

// allowShared consults the shared gate. Errors fail open so an unavailable
// backend never silences notifications. Must be called without g.mu held.
func (g *Gateway) allowShared() bool {
	ctx, cancel := context.WithTimeout(context.Background(), sharedGateTimeout)
	defer cancel()

	allowed, err := g.shared.Allow(ctx, g.cfg.MinInterval)
	if err != nil {
		g.logger.Warn("shared rate gate check failed, proceeding without it", "error", err)
		return true
	}
	return allowed
}
