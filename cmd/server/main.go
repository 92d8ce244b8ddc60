package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notigram/internal/config"
	"notigram/internal/domain/notification"
	"notigram/internal/infra/pool"
	"notigram/internal/infra/queue"
	"notigram/internal/infra/ratelimit"
	"notigram/internal/infra/slogsink"
	"notigram/internal/infra/store"
	"notigram/internal/infra/telegram"
	"notigram/internal/infra/template"
	"notigram/internal/middleware"
	"notigram/internal/router"
)

func main() {
	// Base logger. Everything on the delivery path logs here so that a
	// failed delivery never feeds back into the gateway through the sink.
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	baseLogger := slog.New(jsonHandler)
	slog.SetDefault(baseLogger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"executor", cfg.Dispatch.Executor,
		"non_blocking", cfg.Dispatch.NonBlocking,
	)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	dispatchCfg := cfg.NotificationConfig()

	// Diagnostics: structured log, in-memory history, optional Supabase table
	history := notification.NewHistory(cfg.Dispatch.HistorySize)
	sinks := notification.Sinks{notification.NewLogSink(baseLogger), history}
	var failures notification.FailureReader = history

	if cfg.Supabase.URL != "" {
		failureStore, err := store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
		if err != nil {
			slog.Error("failed to initialize supabase store", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, notification.NewStoreSink(failureStore, baseLogger))
		failures = failureStore
		slog.Info("supabase failure store initialized")
	}

	// Telegram transport and dispatcher
	client := telegram.NewClient(cfg.Telegram.APIURL)
	dispatcher := notification.NewDispatcher(client, sinks, baseLogger)

	// Event formatter
	formatter, err := newFormatter(cfg)
	if err != nil {
		slog.Error("failed to initialize formatter", "error", err)
		os.Exit(1)
	}

	opts := []notification.GatewayOption{
		notification.WithFormatter(formatter),
		notification.WithLogger(baseLogger),
	}

	// Background executor for non-blocking mode
	var closers []func() error
	switch cfg.Dispatch.Executor {
	case config.ExecutorQueue:
		asynqClient := queue.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		closers = append(closers, asynqClient.Close)
		opts = append(opts, notification.WithExecutor(queue.NewExecutor(asynqClient)))
		slog.Info("queue executor initialized", "redis", cfg.Redis.Address)
	case config.ExecutorPool, "":
		opts = append(opts, notification.WithExecutor(
			pool.NewExecutor(dispatcher.Run, cfg.Dispatch.Workers, baseLogger),
		))
		slog.Info("pool executor initialized", "workers", cfg.Dispatch.Workers)
	default:
		slog.Error("unknown dispatch executor", "executor", cfg.Dispatch.Executor)
		os.Exit(1)
	}

	// Cross-process rate gate
	if cfg.SharedGate.Enabled {
		redisClient := ratelimit.NewRedisClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		closers = append(closers, redisClient.Close)
		opts = append(opts, notification.WithSharedGate(ratelimit.NewRedisGate(redisClient, dispatchCfg.ChatID)))
		slog.Info("shared rate gate initialized", "key", ratelimit.Key(dispatchCfg.ChatID))
	}

	// Gateway. An invalid configuration leaves it inactive; the API keeps
	// serving and /health reports the state.
	gateway := notification.NewGateway(dispatchCfg, dispatcher, opts...)
	if err := gateway.Start(); err != nil {
		slog.Warn("serving with notifications disabled")
	}

	// Forward the service's own error logs to the chat
	if cfg.Sink.Enabled {
		slog.SetDefault(slog.New(slogsink.Tee{
			jsonHandler,
			slogsink.NewHandler(gateway, cfg.SinkLevel()),
		}))
		baseLogger.Info("log sink enabled", "min_level", cfg.SinkLevel().String())
	}

	// HTTP layer
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go limiter.RunJanitor(bgCtx, 5*time.Minute)

	notificationHandler := notification.NewHandler(gateway, failures)
	r := router.New(cfg, slog.Default(), limiter, gateway, notificationHandler)

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	baseLogger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		baseLogger.Error("server forced to shutdown", "error", err)
	}

	// Let in-flight dispatches finish before the clients go away
	if err := gateway.Stop(ctx); err != nil {
		baseLogger.Warn("notification gateway stopped with pending work", "error", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			baseLogger.Warn("closing client failed", "error", err)
		}
	}

	baseLogger.Info("server exited gracefully")
}

func newFormatter(cfg *config.Config) (*template.Engine, error) {
	if cfg.Dispatch.LayoutFile != "" {
		return template.NewEngineFromFile(cfg.Dispatch.LayoutFile, cfg.Telegram.ParseMode)
	}
	return template.NewEngine(cfg.Dispatch.Layout, cfg.Telegram.ParseMode)
}
