package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"notigram/internal/config"
	"notigram/internal/domain/notification"
	"notigram/internal/infra/queue"
	"notigram/internal/infra/store"
	"notigram/internal/infra/telegram"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// The worker posts with its own credentials; queued payloads carry none.
	base := cfg.NotificationConfig()
	if err := base.Validate(); err != nil {
		slog.Error("invalid dispatch configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("worker configuration loaded", "chat_id", base.ChatID)

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	sinks := notification.Sinks{notification.NewLogSink(logger)}
	if cfg.Supabase.URL != "" {
		failureStore, err := store.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
		if err != nil {
			slog.Error("failed to initialize supabase store", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, notification.NewStoreSink(failureStore, logger))
		slog.Info("supabase failure store initialized")
	}

	client := telegram.NewClient(cfg.Telegram.APIURL)
	dispatcher := notification.NewDispatcher(client, sinks, logger)
	worker := notification.NewWorker(dispatcher, base, logger)

	// ==========================================
	// Asynq Server (task processing)
	// ==========================================

	asynqServer := queue.NewServer(
		cfg.Redis.Address,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Queue.Concurrency,
	)

	go func() {
		slog.Info("worker starting",
			"concurrency", cfg.Queue.Concurrency,
			"redis", cfg.Redis.Address,
			"queue", queue.QueueName,
		)
		if err := asynqServer.Run(queue.NewServeMux(worker)); err != nil {
			slog.Error("worker failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// ==========================================
	// Graceful Shutdown
	// ==========================================

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	asynqServer.Shutdown()
	slog.Info("worker exited gracefully")
}
