package router

import (
	"log/slog"
	"net/http"

	"notigram/internal/common"
	"notigram/internal/config"
	"notigram/internal/domain/notification"
	"notigram/internal/middleware"

	"github.com/gin-gonic/gin"
)

// StatusReporter exposes whether the gateway is delivering notifications.
type StatusReporter interface {
	Active() bool
}

// New creates and configures the Gin router with all middleware and routes.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	limiter *middleware.RateLimiter,
	status StatusReporter,
	notificationHandler *notification.Handler,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	// Global middleware stack (order matters)
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))
	r.Use(limiter.Middleware())

	// Public routes
	r.GET("/health", healthCheck(status))

	// Protected API routes (API key required)
	protectedAPI := r.Group("/api/v1")
	protectedAPI.Use(middleware.Auth(cfg.Auth.APIKeys))
	{
		notificationHandler.RegisterRoutes(protectedAPI)
	}

	return r
}

// healthCheck handles GET /health. The process is healthy even when the
// gateway is inactive; the flag tells operators notifications are off.
func healthCheck(status StatusReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		common.Success(c, http.StatusOK, gin.H{
			"status":         "ok",
			"service":        "notigram",
			"gateway_active": status.Active(),
		})
	}
}
