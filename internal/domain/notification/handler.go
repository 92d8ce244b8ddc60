package notification

import (
	"log/slog"
	"net/http"
	"time"

	"notigram/internal/common"

	"github.com/gin-gonic/gin"
)

// Notifier is the part of the Gateway the HTTP layer depends on.
type Notifier interface {
	Send(message string)
	Handle(event Event)
	Active() bool
}

// NotifyRequest is the API request payload for sending preformatted text.
type NotifyRequest struct {
	Text string `json:"text" binding:"required"`
}

// EventRequest is the API request payload for an event to be formatted.
type EventRequest struct {
	Level   string         `json:"level"`
	Message string         `json:"message" binding:"required"`
	Source  string         `json:"source"`
	Attrs   map[string]any `json:"attrs"`
}

// FailureQuery holds query parameters for listing failures.
type FailureQuery struct {
	Limit int `form:"limit"`
}

// Handler handles HTTP requests for the notification domain.
type Handler struct {
	notifier Notifier
	failures FailureReader
}

// NewHandler creates a new notification handler.
func NewHandler(notifier Notifier, failures FailureReader) *Handler {
	return &Handler{notifier: notifier, failures: failures}
}

// Notify handles POST /api/v1/notify
// The message is submitted to the gateway; acceptance by the rate gate is not reported.
func (h *Handler) Notify(c *gin.Context) {
	if !h.notifier.Active() {
		common.HandleError(c, &common.ConfigurationError{})
		return
	}

	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.HandleError(c, common.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	h.notifier.Send(req.Text)
	common.Success(c, http.StatusAccepted, gin.H{"status": "submitted"})
}

// Event handles POST /api/v1/events
func (h *Handler) Event(c *gin.Context) {
	if !h.notifier.Active() {
		common.HandleError(c, &common.ConfigurationError{})
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.HandleError(c, common.NewValidationError("invalid request body: "+err.Error()))
		return
	}

	level := req.Level
	if level == "" {
		level = "INFO"
	}

	h.notifier.Handle(Event{
		Time:    time.Now(),
		Level:   level,
		Message: req.Message,
		Source:  req.Source,
		Attrs:   req.Attrs,
	})
	common.Success(c, http.StatusAccepted, gin.H{"status": "submitted"})
}

// ListFailures handles GET /api/v1/failures
func (h *Handler) ListFailures(c *gin.Context) {
	var q FailureQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.HandleError(c, common.NewValidationError("invalid query parameters: "+err.Error()))
		return
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	failures, err := h.failures.RecentFailures(c.Request.Context(), q.Limit)
	if err != nil {
		slog.Error("listing delivery failures failed", "error", err)
		common.HandleError(c, err)
		return
	}

	common.Success(c, http.StatusOK, gin.H{
		"failures": failures,
		"count":    len(failures),
	})
}

// RegisterRoutes registers notification routes to the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/notify", h.Notify)
	rg.POST("/events", h.Event)
	rg.GET("/failures", h.ListFailures)
}
