package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notigram/internal/config"
	"notigram/internal/domain/notification"
	"notigram/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	active bool
	sent   []string
}

func (f *fakeNotifier) Send(m string) { f.sent = append(f.sent, m) }
func (f *fakeNotifier) Handle(e notification.Event) { f.sent = append(f.sent, e.Message) }
func (f *fakeNotifier) Active() bool { return f.active }

func newTestRouter(n *fakeNotifier) *gin.Engine {
	cfg := &config.Config{
		Server: config.ServerConfig{Mode: gin.TestMode},
		Auth:   config.AuthConfig{APIKeys: []string{"secret"}},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST"},
			AllowedHeaders: []string{"Content-Type", "X-API-Key"},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := notification.NewHandler(n, notification.NewHistory(10))
	return New(cfg, logger, middleware.NewRateLimiter(100, 100), n, handler)
}

func TestHealth(t *testing.T) {
	for _, active := range []bool{true, false} {
		r := newTestRouter(&fakeNotifier{active: active})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data struct {
				Service       string `json:"service"`
				GatewayActive bool   `json:"gateway_active"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "notigram", body.Data.Service)
		assert.Equal(t, active, body.Data.GatewayActive)
	}
}

func TestProtectedRoutes(t *testing.T) {
	n := &fakeNotifier{active: true}
	r := newTestRouter(n)

	send := func(key string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/notify", strings.NewReader(`{"text":"hi"}`))
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, send(""))
	assert.Equal(t, http.StatusUnauthorized, send("wrong"))
	assert.Equal(t, http.StatusAccepted, send("secret"))
	assert.Equal(t, []string{"hi"}, n.sent)
}
