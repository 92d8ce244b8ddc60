package middleware

import (
	"crypto/subtle"
	"log/slog"

	"notigram/internal/common"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// Auth returns middleware that validates the X-API-Key header against configured keys.
// With no keys configured every request is refused, so an unconfigured deployment
// cannot be used to page the chat.
func Auth(validKeys []string) gin.HandlerFunc {
	if len(validKeys) == 0 {
		slog.Warn("no API keys configured, protected routes will refuse all requests")
	}

	return func(c *gin.Context) {
		apiKey := c.GetHeader(apiKeyHeader)
		if apiKey == "" {
			common.HandleError(c, common.NewUnauthorizedError("missing X-API-Key header"))
			c.Abort()
			return
		}

		if !isValidKey(apiKey, validKeys) {
			slog.Warn("rejected API key",
				"request_id", c.GetString(requestIDKey),
				"client_ip", c.ClientIP(),
			)
			common.HandleError(c, common.NewUnauthorizedError("invalid API key"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// isValidKey compares in constant time against every configured key.
func isValidKey(key string, validKeys []string) bool {
	valid := 0
	for _, k := range validKeys {
		valid |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return valid == 1
}
