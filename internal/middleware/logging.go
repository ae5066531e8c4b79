package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tecbook-auth/internal/logger"
)

// GinLogger logs one line per request through the service logger.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}

func logRequest(method, path string, status int, took time.Duration, ip string) {
	fields := map[string]any{
		"method":      method,
		"path":        path,
		"status":      status,
		"duration_ms": took.Milliseconds(),
		"ip":          ip,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request", fields)
		return
	}
	logger.Info("request", fields)
}
