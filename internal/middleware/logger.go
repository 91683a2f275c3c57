package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/reminder-api/pkg/logger"
)

// Logger returns a middleware that logs HTTP requests
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		if raw != "" {
			path = path + "?" + raw
		}

		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", statusCode,
			"latency", latency.String(),
		}
		if owner := c.GetString(ContextOwnerID); owner != "" {
			fields = append(fields, "owner_id", owner)
		}

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}

		switch {
		case statusCode >= 500:
			log.Error(err, "Server error", fields...)
		case statusCode >= 400:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request processed", fields...)
		}
	}
}
