package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/reminder-api/internal/handler"
	"github.com/jwalitptl/reminder-api/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		status, resp := handler.ErrorResponseFor(lastErr.Err)
		resp.TraceID = c.GetString(ContextRequestID)

		if status >= 500 {
			log.Error(lastErr.Err, "Request error",
				"request_id", resp.TraceID,
				"path", c.Request.URL.Path,
				"method", c.Request.Method)
		}

		c.AbortWithStatusJSON(status, resp)
	}
}
