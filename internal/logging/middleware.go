package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// Middleware tags each request with an ID, attaches a request-scoped log
// entry to the request context and logs the completed request.
func Middleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Header(RequestIDHeader, id)

		entry := logger.WithField("request_id", id)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), entry))

		c.Next()

		fields := logrus.Fields{
			"component": "http",
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
		}
		if len(c.Errors) > 0 {
			entry.WithFields(fields).Warn(c.Errors.String())
			return
		}
		entry.WithFields(fields).Info("request completed")
	}
}
