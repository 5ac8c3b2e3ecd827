package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-Id"
	ContextRequest  = "request_id"
)

// RequestLogger tags each request with an id (reusing an incoming
// X-Request-Id) and logs one line when it completes.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ContextRequest, reqID)
		c.Writer.Header().Set(RequestIDHeader, reqID)

		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"bytes":      c.Writer.Size(),
			"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"request_id": reqID,
			"client_ip":  c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Info("http_request")
	}
}
