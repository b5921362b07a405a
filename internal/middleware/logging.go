package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/logging"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns a request ID to every request, honoring one supplied by
// the caller so IDs propagate across services.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// Logger logs every request with its status, latency and client IP, and
// records the request in the Prometheus counters.
func Logger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		reqLogger := logger
		if requestID, ok := c.Get("request_id"); ok {
			reqLogger = logger.WithRequestID(requestID.(string))
		}

		reqLogger.LogHTTPRequest(c.Request.Method, path, c.ClientIP(), status, latency)
		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), strconv.Itoa(status), latency.Seconds())
	}
}
