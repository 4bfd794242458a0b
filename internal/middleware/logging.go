package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/metrics"
)

// RequestIDKey is the key used to store request ID in context
const RequestIDKey = "request_id"

const requestIDHeader = "X-Request-ID"

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// StructuredLogger logs one line per request with its outcome
func StructuredLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := logrus.Fields{
			"request_id":    c.GetString(RequestIDKey),
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"status_code":   status,
			"latency_ms":    float64(latency.Nanoseconds()) / 1e6,
			"client_ip":     c.ClientIP(),
			"response_size": c.Writer.Size(),
		}
		if raw != "" {
			fields["query"] = raw
		}
		if actor, ok := ActorFromContext(c); ok {
			fields["actor"] = actor
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := logger.WithFields(fields)
		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request completed")
		}
	}
}

// AuditLogger records destructive operations and who performed them
func AuditLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "DELETE" && c.Request.Method != "PUT" {
			c.Next()
			return
		}

		c.Next()

		fields := logrus.Fields{
			"audit":       true,
			"request_id":  c.GetString(RequestIDKey),
			"actor":       c.GetString(ActorKey),
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"status_code": c.Writer.Status(),
			"client_ip":   c.ClientIP(),
		}
		if id := c.Param("id"); id != "" {
			fields["resource_id"] = id
		}

		logger.WithFields(fields).Info("Audit log")
	}
}

// Metrics observes request latency labelled by the matched route template
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
