package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func abort(c *gin.Context, status int, title, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     title,
		Message:   message,
		RequestID: c.GetString(RequestIDKey),
	})
}

// RateLimiterConfig holds the per-client token bucket settings
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	// EntryTTL evicts limiters of clients that have gone quiet
	EntryTTL time.Duration
}

// ClientRateLimiter keeps one token bucket per client IP
type ClientRateLimiter struct {
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
	logger   *logrus.Logger
}

// NewClientRateLimiter creates a per-client rate limiter
func NewClientRateLimiter(config RateLimiterConfig, logger *logrus.Logger) *ClientRateLimiter {
	if config.EntryTTL <= 0 {
		config.EntryTTL = 10 * time.Minute
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ClientRateLimiter{
		limiters: cache.New(config.EntryTTL, config.EntryTTL),
		rate:     rate.Limit(config.RequestsPerSecond),
		burst:    config.Burst,
		logger:   logger,
	}
}

func (rl *ClientRateLimiter) limiterFor(client string) *rate.Limiter {
	if cached, ok := rl.limiters.Get(client); ok {
		limiter := cached.(*rate.Limiter)
		// Touch so active clients keep their bucket.
		rl.limiters.SetDefault(client, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	if err := rl.limiters.Add(client, limiter, cache.DefaultExpiration); err != nil {
		// Lost a race with another request from the same client.
		if cached, ok := rl.limiters.Get(client); ok {
			return cached.(*rate.Limiter)
		}
	}
	return limiter
}

// Middleware rejects clients that exceed their bucket with 429
func (rl *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		if !rl.limiterFor(c.ClientIP()).Allow() {
			rl.logger.WithFields(logrus.Fields{
				"client_ip":  c.ClientIP(),
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
			}).Warn("Rate limit exceeded")

			c.Header("Retry-After", "1")
			abort(c, http.StatusTooManyRequests, "Rate limit exceeded",
				fmt.Sprintf("Too many requests. Limit: %.1f requests per second", float64(rl.rate)))
			return
		}
		c.Next()
	}
}

// SecurityHeaders adds security headers to responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// ContentTypeValidation requires a JSON body on requests that carry one
func ContentTypeValidation() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}
		if c.Request.ContentLength == 0 {
			c.Next()
			return
		}

		mainType, _, _ := strings.Cut(c.GetHeader("Content-Type"), ";")
		if strings.TrimSpace(mainType) != "application/json" {
			abort(c, http.StatusUnsupportedMediaType, "Unsupported Content-Type",
				fmt.Sprintf("Content-Type %q is not supported, use application/json", mainType))
			return
		}

		c.Next()
	}
}

// RequestSizeLimit limits the size of request bodies
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			abort(c, http.StatusRequestEntityTooLarge, "Request too large",
				fmt.Sprintf("Request body size (%d bytes) exceeds maximum allowed size (%d bytes)", c.Request.ContentLength, maxSize))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
