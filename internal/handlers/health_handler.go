package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/models"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// HealthChecker reports whether a dependency can serve requests
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports service health
type HealthHandler struct {
	database HealthChecker
	logger   *logrus.Logger
}

// NewHealthHandler creates a health handler. database may be nil.
func NewHealthHandler(database HealthChecker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{database: database, logger: logger}
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthCheck
// @Failure 503 {object} models.HealthCheck
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	health := models.HealthCheck{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   Version,
		Services:  map[string]string{},
	}

	status := http.StatusOK
	if h.database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.database.HealthCheck(ctx); err != nil {
			h.logger.WithError(err).Warn("Database health check failed")
			health.Status = "unhealthy"
			health.Services["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			health.Services["database"] = "ok"
		}
	}

	c.JSON(status, health)
}
