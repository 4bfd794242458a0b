package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/middleware"
	"autoservice-billing-api/internal/services"
)

// SettingsHandler manages the business profile
type SettingsHandler struct {
	settingsService services.SettingsService
	logger          *logrus.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService services.SettingsService, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, logger: logger}
}

// @Summary Get business settings
// @Tags settings
// @Produce json
// @Success 200 {object} models.BusinessSettings
// @Failure 500 {object} ErrorResponse
// @Router /settings/business [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetSettings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// @Summary Replace business settings
// @Description Rates must lie in [0, 100]. Past sales keep the configuration frozen in their snapshots.
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body services.UpdateSettingsRequest true "Business settings"
// @Success 200 {object} models.BusinessSettings
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Security BearerAuth
// @Router /settings/business [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	actor, _ := middleware.ActorFromContext(c)
	h.logger.WithFields(logrus.Fields{
		"actor":      actor,
		"request_id": c.GetString(middleware.RequestIDKey),
	}).Info("Business settings replaced")

	c.JSON(http.StatusOK, settings)
}
