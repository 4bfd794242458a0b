package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/services"
)

// PricingHandler serves live quotes for the checkout screen
type PricingHandler struct {
	pricingService services.PricingService
	logger         *logrus.Logger
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(pricingService services.PricingService, logger *logrus.Logger) *PricingHandler {
	return &PricingHandler{pricingService: pricingService, logger: logger}
}

// @Summary Quote a cart
// @Description Price a cart of line items tax-inclusively with the current settings or explicit rates
// @Tags pricing
// @Accept json
// @Produce json
// @Param quote body services.QuoteRequest true "Cart"
// @Success 200 {object} services.QuoteResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /pricing/quote [post]
func (h *PricingHandler) Quote(c *gin.Context) {
	var req services.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.pricingService.Quote(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Decompose a charged total
// @Description Split a tax-inclusive total back into subtotal, federal tax and provincial tax
// @Tags pricing
// @Accept json
// @Produce json
// @Param decompose body services.DecomposeRequest true "Charged total"
// @Success 200 {object} services.DecomposeResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /pricing/decompose [post]
func (h *PricingHandler) Decompose(c *gin.Context) {
	var req services.DecomposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.pricingService.Decompose(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Get the effective tax configuration
// @Tags pricing
// @Produce json
// @Success 200 {object} services.TaxConfigurationView
// @Failure 500 {object} ErrorResponse
// @Router /pricing/tax-configuration [get]
func (h *PricingHandler) TaxConfiguration(c *gin.Context) {
	view, err := h.pricingService.TaxConfiguration(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
