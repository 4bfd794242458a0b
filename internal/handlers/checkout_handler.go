package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/services"
)

// CheckoutHandler finalizes carts
type CheckoutHandler struct {
	checkoutService services.CheckoutService
	logger          *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService services.CheckoutService, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, logger: logger}
}

// @Summary Check out a cart
// @Description Store one service record per line item at its tax-inclusive price and snapshot the sale.
// @Description A sale whose snapshot could not be saved still returns 201 with snapshot_id null and a warning.
// @Tags checkout
// @Accept json
// @Produce json
// @Param checkout body services.CheckoutRequest true "Cart"
// @Success 201 {object} services.CheckoutResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
