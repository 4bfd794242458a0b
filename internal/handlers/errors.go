package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/middleware"
	"autoservice-billing-api/internal/pricing"
	"autoservice-billing-api/internal/services"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError maps a service error onto a status code and writes the error body.
// Internal failures are logged and their details are not sent to the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	response := ErrorResponse{RequestID: c.GetString(middleware.RequestIDKey)}
	status := http.StatusInternalServerError

	var invalid *pricing.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		status = http.StatusBadRequest
		response.Error = "Invalid input"
		response.Message = invalid.Reason
		response.Field = invalid.Field
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
		response.Error = "Invalid input"
		response.Message = err.Error()
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
		response.Error = "Not found"
		response.Message = err.Error()
	case errors.Is(err, middleware.ErrUnauthorized):
		status = http.StatusUnauthorized
		response.Error = "Unauthorized"
		response.Message = err.Error()
	default:
		response.Error = "Internal server error"
		response.Message = "An internal error occurred"
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": response.RequestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).Error("Request failed")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, response)
}

// respondBindError reports a body that could not be decoded
func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:     "Invalid request body",
		Message:   err.Error(),
		RequestID: c.GetString(middleware.RequestIDKey),
	})
}
