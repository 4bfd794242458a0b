package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/services"
)

// ServiceRecordHandler handles service history requests
type ServiceRecordHandler struct {
	recordService services.ServiceRecordService
	logger        *logrus.Logger
}

// NewServiceRecordHandler creates a new service record handler
func NewServiceRecordHandler(recordService services.ServiceRecordService, logger *logrus.Logger) *ServiceRecordHandler {
	return &ServiceRecordHandler{recordService: recordService, logger: logger}
}

// @Summary Record a completed service
// @Description Enter a service that was already charged; price is tax-inclusive
// @Tags service-records
// @Accept json
// @Produce json
// @Param record body services.RecordServiceRequest true "Service"
// @Success 201 {object} services.RecordServiceResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /service-records [post]
func (h *ServiceRecordHandler) RecordService(c *gin.Context) {
	var req services.RecordServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.recordService.RecordService(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// @Summary List service records
// @Tags service-records
// @Produce json
// @Param customer_ref query string false "Customer reference"
// @Param vehicle_ref query string false "Vehicle reference"
// @Param from query string false "First performed date (YYYY-MM-DD)"
// @Param to query string false "Last performed date (YYYY-MM-DD)"
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} services.ListRecordsResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /service-records [get]
func (h *ServiceRecordHandler) ListRecords(c *gin.Context) {
	var req services.ListRecordsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.recordService.ListRecords(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Get a service record
// @Tags service-records
// @Produce json
// @Param id path string true "Service record ID"
// @Success 200 {object} models.ServiceRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /service-records/{id} [get]
func (h *ServiceRecordHandler) GetRecord(c *gin.Context) {
	record, err := h.recordService.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// @Summary Delete a service record
// @Description Requires an admin token when authentication is enabled. Snapshots are kept.
// @Tags service-records
// @Param id path string true "Service record ID"
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /service-records/{id} [delete]
func (h *ServiceRecordHandler) DeleteRecord(c *gin.Context) {
	if err := h.recordService.DeleteRecord(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
