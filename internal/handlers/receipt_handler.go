package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"autoservice-billing-api/internal/render"
	"autoservice-billing-api/internal/services"
)

// ReceiptHandler handles receipt consolidation and reprints
type ReceiptHandler struct {
	receiptService services.ReceiptService
	logger         *logrus.Logger
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptService services.ReceiptService, logger *logrus.Logger) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService, logger: logger}
}

// @Summary Consolidate service records
// @Description Group the selected records by vehicle and date and break each group's total down
// @Tags receipts
// @Accept json
// @Produce json
// @Param selection body services.BuildReceiptRequest true "Selected records"
// @Success 200 {object} models.PrintableReceipt
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /receipts/consolidate [post]
func (h *ReceiptHandler) Consolidate(c *gin.Context) {
	var req services.BuildReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	receipt, err := h.receiptService.BuildReceipt(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// @Summary Print a consolidated receipt
// @Tags receipts
// @Accept json
// @Produce json,application/pdf,application/octet-stream
// @Param format query string false "Output format" Enums(json, pdf, thermal)
// @Param selection body services.BuildReceiptRequest true "Selected records"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /receipts/print [post]
func (h *ReceiptHandler) Print(c *gin.Context) {
	var req services.PrintRequest
	if err := c.ShouldBindJSON(&req.BuildReceiptRequest); err != nil {
		respondBindError(c, err)
		return
	}
	req.Format = render.Format(c.Query("format"))

	doc, err := h.receiptService.Print(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	writeDocument(c, doc)
}

// @Summary Get a receipt snapshot
// @Tags receipts
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} models.ReceiptSnapshot
// @Failure 404 {object} ErrorResponse
// @Router /receipts/snapshots/{id} [get]
func (h *ReceiptHandler) GetSnapshot(c *gin.Context) {
	snapshot, err := h.receiptService.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// @Summary Reprint a sale from its snapshot
// @Description Uses only the tax configuration and business identity frozen at sale time
// @Tags receipts
// @Produce json,application/pdf,application/octet-stream
// @Param id path string true "Snapshot ID"
// @Param format query string false "Output format" Enums(json, pdf, thermal)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /receipts/snapshots/{id}/print [get]
func (h *ReceiptHandler) PrintSnapshot(c *gin.Context) {
	doc, err := h.receiptService.PrintSnapshot(c.Request.Context(), c.Param("id"), render.Format(c.Query("format")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	writeDocument(c, doc)
}

func writeDocument(c *gin.Context, doc *services.RenderedReceipt) {
	if doc.ArchiveKey != "" {
		c.Header("X-Archive-Key", doc.ArchiveKey)
	}
	if doc.Format != render.FormatJSON {
		c.Header("Content-Disposition", "attachment; filename="+doc.Filename)
	}
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}
