package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"receiptai/internal/export"
	"receiptai/internal/service"
)

// ExportHandler downloads receipts as CSV or XLSX.
type ExportHandler struct {
	exportService service.ExportService
	errs          *ErrorResponder
	now           func() time.Time
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService service.ExportService, errs *ErrorResponder) *ExportHandler {
	if errs == nil {
		errs = NewErrorResponder(nil)
	}
	return &ExportHandler{exportService: exportService, errs: errs, now: time.Now}
}

// Export handles GET /api/v1/admin/receipts/export
// @Summary Export receipts
// @Description Download stored receipts, optionally filtered by status
// @Tags admin
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv or xlsx" default(csv)
// @Param status query string false "predicted or corrected"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponseBody "Unknown format or status"
// @Failure 401 {object} ErrorResponseBody "Invalid admin token"
// @Security BearerAuth
// @Router /admin/receipts/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var input service.ExportInput
	if err := c.ShouldBindQuery(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := service.ValidateExportInput(&input); err != nil {
		h.errs.HandleError(c, err)
		return
	}

	// Buffered so a failed export can still send a JSON error.
	var buf bytes.Buffer
	rows, err := h.exportService.Export(c.Request.Context(), input, &buf)
	if err != nil {
		h.errs.HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("receipts_%s.%s", h.now().Format("20060102_150405"), input.Format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Export-Rows", strconv.Itoa(rows))
	c.Data(http.StatusOK, export.ContentType(input.Format), buf.Bytes())
}
