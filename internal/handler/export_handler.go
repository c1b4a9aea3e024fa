package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gestorescolar/tareas-api/internal/service"
	"github.com/gestorescolar/tareas-api/pkg/response"
)

// ExportHandler handles backup and report endpoints.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Document godoc
// @Summary Export all data
// @Description Full backup document with every stored collection
// @Tags Export
// @Produce json
// @Success 200 {object} models.ExportDocument
// @Router /export [get]
func (h *ExportHandler) Document(c *gin.Context) {
	doc, err := h.service.Document(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("respaldo_%s.json", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.JSON(http.StatusOK, doc)
}

// HoursReport godoc
// @Summary Hours report
// @Description Per-student hours report as CSV or PDF download
// @Tags Export
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /export/horas [get]
func (h *ExportHandler) HoursReport(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	payload, filename, err := h.service.HoursReport(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if format == "pdf" {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
