package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gestorescolar/tareas-api/internal/service"
	"github.com/gestorescolar/tareas-api/pkg/response"
)

// MetricsHandler exposes Prometheus metrics and a JSON snapshot.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(svc *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: svc}
}

// Prometheus serves the Prometheus scrape endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.service.Handler().ServeHTTP(c.Writer, c.Request)
}

// Snapshot godoc
// @Summary System metrics
// @Description Aggregated runtime metrics for the admin surface
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/system [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Snapshot(), nil)
}
