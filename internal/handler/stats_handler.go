package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gestorescolar/tareas-api/internal/middleware"
	"github.com/gestorescolar/tareas-api/internal/service"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
	"github.com/gestorescolar/tareas-api/pkg/response"
)

// StatsHandler handles the per-role dashboard aggregates.
type StatsHandler struct {
	service *service.StatsService
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Admin godoc
// @Summary Admin stats
// @Description System-wide aggregates for the admin dashboard
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/admin [get]
func (h *StatsHandler) Admin(c *gin.Context) {
	stats, cacheHit, err := h.service.AdminStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Teacher godoc
// @Summary Teacher stats
// @Description Aggregates for the authenticated maestro
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/teacher [get]
func (h *StatsHandler) Teacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, cacheHit, err := h.service.TeacherStats(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Student godoc
// @Summary Student stats
// @Description Aggregates for the authenticated estudiante
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/student [get]
func (h *StatsHandler) Student(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, cacheHit, err := h.service.StudentStats(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}
