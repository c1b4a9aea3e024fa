package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/service"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
	"github.com/gestorescolar/tareas-api/pkg/response"
)

// EnrollmentHandler handles task self-enrollment endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll in task
// @Description Join an open task; capacity and duplicates are enforced atomically
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body models.EnrollRequest false "Optional enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /tasks/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.EnrollRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), c.Param("id"), claims.Matricula, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, enrollment)
}

// Unenroll godoc
// @Summary Unenroll from task
// @Description Leave a task, re-opening its capacity
// @Tags Enrollments
// @Produce json
// @Param id path string true "Task ID"
// @Success 204 {object} response.Envelope
// @Router /tasks/{id}/enroll [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Unenroll(c.Request.Context(), c.Param("id"), claims.Matricula); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListByTask godoc
// @Summary Task enrollments
// @Description Enrollments of one task
// @Tags Enrollments
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/enrollments [get]
func (h *EnrollmentHandler) ListByTask(c *gin.Context) {
	enrollments, err := h.service.ListByTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, nil)
}

// ListMine godoc
// @Summary My enrollments
// @Description Enrollments of the authenticated student
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollments, err := h.service.ListByUser(c.Request.Context(), claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, nil)
}
