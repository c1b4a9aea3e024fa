package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/service"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
	"github.com/gestorescolar/tareas-api/pkg/response"
)

// UserHandler handles user CRUD and hours endpoints.
type UserHandler struct {
	service *service.UserService
	stats   *service.StatsService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService, stats *service.StatsService) *UserHandler {
	return &UserHandler{service: svc, stats: stats}
}

// List godoc
// @Summary List users
// @Description List users with pagination and filtering
// @Tags Users
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param tipoUsuario query string false "Role filter"
// @Param activo query bool false "Active filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if role := c.Query("tipoUsuario"); role != "" {
		r := models.UserRole(role)
		filter.TipoUsuario = &r
	}
	if activo := c.Query("activo"); activo != "" {
		if val, err := strconv.ParseBool(activo); err == nil {
			filter.Activo = &val
		}
	}
	filter.Search = c.Query("search")

	users, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get user
// @Description Get one user by matricula
// @Tags Users
// @Produce json
// @Param matricula path string true "Matricula"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{matricula} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.service.Get(c.Request.Context(), c.Param("matricula"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Create user
// @Description Register a new user
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.CreateUserRequest true "Create user payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	user, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.stats.Invalidate(c.Request.Context())
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Description Edit an existing user
// @Tags Users
// @Accept json
// @Produce json
// @Param matricula path string true "Matricula"
// @Param payload body models.UpdateUserRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /users/{matricula} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	user, err := h.service.Update(c.Request.Context(), c.Param("matricula"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.stats.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, user, nil)
}

// Delete godoc
// @Summary Deactivate user
// @Description Soft delete a user by marking it inactive
// @Tags Users
// @Produce json
// @Param matricula path string true "Matricula"
// @Success 204 {object} response.Envelope
// @Router /users/{matricula} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("matricula")); err != nil {
		response.Error(c, err)
		return
	}

	h.stats.Invalidate(c.Request.Context())
	response.NoContent(c)
}

// Purge godoc
// @Summary Purge user
// @Description Hard delete a user and everything referencing it
// @Tags Users
// @Produce json
// @Param matricula path string true "Matricula"
// @Success 204 {object} response.Envelope
// @Router /users/{matricula}/purge [delete]
func (h *UserHandler) Purge(c *gin.Context) {
	if err := h.service.Purge(c.Request.Context(), c.Param("matricula")); err != nil {
		response.Error(c, err)
		return
	}

	h.stats.Invalidate(c.Request.Context())
	response.NoContent(c)
}

type creditHoursRequest struct {
	Horas int `json:"horas"`
}

// CreditHours godoc
// @Summary Credit hours
// @Description Manually credit service hours to a student
// @Tags Users
// @Accept json
// @Produce json
// @Param matricula path string true "Matricula"
// @Param payload body creditHoursRequest true "Hours payload"
// @Success 200 {object} response.Envelope
// @Router /users/{matricula}/horas [post]
func (h *UserHandler) CreditHours(c *gin.Context) {
	var req creditHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	total, err := h.service.CreditHours(c.Request.Context(), c.Param("matricula"), req.Horas)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.stats.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, gin.H{"matricula": c.Param("matricula"), "horasCompletadas": total}, nil)
}

// HoursSummary godoc
// @Summary Hours summary
// @Description Servicio social progress for one student
// @Tags Users
// @Produce json
// @Param matricula path string true "Matricula"
// @Success 200 {object} response.Envelope
// @Router /users/{matricula}/horas [get]
func (h *UserHandler) HoursSummary(c *gin.Context) {
	summary, err := h.service.HoursSummary(c.Request.Context(), c.Param("matricula"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, summary, nil)
}
