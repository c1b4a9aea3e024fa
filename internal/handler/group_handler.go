package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/service"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
	"github.com/gestorescolar/tareas-api/pkg/response"
)

// GroupHandler handles group and membership endpoints.
type GroupHandler struct {
	service *service.GroupService
}

// NewGroupHandler creates a new group handler.
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// List godoc
// @Summary List groups
// @Description List every group; maestros can filter to their own
// @Tags Groups
// @Produce json
// @Param mine query bool false "Only groups the caller is responsible for"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)

	if c.Query("mine") == "true" && claims != nil {
		groups, err := h.service.ListByTeacher(c.Request.Context(), claims.Matricula)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, groups, nil)
		return
	}

	groups, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, groups, nil)
}

// Get godoc
// @Summary Get group
// @Description Group detail with its member projection
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create group
// @Description Register a servicio social or workshop group
// @Tags Groups
// @Accept json
// @Produce json
// @Param payload body models.CreateGroupRequest true "Create group payload"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	group, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, group)
}

// Update godoc
// @Summary Update group
// @Description Edit an existing group
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.UpdateGroupRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	var req models.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	group, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, group, nil)
}

// Delete godoc
// @Summary Delete group
// @Description Remove a group and its memberships
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 204 {object} response.Envelope
// @Router /groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// AssignUser godoc
// @Summary Assign member
// @Description Add a user to a group; duplicates are rejected
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body models.AssignUserRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /groups/{id}/members [post]
func (h *GroupHandler) AssignUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AssignUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.service.AssignUser(c.Request.Context(), c.Param("id"), req.UserID, claims.Matricula)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignment)
}

// RemoveUser godoc
// @Summary Remove member
// @Description Drop a user from a group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Param userId path string true "User matricula"
// @Success 204 {object} response.Envelope
// @Router /groups/{id}/members/{userId} [delete]
func (h *GroupHandler) RemoveUser(c *gin.Context) {
	if err := h.service.RemoveUser(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Members godoc
// @Summary Group members
// @Description Member projection of a group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/members [get]
func (h *GroupHandler) Members(c *gin.Context) {
	members, err := h.service.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, members, nil)
}

// GroupsByUser godoc
// @Summary Groups of a user
// @Description Groups the given user belongs to
// @Tags Groups
// @Produce json
// @Param matricula path string true "User matricula"
// @Success 200 {object} response.Envelope
// @Router /users/{matricula}/groups [get]
func (h *GroupHandler) GroupsByUser(c *gin.Context) {
	groups, err := h.service.GroupsByUser(c.Request.Context(), c.Param("matricula"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, groups, nil)
}
