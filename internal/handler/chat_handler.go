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

// ChatHandler handles the global chat feed endpoints.
type ChatHandler struct {
	service *service.ChatService
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// List godoc
// @Summary List messages
// @Description Latest chat messages, oldest first
// @Tags Chat
// @Produce json
// @Param limit query int false "Maximum messages"
// @Success 200 {object} response.Envelope
// @Router /messages [get]
func (h *ChatHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, messages, nil)
}

// Post godoc
// @Summary Post message
// @Description Append a message to the global feed
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body models.PostMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /messages [post]
func (h *ChatHandler) Post(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	message, err := h.service.Post(c.Request.Context(), claims.Matricula, claims.Nombre, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, message)
}
