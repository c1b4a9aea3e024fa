package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/service"
	"github.com/gestorescolar/tareas-api/pkg/config"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
	"github.com/gestorescolar/tareas-api/pkg/response"
)

// defaultMaxUploadBytes caps task attachments when no limit is configured.
const defaultMaxUploadBytes = 10 << 20

// TaskHandler handles task lifecycle, attachment and stats endpoints.
type TaskHandler struct {
	service      *service.TaskService
	stats        *service.StatsService
	maxUpload    int64
	allowedMIMEs map[string]struct{}
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(svc *service.TaskService, stats *service.StatsService, uploads config.UploadsConfig) *TaskHandler {
	maxUpload := uploads.MaxFileSizeBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	var allowed map[string]struct{}
	if len(uploads.AllowedMIMEs) > 0 {
		allowed = make(map[string]struct{}, len(uploads.AllowedMIMEs))
		for _, m := range uploads.AllowedMIMEs {
			allowed[m] = struct{}{}
		}
	}
	return &TaskHandler{service: svc, stats: stats, maxUpload: maxUpload, allowedMIMEs: allowed}
}

// List godoc
// @Summary List tasks
// @Description List tasks with optional filters; estudiantes see their own feed
// @Tags Tasks
// @Produce json
// @Param userId query string false "Assignee filter"
// @Param groupId query string false "Group filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)

	if claims != nil && claims.TipoUsuario == models.RoleEstudiante {
		tasks, err := h.service.ListForStudent(c.Request.Context(), claims.Matricula)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, tasks, nil)
		return
	}

	var filter models.TaskFilter
	if userID := c.Query("userId"); userID != "" {
		filter.UserID = &userID
	}
	if groupID := c.Query("groupId"); groupID != "" {
		filter.GroupID = &groupID
	}
	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		filter.Status = &s
	}

	tasks, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, tasks, nil)
}

// Get godoc
// @Summary Get task
// @Description Get one task by id
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, task, nil)
}

// Create godoc
// @Summary Create task
// @Description Register a task assigned to one user or one group
// @Tags Tasks
// @Accept json
// @Produce json
// @Param payload body models.CreateTaskRequest true "Create task payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	task, err := h.service.Create(c.Request.Context(), claims.Matricula, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.stats.Invalidate(c.Request.Context())
	response.Created(c, task)
}

// Update godoc
// @Summary Update task
// @Description Edit a task; completing an hours task credits the assignee once
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param payload body models.UpdateTaskRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	task, err := h.service.Update(c.Request.Context(), c.Param("id"), claims.Matricula, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.stats.Invalidate(c.Request.Context())
	response.JSON(c, http.StatusOK, task, nil)
}

// Delete godoc
// @Summary Delete task
// @Description Remove a task with its enrollments and files
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 204 {object} response.Envelope
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	h.stats.Invalidate(c.Request.Context())
	response.NoContent(c)
}

// AttachFile godoc
// @Summary Attach file
// @Description Upload an attachment for a task
// @Tags Tasks
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Task ID"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Router /tasks/{id}/files [post]
func (h *TaskHandler) AttachFile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "se requiere un archivo"))
		return
	}
	if fileHeader.Size > h.maxUpload {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "el archivo excede el tamaño permitido"))
		return
	}
	mimeType := fileHeader.Header.Get("Content-Type")
	if h.allowedMIMEs != nil {
		if _, ok := h.allowedMIMEs[mimeType]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tipo de archivo no permitido"))
			return
		}
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxUpload))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	file, err := h.service.AttachFile(c.Request.Context(), c.Param("id"), claims.Matricula, fileHeader.Filename, mimeType, data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, file)
}

// ListFiles godoc
// @Summary List task files
// @Description Attachments of a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/files [get]
func (h *TaskHandler) ListFiles(c *gin.Context) {
	files, err := h.service.ListFiles(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, files, nil)
}

// RemoveFile godoc
// @Summary Remove file
// @Description Delete one attachment
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Param fileId path string true "File ID"
// @Success 204 {object} response.Envelope
// @Router /tasks/{id}/files/{fileId} [delete]
func (h *TaskHandler) RemoveFile(c *gin.Context) {
	if err := h.service.RemoveFile(c.Request.Context(), c.Param("fileId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// SubmissionStats godoc
// @Summary Submission stats
// @Description Who has submitted files for a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Router /tasks/{id}/submissions [get]
func (h *TaskHandler) SubmissionStats(c *gin.Context) {
	stats, err := h.service.SubmissionStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}
