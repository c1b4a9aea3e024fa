package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type taskRepository interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error)
	ListForStudent(ctx context.Context, matricula string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}

type taskNotifier interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type taskGroupLookup interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type taskMemberLookup interface {
	Members(ctx context.Context, groupID string) ([]models.GroupMember, error)
}

type taskUserAccounts interface {
	FindByMatricula(ctx context.Context, matricula string) (*models.User, error)
	CreditHours(ctx context.Context, matricula string, hours int) (int, error)
}

type taskEnrollmentLookup interface {
	ListByTask(ctx context.Context, taskID string) ([]models.TaskEnrollment, error)
}

type taskFileRepository interface {
	Create(ctx context.Context, file *models.TaskFile) error
	FindByID(ctx context.Context, id string) (*models.TaskFile, error)
	ListByTask(ctx context.Context, taskID string) ([]models.TaskFile, error)
	Delete(ctx context.Context, id string) error
	Submissions(ctx context.Context, taskID string) ([]models.TaskSubmission, error)
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	Delete(filename string) error
}

// TaskService provides task lifecycle use cases: creation with notification
// fan-out, status changes with hours crediting, attachments and stats.
type TaskService struct {
	tasks         taskRepository
	notifications taskNotifier
	groups        taskGroupLookup
	members       taskMemberLookup
	users         taskUserAccounts
	enrollments   taskEnrollmentLookup
	files         taskFileRepository
	store         fileStore
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(tasks taskRepository, notifications taskNotifier, groups taskGroupLookup, members taskMemberLookup, users taskUserAccounts, enrollments taskEnrollmentLookup, files taskFileRepository, store fileStore, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TaskService{
		tasks:         tasks,
		notifications: notifications,
		groups:        groups,
		members:       members,
		users:         users,
		enrollments:   enrollments,
		files:         files,
		store:         store,
		validator:     validate,
		logger:        logger,
	}
}

// Get returns one task by id.
func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tarea no encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

// List returns tasks matching the filter.
func (s *TaskService) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	return tasks, nil
}

// ListForStudent returns direct and group tasks for a student, deduplicated.
func (s *TaskService) ListForStudent(ctx context.Context, matricula string) ([]models.Task, error) {
	tasks, err := s.tasks.ListForStudent(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student tasks")
	}
	return tasks, nil
}

// Create registers a task and fans out assignment notifications. Exactly
// one of userId/groupId must be set. Notification failures are logged but
// never roll back the created task.
func (s *TaskService) Create(ctx context.Context, createdBy string, req models.CreateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	hasUser := req.UserID != nil && *req.UserID != ""
	hasGroup := req.GroupID != nil && *req.GroupID != ""
	if hasUser == hasGroup {
		return nil, appErrors.Clone(appErrors.ErrValidation, "la tarea debe asignarse a un usuario o a un grupo, no a ambos")
	}
	if req.HasHours && req.HoursAssigned <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "una tarea con horas requiere un número positivo de horas")
	}
	if req.MaxStudents != nil && *req.MaxStudents <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "el cupo máximo debe ser un entero positivo")
	}

	if hasUser {
		if _, err := s.users.FindByMatricula(ctx, *req.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "el usuario asignado no existe")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignee")
		}
	}
	if hasGroup {
		if _, err := s.groups.FindByID(ctx, *req.GroupID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "el grupo asignado no existe")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group")
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	task := &models.Task{
		Title:         req.Title,
		Description:   req.Description,
		UserID:        req.UserID,
		GroupID:       req.GroupID,
		Status:        models.TaskPending,
		Priority:      priority,
		DueDate:       req.DueDate,
		HasHours:      req.HasHours,
		HoursAssigned: req.HoursAssigned,
		MaxStudents:   req.MaxStudents,
		IsAvailable:   true,
		CreatedBy:     createdBy,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}

	s.notifyAssignment(ctx, task, createdBy)

	return task, nil
}

// Update edits a task. A transition into completed on an hours-bearing task
// that was not already completed credits the hours exactly once.
func (s *TaskService) Update(ctx context.Context, id, actor string, req models.UpdateTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousStatus := task.Status

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = *req.DueDate
	}
	if req.HoursAssigned != nil {
		if task.HasHours && *req.HoursAssigned <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "una tarea con horas requiere un número positivo de horas")
		}
		task.HoursAssigned = *req.HoursAssigned
	}
	if req.Status != nil {
		task.Status = *req.Status
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}

	if req.Status != nil && *req.Status != previousStatus {
		s.notifyStatusChange(ctx, task, actor)

		// The previous-status guard keeps the credit idempotent across
		// repeated completion requests.
		if *req.Status == models.TaskCompleted && task.HasHours && previousStatus != models.TaskCompleted {
			s.creditTaskHours(ctx, task, actor)
		}
	}

	return task, nil
}

// Delete removes a task with its enrollments and files.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete task")
	}
	return nil
}

// AttachFile stores the upload on disk and records it against the task.
func (s *TaskService) AttachFile(ctx context.Context, taskID, uploadedBy, fileName, mimeType string, data []byte) (*models.TaskFile, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	file := &models.TaskFile{
		TaskID:     task.ID,
		UploadedBy: uploadedBy,
		FileName:   fileName,
		MIMEType:   mimeType,
		SizeBytes:  int64(len(data)),
	}
	path := fmt.Sprintf("tasks/%s/%s_%s", task.ID, uploadedBy, fileName)
	stored, err := s.store.Save(path, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	file.Path = stored

	if err := s.files.Create(ctx, file); err != nil {
		if cleanupErr := s.store.Delete(stored); cleanupErr != nil {
			s.logger.Warn("failed to remove orphan upload", zap.String("path", stored), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record file")
	}
	return file, nil
}

// ListFiles returns the attachments of a task.
func (s *TaskService) ListFiles(ctx context.Context, taskID string) ([]models.TaskFile, error) {
	files, err := s.files.ListByTask(ctx, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list task files")
	}
	return files, nil
}

// RemoveFile deletes one attachment record and its stored bytes.
func (s *TaskService) RemoveFile(ctx context.Context, fileID string) error {
	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "archivo no encontrado")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if err := s.files.Delete(ctx, fileID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}
	if err := s.store.Delete(file.Path); err != nil {
		s.logger.Warn("failed to remove stored file", zap.String("path", file.Path), zap.Error(err))
	}
	return nil
}

// SubmissionStats reports who has submitted files for a task. For group
// tasks the expected count is the member roster size.
func (s *TaskService) SubmissionStats(ctx context.Context, taskID string) (*models.SubmissionStats, error) {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	submissions, err := s.files.Submissions(ctx, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}
	if submissions == nil {
		submissions = []models.TaskSubmission{}
	}

	expected := 1
	if task.GroupID != nil {
		members, err := s.members.Members(ctx, *task.GroupID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
		}
		expected = len(members)
	}

	porcentaje := 0.0
	if expected > 0 {
		porcentaje = float64(len(submissions)) / float64(expected) * 100
	}

	return &models.SubmissionStats{
		TaskID:        task.ID,
		TotalExpected: expected,
		Submitted:     len(submissions),
		Porcentaje:    porcentaje,
		Submissions:   submissions,
	}, nil
}

// notifyAssignment fans out creation notifications: one per group member
// for group tasks, one to the assignee for individual tasks unless the
// assignee created the task themselves.
func (s *TaskService) notifyAssignment(ctx context.Context, task *models.Task, createdBy string) {
	message := fmt.Sprintf("Se te ha asignado la tarea \"%s\"", task.Title)
	if task.HasHours {
		message = fmt.Sprintf("%s. Al completarla se acreditarán %d horas", message, task.HoursAssigned)
	}

	var recipients []string
	switch {
	case task.GroupID != nil:
		members, err := s.members.Members(ctx, *task.GroupID)
		if err != nil {
			s.logger.Warn("failed to load members for notification fan-out", zap.String("group_id", *task.GroupID), zap.Error(err))
			return
		}
		for _, member := range members {
			recipients = append(recipients, member.Matricula)
		}
	case task.UserID != nil && *task.UserID != createdBy:
		recipients = append(recipients, *task.UserID)
	}

	for _, recipient := range recipients {
		if err := s.notifications.Create(ctx, &models.Notification{
			UserID:  recipient,
			Title:   "Nueva tarea",
			Message: message,
			Type:    models.NotificationTask,
		}); err != nil {
			s.logger.Warn("failed to deliver task notification", zap.String("user_id", recipient), zap.Error(err))
		}
	}
}

// notifyStatusChange tells the owning user about the new status. Group
// tasks have no single owner, so the notice falls back to the creator.
func (s *TaskService) notifyStatusChange(ctx context.Context, task *models.Task, actor string) {
	recipient := task.CreatedBy
	if task.UserID != nil && *task.UserID != "" {
		recipient = *task.UserID
	}
	if recipient == "" || recipient == actor {
		return
	}
	if err := s.notifications.Create(ctx, &models.Notification{
		UserID:  recipient,
		Title:   "Tarea actualizada",
		Message: fmt.Sprintf("La tarea \"%s\" cambió a estado %s", task.Title, task.Status),
		Type:    models.NotificationTaskUpdate,
	}); err != nil {
		s.logger.Warn("failed to deliver status notification", zap.String("user_id", recipient), zap.Error(err))
	}
}

// creditTaskHours credits the task's hours to the assignee. Individual
// tasks credit their assignee; group tasks credit the acting student,
// and only when the owning group is a servicio social group and the
// actor actually participates in the task.
func (s *TaskService) creditTaskHours(ctx context.Context, task *models.Task, actor string) {
	recipient := actor
	if task.UserID != nil && *task.UserID != "" {
		recipient = *task.UserID
	}

	if task.GroupID != nil {
		group, err := s.groups.FindByID(ctx, *task.GroupID)
		if err != nil {
			s.logger.Warn("failed to load group for hours credit", zap.String("group_id", *task.GroupID), zap.Error(err))
			return
		}
		if group.TipoGrupo != models.GroupServicioSocial {
			return
		}
		participates, err := s.actorParticipates(ctx, task, actor)
		if err != nil {
			s.logger.Warn("failed to check task participation", zap.String("task_id", task.ID), zap.String("user_id", actor), zap.Error(err))
			return
		}
		if !participates {
			s.logger.Warn("hours credit skipped for non-participant", zap.String("task_id", task.ID), zap.String("user_id", actor))
			return
		}
	}
	if recipient == "" {
		return
	}

	total, err := s.users.CreditHours(ctx, recipient, task.HoursAssigned)
	if err != nil {
		s.logger.Error("failed to credit task hours", zap.String("user_id", recipient), zap.Int("hours", task.HoursAssigned), zap.Error(err))
		return
	}

	required := 480
	if user, err := s.users.FindByMatricula(ctx, recipient); err == nil {
		required = user.HorasRequeridas
	}

	if err := s.notifications.Create(ctx, &models.Notification{
		UserID:  recipient,
		Title:   "Horas de servicio social acreditadas",
		Message: fmt.Sprintf("Se han acreditado %d horas. Total: %d/%d horas", task.HoursAssigned, total, required),
		Type:    models.NotificationHoursUpdate,
	}); err != nil {
		s.logger.Warn("failed to deliver hours notification", zap.String("user_id", recipient), zap.Error(err))
	}
}

// actorParticipates reports whether the actor is enrolled in the task or
// belongs to its owning group.
func (s *TaskService) actorParticipates(ctx context.Context, task *models.Task, actor string) (bool, error) {
	enrollments, err := s.enrollments.ListByTask(ctx, task.ID)
	if err != nil {
		return false, err
	}
	for _, enrollment := range enrollments {
		if enrollment.UserID == actor {
			return true, nil
		}
	}

	if task.GroupID == nil {
		return false, nil
	}
	members, err := s.members.Members(ctx, *task.GroupID)
	if err != nil {
		return false, err
	}
	for _, member := range members {
		if member.Matricula == actor {
			return true, nil
		}
	}
	return false, nil
}
