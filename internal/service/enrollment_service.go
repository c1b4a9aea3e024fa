package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/repository"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, enrollment *models.TaskEnrollment) error
	Unenroll(ctx context.Context, taskID, userID string) error
	ListByTask(ctx context.Context, taskID string) ([]models.TaskEnrollment, error)
	ListByUser(ctx context.Context, userID string) ([]models.TaskEnrollment, error)
}

type enrollmentTaskLookup interface {
	FindByID(ctx context.Context, id string) (*models.Task, error)
}

type enrollmentUserLookup interface {
	FindByMatricula(ctx context.Context, matricula string) (*models.User, error)
}

// EnrollmentService provides self-enrollment use cases with capacity
// enforcement.
type EnrollmentService struct {
	enrollments enrollmentRepository
	tasks       enrollmentTaskLookup
	users       enrollmentUserLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService instance.
func NewEnrollmentService(enrollments enrollmentRepository, tasks enrollmentTaskLookup, users enrollmentUserLookup, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{enrollments: enrollments, tasks: tasks, users: users, validator: validate, logger: logger}
}

// Enroll joins a student to an open task. Capacity and duplicates are
// enforced inside a row-locked transaction, so two concurrent requests can
// never both take the last slot.
func (s *EnrollmentService) Enroll(ctx context.Context, taskID, userID string, req models.EnrollRequest) (*models.TaskEnrollment, error) {
	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tarea no encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	if _, err := s.users.FindByMatricula(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "usuario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	enrollment := &models.TaskEnrollment{
		TaskID: taskID,
		UserID: userID,
		FileID: req.FileID,
	}
	if err := s.enrollments.Enroll(ctx, enrollment); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "ya estás inscrito en esta tarea")
		case errors.Is(err, repository.ErrTaskCapacityFull):
			return nil, appErrors.Clone(appErrors.ErrCapacityFull, "la tarea ya no tiene cupo disponible")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tarea no encontrada")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}
	return enrollment, nil
}

// Unenroll removes a student from a task, re-opening capacity.
func (s *EnrollmentService) Unenroll(ctx context.Context, taskID, userID string) error {
	if err := s.enrollments.Unenroll(ctx, taskID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "inscripción no encontrada")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unenroll")
	}
	return nil
}

// ListByTask returns the enrollments of one task.
func (s *EnrollmentService) ListByTask(ctx context.Context, taskID string) ([]models.TaskEnrollment, error) {
	enrollments, err := s.enrollments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// ListByUser returns the enrollments of one student.
func (s *EnrollmentService) ListByUser(ctx context.Context, userID string) ([]models.TaskEnrollment, error) {
	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}
