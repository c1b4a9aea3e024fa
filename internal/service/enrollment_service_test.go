package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestorescolar/tareas-api/internal/models"
	"github.com/gestorescolar/tareas-api/internal/repository"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollErr   error
	unenrollErr error
	enrolled    []*models.TaskEnrollment
}

func (m *mockEnrollmentRepo) Enroll(_ context.Context, enrollment *models.TaskEnrollment) error {
	if m.enrollErr != nil {
		return m.enrollErr
	}
	m.enrolled = append(m.enrolled, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) Unenroll(_ context.Context, _, _ string) error {
	return m.unenrollErr
}

func (m *mockEnrollmentRepo) ListByTask(_ context.Context, _ string) ([]models.TaskEnrollment, error) {
	var out []models.TaskEnrollment
	for _, enrollment := range m.enrolled {
		out = append(out, *enrollment)
	}
	return out, nil
}

func (m *mockEnrollmentRepo) ListByUser(_ context.Context, _ string) ([]models.TaskEnrollment, error) {
	return m.ListByTask(context.Background(), "")
}

type enrollmentFixture struct {
	svc   *EnrollmentService
	repo  *mockEnrollmentRepo
	tasks *mockGroupLookupTasks
	users *mockUserLookup
}

type mockGroupLookupTasks struct {
	tasks map[string]*models.Task
}

func (m *mockGroupLookupTasks) FindByID(_ context.Context, id string) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return task, nil
}

func newEnrollmentFixture() *enrollmentFixture {
	f := &enrollmentFixture{
		repo:  &mockEnrollmentRepo{},
		tasks: &mockGroupLookupTasks{tasks: map[string]*models.Task{}},
		users: &mockUserLookup{users: map[string]*models.User{}},
	}
	f.tasks.tasks["task-1"] = &models.Task{ID: "task-1", Title: "Servicio", IsAvailable: true}
	f.users.users["est001"] = &models.User{Matricula: "est001", TipoUsuario: models.RoleEstudiante}
	f.svc = NewEnrollmentService(f.repo, f.tasks, f.users, nil, nil)
	return f
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	f := newEnrollmentFixture()

	enrollment, err := f.svc.Enroll(context.Background(), "task-1", "est001", models.EnrollRequest{})
	require.NoError(t, err)
	assert.Equal(t, "task-1", enrollment.TaskID)
	assert.Equal(t, "est001", enrollment.UserID)
	assert.Len(t, f.repo.enrolled, 1)
}

func TestEnrollmentServiceEnrollUnknownTask(t *testing.T) {
	f := newEnrollmentFixture()

	_, err := f.svc.Enroll(context.Background(), "missing", "est001", models.EnrollRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollDuplicate(t *testing.T) {
	f := newEnrollmentFixture()
	f.repo.enrollErr = repository.ErrDuplicateEnrollment

	_, err := f.svc.Enroll(context.Background(), "task-1", "est001", models.EnrollRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErr.Code)
	assert.Equal(t, "ya estás inscrito en esta tarea", appErr.Message)
}

func TestEnrollmentServiceEnrollCapacityFull(t *testing.T) {
	f := newEnrollmentFixture()
	f.repo.enrollErr = repository.ErrTaskCapacityFull

	_, err := f.svc.Enroll(context.Background(), "task-1", "est001", models.EnrollRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCapacityFull.Code, appErr.Code)
	assert.Equal(t, "la tarea ya no tiene cupo disponible", appErr.Message)
}

func TestEnrollmentServiceUnenrollNotEnrolled(t *testing.T) {
	f := newEnrollmentFixture()
	f.repo.unenrollErr = sql.ErrNoRows

	err := f.svc.Unenroll(context.Background(), "task-1", "est001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceUnenroll(t *testing.T) {
	f := newEnrollmentFixture()

	assert.NoError(t, f.svc.Unenroll(context.Background(), "task-1", "est001"))
}
