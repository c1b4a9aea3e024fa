package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	purged    []string
	auditLogs []*models.AuditLog
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}}
}

func (m *mockUserRepo) FindByMatricula(_ context.Context, matricula string) (*models.User, error) {
	user, ok := m.users[matricula]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	stored := *user
	m.users[user.Matricula] = &stored
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, user *models.User) error {
	stored := *user
	m.users[user.Matricula] = &stored
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, matricula string) error {
	if user, ok := m.users[matricula]; ok {
		user.Activo = false
	}
	return nil
}

func (m *mockUserRepo) Purge(_ context.Context, matricula string) error {
	delete(m.users, matricula)
	m.purged = append(m.purged, matricula)
	return nil
}

func (m *mockUserRepo) CreditHours(_ context.Context, matricula string, hours int) (int, error) {
	user, ok := m.users[matricula]
	if !ok {
		return 0, sql.ErrNoRows
	}
	user.HorasCompletadas += hours
	user.HorasAcumuladas += hours
	return user.HorasCompletadas, nil
}

func (m *mockUserRepo) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockHoursStats struct {
	withHours, completed, pendingHours int
}

func (m *mockHoursStats) HoursTaskStats(_ context.Context, _ string) (int, int, int, error) {
	return m.withHours, m.completed, m.pendingHours, nil
}

func newUserServiceForTest(repo *mockUserRepo, stats *mockHoursStats) *UserService {
	if stats == nil {
		stats = &mockHoursStats{}
	}
	return NewUserService(repo, stats, nil, nil, 480)
}

func TestUserServiceCreate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newUserServiceForTest(repo, nil)

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Matricula:   "est002",
		Password:    "secreto1",
		TipoUsuario: models.RoleEstudiante,
		Nombre:      "Ana",
		Apellidos:   "López Díaz",
		Email:       "ana@estudiante.edu",
	})
	require.NoError(t, err)
	assert.True(t, user.Activo)
	assert.Equal(t, 480, user.HorasRequeridas)
	assert.Equal(t, "López Díaz", user.Apellidos)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secreto1")))
}

func TestUserServiceCreateDuplicateMatricula(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["est002"] = &models.User{Matricula: "est002", Email: "otra@estudiante.edu"}
	svc := newUserServiceForTest(repo, nil)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Matricula:   "est002",
		Password:    "secreto1",
		TipoUsuario: models.RoleEstudiante,
		Nombre:      "Ana",
		Email:       "ana@estudiante.edu",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["est001"] = &models.User{Matricula: "est001", Email: "ana@estudiante.edu"}
	svc := newUserServiceForTest(repo, nil)

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Matricula:   "est002",
		Password:    "secreto1",
		TipoUsuario: models.RoleEstudiante,
		Nombre:      "Ana",
		Email:       "ANA@estudiante.edu",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeleteIsSoft(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["est001"] = &models.User{Matricula: "est001", Activo: true}
	svc := newUserServiceForTest(repo, nil)

	require.NoError(t, svc.Delete(context.Background(), "est001"))
	assert.False(t, repo.users["est001"].Activo)
	assert.Empty(t, repo.purged)
}

func TestUserServicePurge(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["est001"] = &models.User{Matricula: "est001", Activo: true}
	svc := newUserServiceForTest(repo, nil)

	require.NoError(t, svc.Purge(context.Background(), "est001"))
	assert.NotContains(t, repo.users, "est001")
	assert.Equal(t, []string{"est001"}, repo.purged)
}

func TestUserServiceCreditHoursRejectsNonPositive(t *testing.T) {
	svc := newUserServiceForTest(newMockUserRepo(), nil)

	_, err := svc.CreditHours(context.Background(), "est001", 0)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.CreditHours(context.Background(), "est001", -4)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceHoursSummary(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["est001"] = &models.User{
		Matricula:        "est001",
		Activo:           true,
		HorasCompletadas: 120,
		HorasRequeridas:  480,
	}
	svc := newUserServiceForTest(repo, &mockHoursStats{withHours: 5, completed: 3, pendingHours: 16})

	summary, err := svc.HoursSummary(context.Background(), "est001")
	require.NoError(t, err)
	assert.Equal(t, 120, summary.HorasCompletadas)
	assert.Equal(t, 480, summary.HorasRequeridas)
	assert.InDelta(t, 25.0, summary.Porcentaje, 0.001)
	assert.Equal(t, 5, summary.TareasConHoras)
	assert.Equal(t, 3, summary.TareasCompletadas)
	assert.Equal(t, 16, summary.HorasPendientes)
}

func TestUserServiceHoursSummaryCapsAtHundred(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["est001"] = &models.User{
		Matricula:        "est001",
		Activo:           true,
		HorasCompletadas: 600,
		HorasRequeridas:  480,
	}
	svc := newUserServiceForTest(repo, &mockHoursStats{})

	summary, err := svc.HoursSummary(context.Background(), "est001")
	require.NoError(t, err)
	assert.Equal(t, 100.0, summary.Porcentaje)
}
