package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type mockGroupRepo struct {
	groups map[string]*models.Group
	seq    int
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{groups: map[string]*models.Group{}}
}

func (m *mockGroupRepo) FindByID(_ context.Context, id string) (*models.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *group
	return &copied, nil
}

func (m *mockGroupRepo) List(_ context.Context) ([]models.Group, error) {
	var out []models.Group
	for _, group := range m.groups {
		out = append(out, *group)
	}
	return out, nil
}

func (m *mockGroupRepo) ListByTeacher(_ context.Context, matricula string) ([]models.Group, error) {
	var out []models.Group
	for _, group := range m.groups {
		if group.MaestroResponsable == matricula {
			out = append(out, *group)
		}
	}
	return out, nil
}

func (m *mockGroupRepo) Create(_ context.Context, group *models.Group) error {
	if group.ID == "" {
		m.seq++
		group.ID = "grupo-" + string(rune('0'+m.seq))
	}
	stored := *group
	m.groups[group.ID] = &stored
	return nil
}

func (m *mockGroupRepo) Update(_ context.Context, group *models.Group) error {
	stored := *group
	m.groups[group.ID] = &stored
	return nil
}

func (m *mockGroupRepo) Delete(_ context.Context, id string) error {
	delete(m.groups, id)
	return nil
}

type membershipKey struct{ groupID, userID string }

type mockAssignmentRepo struct {
	assignments map[membershipKey]*models.GroupAssignment
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{assignments: map[membershipKey]*models.GroupAssignment{}}
}

func (m *mockAssignmentRepo) Exists(_ context.Context, groupID, userID string) (bool, error) {
	_, ok := m.assignments[membershipKey{groupID, userID}]
	return ok, nil
}

func (m *mockAssignmentRepo) Create(_ context.Context, assignment *models.GroupAssignment) error {
	m.assignments[membershipKey{assignment.GroupID, assignment.UserID}] = assignment
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, groupID, userID string) error {
	delete(m.assignments, membershipKey{groupID, userID})
	return nil
}

func (m *mockAssignmentRepo) Members(_ context.Context, groupID string) ([]models.GroupMember, error) {
	var out []models.GroupMember
	for key := range m.assignments {
		if key.groupID == groupID {
			out = append(out, models.GroupMember{Matricula: key.userID})
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) ListAll(_ context.Context) ([]models.GroupAssignment, error) {
	var out []models.GroupAssignment
	for _, assignment := range m.assignments {
		out = append(out, *assignment)
	}
	return out, nil
}

func (m *mockAssignmentRepo) GroupsByUser(_ context.Context, userID string) ([]models.Group, error) {
	var out []models.Group
	for key := range m.assignments {
		if key.userID == userID {
			out = append(out, models.Group{ID: key.groupID})
		}
	}
	return out, nil
}

type mockUserLookup struct {
	users map[string]*models.User
}

func (m *mockUserLookup) FindByMatricula(_ context.Context, matricula string) (*models.User, error) {
	user, ok := m.users[matricula]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type groupServiceFixture struct {
	svc         *GroupService
	groups      *mockGroupRepo
	assignments *mockAssignmentRepo
	users       *mockUserLookup
}

func newGroupServiceFixture() *groupServiceFixture {
	f := &groupServiceFixture{
		groups:      newMockGroupRepo(),
		assignments: newMockAssignmentRepo(),
		users:       &mockUserLookup{users: map[string]*models.User{}},
	}
	f.svc = NewGroupService(f.groups, f.assignments, f.users, nil, nil)
	return f
}

func TestGroupServiceCreate(t *testing.T) {
	f := newGroupServiceFixture()
	f.users.users["maestro001"] = &models.User{Matricula: "maestro001", TipoUsuario: models.RoleMaestro}

	group, err := f.svc.Create(context.Background(), models.CreateGroupRequest{
		Nombre:             "Servicio Social 2026",
		TipoGrupo:          models.GroupServicioSocial,
		MaestroResponsable: "maestro001",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, group.ID)
	assert.True(t, group.Activo)
}

func TestGroupServiceCreateUnknownTeacher(t *testing.T) {
	f := newGroupServiceFixture()

	_, err := f.svc.Create(context.Background(), models.CreateGroupRequest{
		Nombre:             "Servicio Social 2026",
		TipoGrupo:          models.GroupServicioSocial,
		MaestroResponsable: "ghost",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGroupServiceAssignUser(t *testing.T) {
	f := newGroupServiceFixture()
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", TipoGrupo: models.GroupServicioSocial}
	f.users.users["est001"] = &models.User{Matricula: "est001", TipoUsuario: models.RoleEstudiante}

	assignment, err := f.svc.AssignUser(context.Background(), "grupo-1", "est001", "maestro001")
	require.NoError(t, err)
	assert.Equal(t, "maestro001", assignment.AssignedBy)

	members, err := f.svc.Members(context.Background(), "grupo-1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestGroupServiceAssignUserRejectsDuplicate(t *testing.T) {
	f := newGroupServiceFixture()
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", TipoGrupo: models.GroupServicioSocial}
	f.users.users["est001"] = &models.User{Matricula: "est001", TipoUsuario: models.RoleEstudiante}

	_, err := f.svc.AssignUser(context.Background(), "grupo-1", "est001", "maestro001")
	require.NoError(t, err)

	_, err = f.svc.AssignUser(context.Background(), "grupo-1", "est001", "maestro001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateMembership.Code, appErrors.FromError(err).Code)

	members, err := f.svc.Members(context.Background(), "grupo-1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestGroupServiceRemoveUser(t *testing.T) {
	f := newGroupServiceFixture()
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1"}
	f.users.users["est001"] = &models.User{Matricula: "est001"}

	_, err := f.svc.AssignUser(context.Background(), "grupo-1", "est001", "maestro001")
	require.NoError(t, err)
	require.NoError(t, f.svc.RemoveUser(context.Background(), "grupo-1", "est001"))

	// Re-assignment after removal is allowed again.
	_, err = f.svc.AssignUser(context.Background(), "grupo-1", "est001", "maestro001")
	assert.NoError(t, err)
}

func TestGroupServiceRemoveUserNotMember(t *testing.T) {
	f := newGroupServiceFixture()

	err := f.svc.RemoveUser(context.Background(), "grupo-1", "est001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGroupServiceGetIncludesMembers(t *testing.T) {
	f := newGroupServiceFixture()
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", Nombre: "Servicio Social"}
	f.users.users["est001"] = &models.User{Matricula: "est001"}

	_, err := f.svc.AssignUser(context.Background(), "grupo-1", "est001", "maestro001")
	require.NoError(t, err)

	detail, err := f.svc.Get(context.Background(), "grupo-1")
	require.NoError(t, err)
	assert.Equal(t, "Servicio Social", detail.Nombre)
	assert.Len(t, detail.AlumnosAsignados, 1)
}

func TestGroupServiceGetNotFound(t *testing.T) {
	f := newGroupServiceFixture()

	_, err := f.svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
