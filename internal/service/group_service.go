package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type groupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
	ListByTeacher(ctx context.Context, matricula string) ([]models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
}

type groupAssignmentRepository interface {
	Exists(ctx context.Context, groupID, userID string) (bool, error)
	Create(ctx context.Context, assignment *models.GroupAssignment) error
	Delete(ctx context.Context, groupID, userID string) error
	Members(ctx context.Context, groupID string) ([]models.GroupMember, error)
	GroupsByUser(ctx context.Context, userID string) ([]models.Group, error)
}

type groupUserLookup interface {
	FindByMatricula(ctx context.Context, matricula string) (*models.User, error)
}

// GroupService provides group and membership use cases.
type GroupService struct {
	groups      groupRepository
	assignments groupAssignmentRepository
	users       groupUserLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGroupService constructs a GroupService instance.
func NewGroupService(groups groupRepository, assignments groupAssignmentRepository, users groupUserLookup, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GroupService{groups: groups, assignments: assignments, users: users, validator: validate, logger: logger}
}

// List returns every group.
func (s *GroupService) List(ctx context.Context) ([]models.Group, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// ListByTeacher returns the groups a maestro is responsible for.
func (s *GroupService) ListByTeacher(ctx context.Context, matricula string) ([]models.Group, error) {
	groups, err := s.groups.ListByTeacher(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher groups")
	}
	return groups, nil
}

// Get returns a group together with its member projection.
func (s *GroupService) Get(ctx context.Context, id string) (*models.GroupDetail, error) {
	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grupo no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	members, err := s.assignments.Members(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
	}
	if members == nil {
		members = []models.GroupMember{}
	}

	return &models.GroupDetail{Group: *group, AlumnosAsignados: members}, nil
}

// Create registers a new group.
func (s *GroupService) Create(ctx context.Context, req models.CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	if _, err := s.users.FindByMatricula(ctx, req.MaestroResponsable); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "el maestro responsable no existe")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check maestro")
	}

	group := &models.Group{
		Nombre:             req.Nombre,
		Descripcion:        req.Descripcion,
		TipoGrupo:          req.TipoGrupo,
		MaestroResponsable: req.MaestroResponsable,
		Activo:             true,
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// Update edits an existing group.
func (s *GroupService) Update(ctx context.Context, id string, req models.UpdateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	group, err := s.groups.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grupo no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	group.Nombre = req.Nombre
	group.Descripcion = req.Descripcion
	group.TipoGrupo = req.TipoGrupo
	group.MaestroResponsable = req.MaestroResponsable
	if req.Activo != nil {
		group.Activo = *req.Activo
	}

	if err := s.groups.Update(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	return group, nil
}

// Delete removes a group and its memberships.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.groups.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grupo no encontrado")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if err := s.groups.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}

// AssignUser adds a member to a group. Duplicate memberships are rejected
// before any write happens.
func (s *GroupService) AssignUser(ctx context.Context, groupID, userID, assignedBy string) (*models.GroupAssignment, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grupo no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if _, err := s.users.FindByMatricula(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "usuario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	exists, err := s.assignments.Exists(ctx, groupID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateMembership, "el usuario ya pertenece al grupo")
	}

	assignment := &models.GroupAssignment{
		GroupID:    groupID,
		UserID:     userID,
		AssignedBy: assignedBy,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create membership")
	}
	return assignment, nil
}

// RemoveUser drops a member from a group.
func (s *GroupService) RemoveUser(ctx context.Context, groupID, userID string) error {
	exists, err := s.assignments.Exists(ctx, groupID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "el usuario no pertenece al grupo")
	}
	if err := s.assignments.Delete(ctx, groupID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove membership")
	}
	return nil
}

// Members returns the member projection of a group.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	members, err := s.assignments.Members(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group members")
	}
	return members, nil
}

// GroupsByUser returns the groups a user belongs to.
func (s *GroupService) GroupsByUser(ctx context.Context, userID string) ([]models.Group, error) {
	groups, err := s.assignments.GroupsByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user groups")
	}
	return groups, nil
}
