package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type userRepository interface {
	FindByMatricula(ctx context.Context, matricula string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, matricula string) error
	Purge(ctx context.Context, matricula string) error
	CreditHours(ctx context.Context, matricula string, hours int) (int, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type userHoursStats interface {
	HoursTaskStats(ctx context.Context, matricula string) (withHours, completed, pendingHours int, err error)
}

// UserService provides user management use cases.
type UserService struct {
	repo                 userRepository
	stats                userHoursStats
	validator            *validator.Validate
	logger               *zap.Logger
	defaultRequiredHours int
}

// NewUserService constructs a UserService instance.
func NewUserService(repo userRepository, stats userHoursStats, validate *validator.Validate, logger *zap.Logger, defaultRequiredHours int) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if defaultRequiredHours <= 0 {
		defaultRequiredHours = 480
	}
	return &UserService{repo: repo, stats: stats, validator: validate, logger: logger, defaultRequiredHours: defaultRequiredHours}
}

// List returns users matching the filter.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, total, nil
}

// Get returns one user by matricula.
func (s *UserService) Get(ctx context.Context, matricula string) (*models.User, error) {
	user, err := s.repo.FindByMatricula(ctx, matricula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "usuario no encontrado")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create registers a new user. Matricula and email must be unique.
func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if _, err := s.repo.FindByMatricula(ctx, req.Matricula); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "la matrícula ya está registrada")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check matricula")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "el correo ya está registrado")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	required := req.HorasRequeridas
	if required <= 0 {
		required = s.defaultRequiredHours
	}

	user := &models.User{
		Matricula:       req.Matricula,
		PasswordHash:    string(hash),
		TipoUsuario:     req.TipoUsuario,
		Nombre:          req.Nombre,
		Apellidos:       req.Apellidos,
		Email:           req.Email,
		Activo:          true,
		Carrera:         req.Carrera,
		Semestre:        req.Semestre,
		HorasRequeridas: required,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.Matricula,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.Matricula,
	}); err != nil {
		s.logger.Warn("failed to record user create audit log", zap.Error(err))
	}

	return user, nil
}

// Update edits an existing user.
func (s *UserService) Update(ctx context.Context, matricula string, req models.UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.Get(ctx, matricula)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.FindByEmail(ctx, req.Email); err == nil && existing.Matricula != matricula {
		return nil, appErrors.Clone(appErrors.ErrConflict, "el correo ya está registrado")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	user.Nombre = req.Nombre
	user.Email = req.Email
	user.TipoUsuario = req.TipoUsuario
	if req.Activo != nil {
		user.Activo = *req.Activo
	}
	user.Carrera = req.Carrera
	user.Semestre = req.Semestre
	if req.HorasRequeridas != nil && *req.HorasRequeridas > 0 {
		user.HorasRequeridas = *req.HorasRequeridas
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &matricula,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &matricula,
	}); err != nil {
		s.logger.Warn("failed to record user update audit log", zap.Error(err))
	}

	return user, nil
}

// Delete deactivates a user, keeping its history intact.
func (s *UserService) Delete(ctx context.Context, matricula string) error {
	if _, err := s.Get(ctx, matricula); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, matricula); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &matricula,
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: &matricula,
	}); err != nil {
		s.logger.Warn("failed to record user delete audit log", zap.Error(err))
	}
	return nil
}

// Purge removes a user and everything referencing it.
func (s *UserService) Purge(ctx context.Context, matricula string) error {
	if _, err := s.Get(ctx, matricula); err != nil {
		return err
	}
	if err := s.repo.Purge(ctx, matricula); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge user")
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		Action:     models.AuditActionUserPurge,
		Resource:   "users",
		ResourceID: &matricula,
	}); err != nil {
		s.logger.Warn("failed to record user purge audit log", zap.Error(err))
	}
	return nil
}

// CreditHours adds completed hours to a student and returns the new total.
func (s *UserService) CreditHours(ctx context.Context, matricula string, hours int) (int, error) {
	if hours <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "las horas deben ser un entero positivo")
	}
	total, err := s.repo.CreditHours(ctx, matricula, hours)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "usuario no encontrado")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to credit hours")
	}
	return total, nil
}

// HoursSummary returns the servicio social progress for a student.
func (s *UserService) HoursSummary(ctx context.Context, matricula string) (*models.HoursSummary, error) {
	user, err := s.Get(ctx, matricula)
	if err != nil {
		return nil, err
	}

	withHours, completed, pendingHours, err := s.stats.HoursTaskStats(ctx, matricula)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute hours stats")
	}

	porcentaje := 0.0
	if user.HorasRequeridas > 0 {
		porcentaje = float64(user.HorasCompletadas) / float64(user.HorasRequeridas) * 100
		if porcentaje > 100 {
			porcentaje = 100
		}
	}

	return &models.HoursSummary{
		Matricula:         user.Matricula,
		HorasCompletadas:  user.HorasCompletadas,
		HorasRequeridas:   user.HorasRequeridas,
		Porcentaje:        porcentaje,
		TareasConHoras:    withHours,
		TareasCompletadas: completed,
		HorasPendientes:   pendingHours,
	}, nil
}
