package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gestorescolar/tareas-api/internal/models"
)

type seedUserRepository interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) error
}

type seedTaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
}

type seedNotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// SeedService populates an empty database with the demo accounts, tasks
// and notifications so a fresh install is immediately usable.
type SeedService struct {
	users         seedUserRepository
	tasks         seedTaskRepository
	notifications seedNotificationRepository
	logger        *zap.Logger
}

// NewSeedService constructs a SeedService instance.
func NewSeedService(users seedUserRepository, tasks seedTaskRepository, notifications seedNotificationRepository, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{users: users, tasks: tasks, notifications: notifications, logger: logger}
}

// Run seeds the demo data. It is idempotent: if any user already exists
// the seeder does nothing.
func (s *SeedService) Run(ctx context.Context) error {
	total, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		s.logger.Debug("seed skipped, users already present", zap.Int("count", total))
		return nil
	}

	if err := s.seedUsers(ctx); err != nil {
		return err
	}
	if err := s.seedTasks(ctx); err != nil {
		return err
	}
	if err := s.seedNotifications(ctx); err != nil {
		return err
	}

	s.logger.Info("demo data seeded")
	return nil
}

func (s *SeedService) seedUsers(ctx context.Context) error {
	carrera := "Ingeniería en Sistemas"
	semestre := 6

	demo := []struct {
		user     models.User
		password string
	}{
		{
			user: models.User{
				Matricula:       "admin123",
				TipoUsuario:     models.RoleAdministrador,
				Nombre:          "Administrador",
				Apellidos:       "del Sistema",
				Email:           "admin@sistema.com",
				Activo:          true,
				HorasRequeridas: 480,
			},
			password: "admin123",
		},
		{
			user: models.User{
				Matricula:       "maestro001",
				TipoUsuario:     models.RoleMaestro,
				Nombre:          "Juan Carlos",
				Apellidos:       "García López",
				Email:           "jgarcia@escuela.edu",
				Activo:          true,
				HorasRequeridas: 480,
			},
			password: "maestro123",
		},
		{
			user: models.User{
				Matricula:        "est001",
				TipoUsuario:      models.RoleEstudiante,
				Nombre:           "María Elena",
				Apellidos:        "Rodríguez Martínez",
				Email:            "mrodriguez@estudiante.edu",
				Activo:           true,
				Carrera:          &carrera,
				Semestre:         &semestre,
				HorasCompletadas: 45,
				HorasAcumuladas:  45,
				HorasRequeridas:  480,
			},
			password: "est123",
		},
	}

	for i := range demo {
		hash, err := bcrypt.GenerateFromPassword([]byte(demo[i].password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		demo[i].user.PasswordHash = string(hash)
		if err := s.users.Create(ctx, &demo[i].user); err != nil {
			return err
		}
	}
	return nil
}

func (s *SeedService) seedTasks(ctx context.Context) error {
	est := "est001"
	maestro := "maestro001"
	now := time.Now().UTC()

	tasks := []models.Task{
		{
			Title:         "Completar proyecto de matemáticas",
			Description:   "Resolver los ejercicios del capítulo 5 y entregar el reporte",
			UserID:        &est,
			Status:        models.TaskPending,
			Priority:      models.PriorityHigh,
			DueDate:       now.AddDate(0, 0, 7),
			HasHours:      true,
			HoursAssigned: 8,
			IsAvailable:   true,
			CreatedBy:     maestro,
		},
		{
			Title:       "Revisar tareas de estudiantes",
			Description: "Calificar las entregas pendientes de la semana",
			UserID:      &maestro,
			Status:      models.TaskInProgress,
			Priority:    models.PriorityMedium,
			DueDate:     now.AddDate(0, 0, 3),
			IsAvailable: true,
			CreatedBy:   maestro,
		},
	}

	for i := range tasks {
		if err := s.tasks.Create(ctx, &tasks[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SeedService) seedNotifications(ctx context.Context) error {
	notifications := []models.Notification{
		{
			UserID:  "est001",
			Title:   "Nueva tarea asignada",
			Message: "Se te ha asignado una nueva tarea de matemáticas",
			Type:    models.NotificationTask,
		},
		{
			UserID:  "maestro001",
			Title:   "Recordatorio",
			Message: "Tienes tareas pendientes por revisar",
			Type:    models.NotificationReminder,
		},
	}

	for i := range notifications {
		if err := s.notifications.Create(ctx, &notifications[i]); err != nil {
			return err
		}
	}
	return nil
}
