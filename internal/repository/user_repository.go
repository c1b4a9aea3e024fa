package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gestorescolar/tareas-api/internal/models"
)

const userColumns = `matricula, password_hash, tipo_usuario, nombre, apellidos, email, activo, carrera, semestre, horas_completadas, horas_requeridas, horas_acumuladas, fecha_registro, updated_at`

// UserRepository provides database access for user management.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByMatricula returns a user by matricula.
func (r *UserRepository) FindByMatricula(ctx context.Context, matricula string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE matricula = $1 LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, matricula); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by matricula: %w", err)
	}
	return &user, nil
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.TipoUsuario != nil {
		conditions = append(conditions, fmt.Sprintf("tipo_usuario = $%d", len(args)+1))
		args = append(args, *filter.TipoUsuario)
	}
	if filter.Activo != nil {
		conditions = append(conditions, fmt.Sprintf("activo = $%d", len(args)+1))
		args = append(args, *filter.Activo)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(nombre) LIKE $%d OR LOWER(matricula) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY fecha_registro DESC LIMIT %d OFFSET %d", userColumns, baseQuery, pageSize, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	return users, total, nil
}

// Create inserts a new user record.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.FechaRegistro.IsZero() {
		user.FechaRegistro = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (matricula, password_hash, tipo_usuario, nombre, apellidos, email, activo, carrera, semestre, horas_completadas, horas_requeridas, horas_acumuladas, fecha_registro, updated_at)
        VALUES (:matricula, :password_hash, :tipo_usuario, :nombre, :apellidos, :email, :activo, :carrera, :semestre, :horas_completadas, :horas_requeridas, :horas_acumuladas, :fecha_registro, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Update updates mutable fields of a user.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET nombre = :nombre, apellidos = :apellidos, email = :email, tipo_usuario = :tipo_usuario, activo = :activo, carrera = :carrera, semestre = :semestre, horas_requeridas = :horas_requeridas, updated_at = :updated_at WHERE matricula = :matricula`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, matricula, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE matricula = $1`
	if _, err := r.db.ExecContext(ctx, query, matricula, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// UpdateProfile updates the self-service profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, matricula, nombre, email string) error {
	const query = `UPDATE users SET nombre = $2, email = $3, updated_at = $4 WHERE matricula = $1`
	if _, err := r.db.ExecContext(ctx, query, matricula, nombre, email, time.Now().UTC()); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// CreditHours adds completed hours to a student in a single statement so
// concurrent credits never lose an increment.
func (r *UserRepository) CreditHours(ctx context.Context, matricula string, hours int) (int, error) {
	const query = `UPDATE users
        SET horas_completadas = horas_completadas + $2,
            horas_acumuladas = horas_acumuladas + $2,
            updated_at = $3
        WHERE matricula = $1
        RETURNING horas_completadas`
	var total int
	if err := r.db.GetContext(ctx, &total, query, matricula, hours, time.Now().UTC()); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("credit hours: %w", err)
	}
	return total, nil
}

// Delete performs a soft delete by marking the user inactive.
func (r *UserRepository) Delete(ctx context.Context, matricula string) error {
	const query = `UPDATE users SET activo = FALSE, updated_at = $2 WHERE matricula = $1`
	if _, err := r.db.ExecContext(ctx, query, matricula, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Purge performs a cascading hard delete of the user and every record that
// references it. Directly assigned tasks keep existing with the assignee
// cleared.
func (r *UserRepository) Purge(ctx context.Context, matricula string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`DELETE FROM task_enrollments WHERE user_id = $1`,
		`DELETE FROM group_assignments WHERE user_id = $1`,
		`DELETE FROM notifications WHERE user_id = $1`,
		`DELETE FROM task_files WHERE uploaded_by = $1`,
		`UPDATE tasks SET user_id = NULL WHERE user_id = $1`,
		`DELETE FROM users WHERE matricula = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, matricula); err != nil {
			return fmt.Errorf("purge user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge: %w", err)
	}
	return nil
}

// ListAll returns every user for the export document.
func (r *UserRepository) ListAll(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users ORDER BY fecha_registro`, userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list all users: %w", err)
	}
	return users, nil
}

// HoursReport returns the per-student hours rows for report rendering.
func (r *UserRepository) HoursReport(ctx context.Context) ([]models.HoursReportRow, error) {
	const query = `SELECT matricula, nombre, COALESCE(carrera, '') AS carrera, horas_completadas, horas_requeridas
        FROM users WHERE tipo_usuario = 'estudiante' AND activo = TRUE ORDER BY nombre`
	var rows []models.HoursReportRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("hours report: %w", err)
	}
	return rows, nil
}

// Count returns the number of stored users. Used by the seeder.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

// CreateAuditLog stores an audit log entry.
func (r *UserRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, detail, ip_address, user_agent, created_at)
        VALUES (:id, :user_id, :action, :resource, :resource_id, :detail, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
