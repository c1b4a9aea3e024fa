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

const taskColumns = `id, title, description, user_id, group_id, status, priority, due_date, has_hours, hours_assigned, max_students, current_enrollments, is_available, created_by, created_at, updated_at`

// TaskRepository handles persistence of tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID returns a task by its ID.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1 LIMIT 1`, taskColumns)
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task by id: %w", err)
	}
	return &task, nil
}

// List returns tasks filtered by the provided criteria.
func (r *TaskRepository) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, error) {
	baseQuery := `FROM tasks WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, *filter.UserID)
	}
	if filter.GroupID != nil {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, *filter.GroupID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY due_date, created_at", taskColumns, baseQuery)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListForStudent returns the union of tasks assigned directly to the student
// and tasks assigned to any of the student's groups, deduplicated.
func (r *TaskRepository) ListForStudent(ctx context.Context, matricula string) ([]models.Task, error) {
	const query = `SELECT DISTINCT t.id, t.title, t.description, t.user_id, t.group_id, t.status, t.priority, t.due_date, t.has_hours, t.hours_assigned, t.max_students, t.current_enrollments, t.is_available, t.created_by, t.created_at, t.updated_at
        FROM tasks t
        LEFT JOIN group_assignments ga ON ga.group_id = t.group_id
        WHERE t.user_id = $1 OR ga.user_id = $1
        ORDER BY t.due_date, t.created_at`
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, matricula); err != nil {
		return nil, fmt.Errorf("list tasks for student: %w", err)
	}
	return tasks, nil
}

// Create persists a new task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	const query = `INSERT INTO tasks (id, title, description, user_id, group_id, status, priority, due_date, has_hours, hours_assigned, max_students, current_enrollments, is_available, created_by, created_at, updated_at)
        VALUES (:id, :title, :description, :user_id, :group_id, :status, :priority, :due_date, :has_hours, :hours_assigned, :max_students, :current_enrollments, :is_available, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// Update updates mutable fields of a task.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET title = :title, description = :description, status = :status, priority = :priority, due_date = :due_date, hours_assigned = :hours_assigned, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete removes a task together with its enrollments and files.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	statements := []string{
		`DELETE FROM task_enrollments WHERE task_id = $1`,
		`DELETE FROM task_files WHERE task_id = $1`,
		`DELETE FROM tasks WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task delete: %w", err)
	}
	return nil
}

// ListAll returns every task for the export document.
func (r *TaskRepository) ListAll(ctx context.Context) ([]models.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks ORDER BY created_at`, taskColumns)
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query); err != nil {
		return nil, fmt.Errorf("list all tasks: %w", err)
	}
	return tasks, nil
}
