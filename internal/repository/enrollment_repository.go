package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gestorescolar/tareas-api/internal/models"
)

// Sentinel errors surfaced by the enroll transaction. The service layer
// translates them into client-facing errors.
var (
	ErrDuplicateEnrollment = errors.New("enrollment already exists")
	ErrTaskCapacityFull    = errors.New("task capacity reached")
)

// EnrollmentRepository handles persistence of task enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

type taskCapacityRow struct {
	MaxStudents        *int `db:"max_students"`
	CurrentEnrollments int  `db:"current_enrollments"`
}

// Enroll inserts the enrollment and bumps the task counters in a single
// transaction. The task row is locked first so two concurrent enrolls can
// never both observe free capacity.
func (r *EnrollmentRepository) Enroll(ctx context.Context, enrollment *models.TaskEnrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var capacity taskCapacityRow
	if err := tx.GetContext(ctx, &capacity, `SELECT max_students, current_enrollments FROM tasks WHERE id = $1 FOR UPDATE`, enrollment.TaskID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock task for enroll: %w", err)
	}

	var exists int
	err = tx.GetContext(ctx, &exists, `SELECT 1 FROM task_enrollments WHERE task_id = $1 AND user_id = $2 LIMIT 1`, enrollment.TaskID, enrollment.UserID)
	if err == nil {
		return ErrDuplicateEnrollment
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check enrollment: %w", err)
	}

	if capacity.MaxStudents != nil && capacity.CurrentEnrollments >= *capacity.MaxStudents {
		return ErrTaskCapacityFull
	}

	const insert = `INSERT INTO task_enrollments (id, task_id, user_id, file_id, enrolled_at)
        VALUES (:id, :task_id, :user_id, :file_id, :enrolled_at)`
	if _, err := tx.NamedExecContext(ctx, insert, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}

	newCount := capacity.CurrentEnrollments + 1
	available := capacity.MaxStudents == nil || newCount < *capacity.MaxStudents
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET current_enrollments = $2, is_available = $3, updated_at = $4 WHERE id = $1`,
		enrollment.TaskID, newCount, available, time.Now().UTC()); err != nil {
		return fmt.Errorf("update task enrollment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit enroll: %w", err)
	}
	return nil
}

// Unenroll removes the enrollment, decrements the counter and re-opens the
// task when it drops below capacity.
func (r *EnrollmentRepository) Unenroll(ctx context.Context, taskID, userID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unenroll: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var capacity taskCapacityRow
	if err := tx.GetContext(ctx, &capacity, `SELECT max_students, current_enrollments FROM tasks WHERE id = $1 FOR UPDATE`, taskID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock task for unenroll: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM task_enrollments WHERE task_id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unenroll rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	newCount := capacity.CurrentEnrollments - 1
	if newCount < 0 {
		newCount = 0
	}
	available := capacity.MaxStudents == nil || newCount < *capacity.MaxStudents
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET current_enrollments = $2, is_available = $3, updated_at = $4 WHERE id = $1`,
		taskID, newCount, available, time.Now().UTC()); err != nil {
		return fmt.Errorf("update task enrollment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unenroll: %w", err)
	}
	return nil
}

// ListByTask returns the enrollments for one task.
func (r *EnrollmentRepository) ListByTask(ctx context.Context, taskID string) ([]models.TaskEnrollment, error) {
	const query = `SELECT id, task_id, user_id, file_id, enrolled_at FROM task_enrollments WHERE task_id = $1 ORDER BY enrolled_at`
	var enrollments []models.TaskEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, taskID); err != nil {
		return nil, fmt.Errorf("list enrollments by task: %w", err)
	}
	return enrollments, nil
}

// ListByUser returns the enrollments of one student.
func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]models.TaskEnrollment, error) {
	const query = `SELECT id, task_id, user_id, file_id, enrolled_at FROM task_enrollments WHERE user_id = $1 ORDER BY enrolled_at`
	var enrollments []models.TaskEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments by user: %w", err)
	}
	return enrollments, nil
}
