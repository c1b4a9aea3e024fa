package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gestorescolar/tareas-api/internal/models"
)

// TaskFileRepository handles persistence of task attachments.
type TaskFileRepository struct {
	db *sqlx.DB
}

// NewTaskFileRepository constructs the repository.
func NewTaskFileRepository(db *sqlx.DB) *TaskFileRepository {
	return &TaskFileRepository{db: db}
}

// Create persists a new task file record.
func (r *TaskFileRepository) Create(ctx context.Context, file *models.TaskFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO task_files (id, task_id, uploaded_by, file_name, mime_type, size_bytes, path, uploaded_at)
        VALUES (:id, :task_id, :uploaded_by, :file_name, :mime_type, :size_bytes, :path, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create task file: %w", err)
	}
	return nil
}

// FindByID returns a task file by its ID.
func (r *TaskFileRepository) FindByID(ctx context.Context, id string) (*models.TaskFile, error) {
	const query = `SELECT id, task_id, uploaded_by, file_name, mime_type, size_bytes, path, uploaded_at FROM task_files WHERE id = $1 LIMIT 1`
	var file models.TaskFile
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find task file by id: %w", err)
	}
	return &file, nil
}

// ListByTask returns the files attached to a task.
func (r *TaskFileRepository) ListByTask(ctx context.Context, taskID string) ([]models.TaskFile, error) {
	const query = `SELECT id, task_id, uploaded_by, file_name, mime_type, size_bytes, path, uploaded_at FROM task_files WHERE task_id = $1 ORDER BY uploaded_at`
	var files []models.TaskFile
	if err := r.db.SelectContext(ctx, &files, query, taskID); err != nil {
		return nil, fmt.Errorf("list task files: %w", err)
	}
	return files, nil
}

// Delete removes one task file record.
func (r *TaskFileRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM task_files WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete task file: %w", err)
	}
	return nil
}

// Submissions returns one row per uploader for the submission stats,
// keeping the earliest upload of each student.
func (r *TaskFileRepository) Submissions(ctx context.Context, taskID string) ([]models.TaskSubmission, error) {
	const query = `SELECT DISTINCT ON (uploaded_by) uploaded_by, file_name, uploaded_at
        FROM task_files WHERE task_id = $1 ORDER BY uploaded_by, uploaded_at`
	var submissions []models.TaskSubmission
	if err := r.db.SelectContext(ctx, &submissions, query, taskID); err != nil {
		return nil, fmt.Errorf("list task submissions: %w", err)
	}
	return submissions, nil
}
