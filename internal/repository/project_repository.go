package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gestorescolar/tareas-api/internal/models"
)

// ProjectRepository handles persistence of projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create persists a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	if project.Status == "" {
		project.Status = "active"
	}
	const query = `INSERT INTO projects (id, name, description, status, created_by, created_at)
        VALUES (:id, :name, :description, :status, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// List returns every project, newest first.
func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	const query = `SELECT id, name, description, status, created_by, created_at FROM projects ORDER BY created_at DESC`
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// ListAll returns every project for the export document.
func (r *ProjectRepository) ListAll(ctx context.Context) ([]models.Project, error) {
	const query = `SELECT id, name, description, status, created_by, created_at FROM projects ORDER BY created_at`
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("list all projects: %w", err)
	}
	return projects, nil
}
