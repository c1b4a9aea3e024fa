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

const groupColumns = `id, nombre, descripcion, tipo_grupo, maestro_responsable, activo, created_at, updated_at`

// GroupRepository handles persistence of groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID returns a group by its ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM groups WHERE id = $1 LIMIT 1`, groupColumns)
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find group by id: %w", err)
	}
	return &group, nil
}

// List returns all groups ordered by creation time.
func (r *GroupRepository) List(ctx context.Context) ([]models.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM groups ORDER BY created_at DESC`, groupColumns)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// ListByTeacher returns the groups a maestro is responsible for.
func (r *GroupRepository) ListByTeacher(ctx context.Context, matricula string) ([]models.Group, error) {
	query := fmt.Sprintf(`SELECT %s FROM groups WHERE maestro_responsable = $1 ORDER BY created_at DESC`, groupColumns)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, matricula); err != nil {
		return nil, fmt.Errorf("list groups by teacher: %w", err)
	}
	return groups, nil
}

// Create persists a new group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	const query = `INSERT INTO groups (id, nombre, descripcion, tipo_grupo, maestro_responsable, activo, created_at, updated_at)
        VALUES (:id, :nombre, :descripcion, :tipo_grupo, :maestro_responsable, :activo, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update updates mutable fields of a group.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE groups SET nombre = :nombre, descripcion = :descripcion, tipo_grupo = :tipo_grupo, maestro_responsable = :maestro_responsable, activo = :activo, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// Delete removes a group and its assignments.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin group delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_assignments WHERE group_id = $1`, id); err != nil {
		return fmt.Errorf("delete group assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group delete: %w", err)
	}
	return nil
}

// ListAll returns every group for the export document.
func (r *GroupRepository) ListAll(ctx context.Context) ([]models.Group, error) {
	return r.List(ctx)
}
