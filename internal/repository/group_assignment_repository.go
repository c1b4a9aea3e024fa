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

// GroupAssignmentRepository handles the membership table. The assignment
// rows are the single source of truth; member lists are projected from
// them at read time.
type GroupAssignmentRepository struct {
	db *sqlx.DB
}

// NewGroupAssignmentRepository constructs the repository.
func NewGroupAssignmentRepository(db *sqlx.DB) *GroupAssignmentRepository {
	return &GroupAssignmentRepository{db: db}
}

// Exists checks whether a (group, user) membership already exists.
func (r *GroupAssignmentRepository) Exists(ctx context.Context, groupID, userID string) (bool, error) {
	const query = `SELECT 1 FROM group_assignments WHERE group_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, groupID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check group membership: %w", err)
	}
	return true, nil
}

// Create persists a new membership.
func (r *GroupAssignmentRepository) Create(ctx context.Context, assignment *models.GroupAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO group_assignments (id, group_id, user_id, assigned_by, assigned_at)
        VALUES (:id, :group_id, :user_id, :assigned_by, :assigned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create group assignment: %w", err)
	}
	return nil
}

// Delete removes a membership.
func (r *GroupAssignmentRepository) Delete(ctx context.Context, groupID, userID string) error {
	const query = `DELETE FROM group_assignments WHERE group_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("delete group assignment: %w", err)
	}
	return nil
}

// Members projects the member list of a group from its assignments.
func (r *GroupAssignmentRepository) Members(ctx context.Context, groupID string) ([]models.GroupMember, error) {
	const query = `SELECT u.matricula, u.nombre, u.email, ga.assigned_by, ga.assigned_at
        FROM group_assignments ga
        JOIN users u ON u.matricula = ga.user_id
        WHERE ga.group_id = $1
        ORDER BY ga.assigned_at`
	var members []models.GroupMember
	if err := r.db.SelectContext(ctx, &members, query, groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return members, nil
}

// GroupsByUser returns the groups a user belongs to.
func (r *GroupAssignmentRepository) GroupsByUser(ctx context.Context, userID string) ([]models.Group, error) {
	const query = `SELECT g.id, g.nombre, g.descripcion, g.tipo_grupo, g.maestro_responsable, g.activo, g.created_at, g.updated_at
        FROM groups g
        JOIN group_assignments ga ON ga.group_id = g.id
        WHERE ga.user_id = $1
        ORDER BY g.created_at`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, userID); err != nil {
		return nil, fmt.Errorf("list groups by user: %w", err)
	}
	return groups, nil
}

// ListAll returns every assignment for the export document.
func (r *GroupAssignmentRepository) ListAll(ctx context.Context) ([]models.GroupAssignment, error) {
	const query = `SELECT id, group_id, user_id, assigned_by, assigned_at FROM group_assignments ORDER BY assigned_at`
	var assignments []models.GroupAssignment
	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("list all group assignments: %w", err)
	}
	return assignments, nil
}
