package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gestorescolar/tareas-api/internal/models"
)

// StatsRepository computes the per-role dashboard aggregates.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// AdminStats returns the system-wide aggregates.
func (r *StatsRepository) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM users WHERE activo = TRUE) AS active_users,
        (SELECT COUNT(*) FROM projects) AS total_projects,
        (SELECT COUNT(*) FROM tasks) AS total_tasks,
        (SELECT COUNT(*) FROM groups) AS total_groups,
        (SELECT COUNT(*) FROM groups WHERE activo = TRUE) AS active_groups,
        (SELECT COUNT(*) FROM groups WHERE tipo_grupo = 'servicio_social') AS service_groups,
        (SELECT COUNT(*) FROM groups WHERE tipo_grupo = 'taller_curso') AS course_groups`

	var row struct {
		ActiveUsers   int `db:"active_users"`
		TotalProjects int `db:"total_projects"`
		TotalTasks    int `db:"total_tasks"`
		TotalGroups   int `db:"total_groups"`
		ActiveGroups  int `db:"active_groups"`
		ServiceGroups int `db:"service_groups"`
		CourseGroups  int `db:"course_groups"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("admin stats: %w", err)
	}
	return &models.AdminStats{
		ActiveUsers:   row.ActiveUsers,
		TotalProjects: row.TotalProjects,
		TotalTasks:    row.TotalTasks,
		TotalGroups:   row.TotalGroups,
		ActiveGroups:  row.ActiveGroups,
		ServiceGroups: row.ServiceGroups,
		CourseGroups:  row.CourseGroups,
	}, nil
}

// TeacherStats returns the aggregates for one maestro.
func (r *StatsRepository) TeacherStats(ctx context.Context, matricula string) (*models.TeacherStats, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM projects WHERE created_by = $1) AS created_projects,
        (SELECT COUNT(*) FROM tasks WHERE created_by = $1) AS assigned_tasks,
        (SELECT COUNT(*) FROM users WHERE tipo_usuario = 'estudiante' AND activo = TRUE) AS students,
        (SELECT COUNT(*) FROM groups WHERE maestro_responsable = $1) AS my_groups,
        (SELECT COUNT(*) FROM groups WHERE maestro_responsable = $1 AND activo = TRUE) AS active_groups`

	var row struct {
		CreatedProjects int `db:"created_projects"`
		AssignedTasks   int `db:"assigned_tasks"`
		Students        int `db:"students"`
		MyGroups        int `db:"my_groups"`
		ActiveGroups    int `db:"active_groups"`
	}
	if err := r.db.GetContext(ctx, &row, query, matricula); err != nil {
		return nil, fmt.Errorf("teacher stats: %w", err)
	}
	return &models.TeacherStats{
		CreatedProjects: row.CreatedProjects,
		AssignedTasks:   row.AssignedTasks,
		Students:        row.Students,
		MyGroups:        row.MyGroups,
		ActiveGroups:    row.ActiveGroups,
	}, nil
}

// StudentStats returns the aggregates for one estudiante. Task counts cover
// both directly assigned tasks and tasks of the student's groups.
func (r *StatsRepository) StudentStats(ctx context.Context, matricula string) (*models.StudentStats, error) {
	const query = `WITH my_tasks AS (
            SELECT DISTINCT t.id, t.status
            FROM tasks t
            LEFT JOIN group_assignments ga ON ga.group_id = t.group_id
            WHERE t.user_id = $1 OR ga.user_id = $1
        )
        SELECT
        (SELECT COUNT(*) FROM projects WHERE status = 'active') AS active_projects,
        (SELECT COUNT(*) FROM my_tasks WHERE status = 'pending') AS pending_tasks,
        (SELECT COUNT(*) FROM my_tasks WHERE status = 'completed') AS completed_tasks,
        (SELECT COUNT(*) FROM group_assignments WHERE user_id = $1) AS my_groups,
        (SELECT COUNT(*) FROM group_assignments ga JOIN groups g ON g.id = ga.group_id
            WHERE ga.user_id = $1 AND g.tipo_grupo = 'servicio_social') AS service_groups`

	var row struct {
		ActiveProjects int `db:"active_projects"`
		PendingTasks   int `db:"pending_tasks"`
		CompletedTasks int `db:"completed_tasks"`
		MyGroups       int `db:"my_groups"`
		ServiceGroups  int `db:"service_groups"`
	}
	if err := r.db.GetContext(ctx, &row, query, matricula); err != nil {
		return nil, fmt.Errorf("student stats: %w", err)
	}
	return &models.StudentStats{
		ActiveProjects: row.ActiveProjects,
		PendingTasks:   row.PendingTasks,
		CompletedTasks: row.CompletedTasks,
		MyGroups:       row.MyGroups,
		ServiceGroups:  row.ServiceGroups,
	}, nil
}

// HoursTaskStats counts a student's hour-bearing tasks for the hours summary.
func (r *StatsRepository) HoursTaskStats(ctx context.Context, matricula string) (withHours, completed, pendingHours int, err error) {
	const query = `WITH my_tasks AS (
            SELECT DISTINCT t.id, t.status, t.has_hours, t.hours_assigned
            FROM tasks t
            LEFT JOIN group_assignments ga ON ga.group_id = t.group_id
            WHERE t.user_id = $1 OR ga.user_id = $1
        )
        SELECT
        (SELECT COUNT(*) FROM my_tasks WHERE has_hours) AS with_hours,
        (SELECT COUNT(*) FROM my_tasks WHERE has_hours AND status = 'completed') AS completed,
        (SELECT COALESCE(SUM(hours_assigned), 0) FROM my_tasks WHERE has_hours AND status <> 'completed') AS pending_hours`

	var row struct {
		WithHours    int `db:"with_hours"`
		Completed    int `db:"completed"`
		PendingHours int `db:"pending_hours"`
	}
	if err := r.db.GetContext(ctx, &row, query, matricula); err != nil {
		return 0, 0, 0, fmt.Errorf("hours task stats: %w", err)
	}
	return row.WithHours, row.Completed, row.PendingHours, nil
}
