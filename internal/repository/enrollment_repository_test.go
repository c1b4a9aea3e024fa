package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestorescolar/tareas-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func capacityRows(maxStudents interface{}, current int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"max_students", "current_enrollments"}).AddRow(maxStudents, current)
}

func TestEnrollmentRepositoryEnroll(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT max_students, current_enrollments FROM tasks WHERE id = $1 FOR UPDATE")).
		WithArgs("task-1").
		WillReturnRows(capacityRows(2, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM task_enrollments WHERE task_id = $1 AND user_id = $2 LIMIT 1")).
		WithArgs("task-1", "est001").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO task_enrollments").
		WithArgs(sqlmock.AnyArg(), "task-1", "est001", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET current_enrollments = $2, is_available = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("task-1", 1, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Enroll(context.Background(), &models.TaskEnrollment{TaskID: "task-1", UserID: "est001"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollClosesAvailabilityAtCapacity(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT max_students, current_enrollments FROM tasks").
		WithArgs("task-1").
		WillReturnRows(capacityRows(1, 0))
	mock.ExpectQuery("SELECT 1 FROM task_enrollments").
		WithArgs("task-1", "est001").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO task_enrollments").
		WithArgs(sqlmock.AnyArg(), "task-1", "est001", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE tasks SET current_enrollments").
		WithArgs("task-1", 1, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Enroll(context.Background(), &models.TaskEnrollment{TaskID: "task-1", UserID: "est001"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT max_students, current_enrollments FROM tasks").
		WithArgs("task-1").
		WillReturnRows(capacityRows(nil, 1))
	mock.ExpectQuery("SELECT 1 FROM task_enrollments").
		WithArgs("task-1", "est001").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Enroll(context.Background(), &models.TaskEnrollment{TaskID: "task-1", UserID: "est001"})
	assert.ErrorIs(t, err, ErrDuplicateEnrollment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryEnrollCapacityFull(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT max_students, current_enrollments FROM tasks").
		WithArgs("task-1").
		WillReturnRows(capacityRows(1, 1))
	mock.ExpectQuery("SELECT 1 FROM task_enrollments").
		WithArgs("task-1", "est002").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Enroll(context.Background(), &models.TaskEnrollment{TaskID: "task-1", UserID: "est002"})
	assert.ErrorIs(t, err, ErrTaskCapacityFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUnenrollReopensAvailability(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT max_students, current_enrollments FROM tasks").
		WithArgs("task-1").
		WillReturnRows(capacityRows(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM task_enrollments WHERE task_id = $1 AND user_id = $2")).
		WithArgs("task-1", "est001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET current_enrollments").
		WithArgs("task-1", 0, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Unenroll(context.Background(), "task-1", "est001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUnenrollMissing(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT max_students, current_enrollments FROM tasks").
		WithArgs("task-1").
		WillReturnRows(capacityRows(nil, 0))
	mock.ExpectExec("DELETE FROM task_enrollments").
		WithArgs("task-1", "est001").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Unenroll(context.Background(), "task-1", "est001")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
