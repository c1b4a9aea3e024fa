package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestorescolar/tareas-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"matricula", "password_hash", "tipo_usuario", "nombre", "apellidos", "email", "activo", "carrera", "semestre", "horas_completadas", "horas_requeridas", "horas_acumuladas", "fecha_registro", "updated_at"}).
		AddRow("est001", "hash", "estudiante", "María Elena", "Rodríguez Martínez", "mrodriguez@estudiante.edu", true, "Ingeniería", 6, 45, 480, 45, now, now)
}

func TestUserRepositoryFindByMatricula(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE matricula = \\$1 LIMIT 1").
		WithArgs("est001").
		WillReturnRows(userRows())

	user, err := repo.FindByMatricula(context.Background(), "est001")
	require.NoError(t, err)
	assert.Equal(t, "est001", user.Matricula)
	assert.Equal(t, models.RoleEstudiante, user.TipoUsuario)
	assert.Equal(t, 45, user.HorasCompletadas)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByMatriculaNotFound(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE matricula = \\$1 LIMIT 1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByMatricula(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreditHours(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("UPDATE users").
		WithArgs("est001", 5, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"horas_completadas"}).AddRow(50))

	total, err := repo.CreditHours(context.Background(), "est001", 5)
	require.NoError(t, err)
	assert.Equal(t, 50, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDeleteIsSoft(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET activo = FALSE, updated_at = $2 WHERE matricula = $1")).
		WithArgs("est001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "est001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryPurgeCascades(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM task_enrollments WHERE user_id").WithArgs("est001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM group_assignments WHERE user_id").WithArgs("est001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM notifications WHERE user_id").WithArgs("est001").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM task_files WHERE uploaded_by").WithArgs("est001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET user_id = NULL").WithArgs("est001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM users WHERE matricula").WithArgs("est001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Purge(context.Background(), "est001"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("est002", "hash", "estudiante", "Ana", "López Díaz", "ana@estudiante.edu", true, nil, nil, 0, 480, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Matricula:       "est002",
		PasswordHash:    "hash",
		TipoUsuario:     models.RoleEstudiante,
		Nombre:          "Ana",
		Apellidos:       "López Díaz",
		Email:           "ana@estudiante.edu",
		Activo:          true,
		HorasRequeridas: 480,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}
