package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdministrador UserRole = "administrador"
	RoleMaestro       UserRole = "maestro"
	RoleEstudiante    UserRole = "estudiante"
)

// Valid reports whether the role is one of the three known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdministrador, RoleMaestro, RoleEstudiante:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
// The matricula is the primary key.
type User struct {
	Matricula        string    `db:"matricula" json:"matricula"`
	PasswordHash     string    `db:"password_hash" json:"-"`
	TipoUsuario      UserRole  `db:"tipo_usuario" json:"tipoUsuario"`
	Nombre           string    `db:"nombre" json:"nombre"`
	Apellidos        string    `db:"apellidos" json:"apellidos"`
	Email            string    `db:"email" json:"email"`
	Activo           bool      `db:"activo" json:"activo"`
	Carrera          *string   `db:"carrera" json:"carrera,omitempty"`
	Semestre         *int      `db:"semestre" json:"semestre,omitempty"`
	HorasCompletadas int       `db:"horas_completadas" json:"horasCompletadas"`
	HorasRequeridas  int       `db:"horas_requeridas" json:"horasRequeridas"`
	HorasAcumuladas  int       `db:"horas_acumuladas" json:"horasAcumuladas"`
	FechaRegistro    time.Time `db:"fecha_registro" json:"fechaRegistro"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	TipoUsuario *UserRole
	Activo      *bool
	Search      string
	Page        int
	PageSize    int
}

// CreateUserRequest payload for registering a user.
type CreateUserRequest struct {
	Matricula       string   `json:"matricula" validate:"required"`
	Password        string   `json:"password" validate:"required,min=6"`
	TipoUsuario     UserRole `json:"tipoUsuario" validate:"required,oneof=administrador maestro estudiante"`
	Nombre          string   `json:"nombre" validate:"required"`
	Apellidos       string   `json:"apellidos"`
	Email           string   `json:"email" validate:"required,email"`
	Carrera         *string  `json:"carrera"`
	Semestre        *int     `json:"semestre"`
	HorasRequeridas int      `json:"horasRequeridas"`
}

// UpdateUserRequest payload for editing a user.
type UpdateUserRequest struct {
	Nombre          string   `json:"nombre" validate:"required"`
	Email           string   `json:"email" validate:"required,email"`
	TipoUsuario     UserRole `json:"tipoUsuario" validate:"required,oneof=administrador maestro estudiante"`
	Activo          *bool    `json:"activo"`
	Carrera         *string  `json:"carrera"`
	Semestre        *int     `json:"semestre"`
	HorasRequeridas *int     `json:"horasRequeridas"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// HoursSummary aggregates a student's servicio social progress.
type HoursSummary struct {
	Matricula         string  `json:"matricula"`
	HorasCompletadas  int     `json:"horasCompletadas"`
	HorasRequeridas   int     `json:"horasRequeridas"`
	Porcentaje        float64 `json:"porcentaje"`
	TareasConHoras    int     `json:"tareasConHoras"`
	TareasCompletadas int     `json:"tareasCompletadas"`
	HorasPendientes   int     `json:"horasPendientes"`
}

// PasswordStrength scores a candidate password. Advisory only.
type PasswordStrength struct {
	Score   int      `json:"score"`
	Level   string   `json:"level"`
	Missing []string `json:"missing,omitempty"`
}
