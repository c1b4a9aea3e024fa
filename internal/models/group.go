package models

import "time"

// GroupType distinguishes servicio social groups from course workshops.
// Only servicio_social groups credit hours on task completion.
type GroupType string

const (
	GroupServicioSocial GroupType = "servicio_social"
	GroupTallerCurso    GroupType = "taller_curso"
)

// Valid reports whether the group type is known.
func (t GroupType) Valid() bool {
	return t == GroupServicioSocial || t == GroupTallerCurso
}

// Group represents a servicio social or workshop group.
type Group struct {
	ID                 string    `db:"id" json:"id"`
	Nombre             string    `db:"nombre" json:"nombre"`
	Descripcion        string    `db:"descripcion" json:"descripcion"`
	TipoGrupo          GroupType `db:"tipo_grupo" json:"tipoGrupo"`
	MaestroResponsable string    `db:"maestro_responsable" json:"maestroResponsable"`
	Activo             bool      `db:"activo" json:"activo"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// GroupDetail is a group plus its member projection. The member list is
// derived from group_assignments at read time, never stored on the group.
type GroupDetail struct {
	Group
	AlumnosAsignados []GroupMember `json:"alumnosAsignados"`
}

// GroupMember is one row of the member projection.
type GroupMember struct {
	Matricula  string    `db:"matricula" json:"matricula"`
	Nombre     string    `db:"nombre" json:"nombre"`
	Email      string    `db:"email" json:"email"`
	AssignedBy string    `db:"assigned_by" json:"assignedBy"`
	AssignedAt time.Time `db:"assigned_at" json:"assignedAt"`
}

// CreateGroupRequest payload for registering a group.
type CreateGroupRequest struct {
	Nombre             string    `json:"nombre" validate:"required"`
	Descripcion        string    `json:"descripcion"`
	TipoGrupo          GroupType `json:"tipoGrupo" validate:"required,oneof=servicio_social taller_curso"`
	MaestroResponsable string    `json:"maestroResponsable" validate:"required"`
}

// UpdateGroupRequest payload for editing a group.
type UpdateGroupRequest struct {
	Nombre             string    `json:"nombre" validate:"required"`
	Descripcion        string    `json:"descripcion"`
	TipoGrupo          GroupType `json:"tipoGrupo" validate:"required,oneof=servicio_social taller_curso"`
	MaestroResponsable string    `json:"maestroResponsable" validate:"required"`
	Activo             *bool     `json:"activo"`
}
