package models

import "time"

// ExportDocument is the full backup payload. Field names match the stored
// collections so a restore tool can consume the file directly.
type ExportDocument struct {
	Users            []User            `json:"users"`
	Tasks            []Task            `json:"tasks"`
	Projects         []Project         `json:"projects"`
	Notifications    []Notification    `json:"notifications"`
	Messages         []Message         `json:"messages"`
	Groups           []Group           `json:"groups"`
	GroupAssignments []GroupAssignment `json:"groupAssignments"`
	ExportDate       time.Time         `json:"exportDate"`
}

// HoursReportRow is one line of the per-student hours report.
type HoursReportRow struct {
	Matricula        string `db:"matricula"`
	Nombre           string `db:"nombre"`
	Carrera          string `db:"carrera"`
	HorasCompletadas int    `db:"horas_completadas"`
	HorasRequeridas  int    `db:"horas_requeridas"`
}
