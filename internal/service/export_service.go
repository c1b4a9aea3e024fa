package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
	"github.com/gestorescolar/tareas-api/pkg/export"
)

type exportUserSource interface {
	ListAll(ctx context.Context) ([]models.User, error)
	HoursReport(ctx context.Context) ([]models.HoursReportRow, error)
}

type exportTaskSource interface {
	ListAll(ctx context.Context) ([]models.Task, error)
}

type exportProjectSource interface {
	ListAll(ctx context.Context) ([]models.Project, error)
}

type exportNotificationSource interface {
	ListAll(ctx context.Context) ([]models.Notification, error)
}

type exportMessageSource interface {
	ListAll(ctx context.Context) ([]models.Message, error)
}

type exportGroupSource interface {
	ListAll(ctx context.Context) ([]models.Group, error)
}

type exportAssignmentSource interface {
	ListAll(ctx context.Context) ([]models.GroupAssignment, error)
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
}

// ExportService builds the full backup document and renders the hours
// report in CSV or PDF.
type ExportService struct {
	users         exportUserSource
	tasks         exportTaskSource
	projects      exportProjectSource
	notifications exportNotificationSource
	messages      exportMessageSource
	groups        exportGroupSource
	assignments   exportAssignmentSource
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	storage       reportStorage
	logger        *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(
	users exportUserSource,
	tasks exportTaskSource,
	projects exportProjectSource,
	notifications exportNotificationSource,
	messages exportMessageSource,
	groups exportGroupSource,
	assignments exportAssignmentSource,
	csv *export.CSVExporter,
	pdf *export.PDFExporter,
	storage reportStorage,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		users:         users,
		tasks:         tasks,
		projects:      projects,
		notifications: notifications,
		messages:      messages,
		groups:        groups,
		assignments:   assignments,
		csv:           csv,
		pdf:           pdf,
		storage:       storage,
		logger:        logger,
	}
}

// Document builds the full export payload. Every stored record appears
// field-for-field; the document is export-only.
func (s *ExportService) Document(ctx context.Context) (*models.ExportDocument, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export users")
	}
	tasks, err := s.tasks.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export tasks")
	}
	projects, err := s.projects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export projects")
	}
	notifications, err := s.notifications.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export notifications")
	}
	messages, err := s.messages.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export messages")
	}
	groups, err := s.groups.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export groups")
	}
	assignments, err := s.assignments.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export group assignments")
	}

	return &models.ExportDocument{
		Users:            users,
		Tasks:            tasks,
		Projects:         projects,
		Notifications:    notifications,
		Messages:         messages,
		Groups:           groups,
		GroupAssignments: assignments,
		ExportDate:       time.Now().UTC(),
	}, nil
}

// HoursReport renders the per-student hours report and stores it under the
// export directory, returning the rendered bytes and stored filename.
func (s *ExportService) HoursReport(ctx context.Context, format string) ([]byte, string, error) {
	rows, err := s.users.HoursReport(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hours report")
	}

	dataset := export.Dataset{
		Headers: []string{"Matrícula", "Nombre", "Carrera", "Horas Completadas", "Horas Requeridas", "Avance"},
	}
	for _, row := range rows {
		porcentaje := 0.0
		if row.HorasRequeridas > 0 {
			porcentaje = float64(row.HorasCompletadas) / float64(row.HorasRequeridas) * 100
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Matrícula":         row.Matricula,
			"Nombre":            row.Nombre,
			"Carrera":           row.Carrera,
			"Horas Completadas": strconv.Itoa(row.HorasCompletadas),
			"Horas Requeridas":  strconv.Itoa(row.HorasRequeridas),
			"Avance":            fmt.Sprintf("%.1f%%", porcentaje),
		})
	}

	var payload []byte
	var ext string
	switch format {
	case "pdf":
		payload, err = s.pdf.Render(dataset, "Reporte de Horas de Servicio Social")
		ext = "pdf"
	case "csv", "":
		payload, err = s.csv.Render(dataset)
		ext = "csv"
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "formato de reporte no soportado")
	}
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render hours report")
	}

	filename := fmt.Sprintf("horas_%s.%s", time.Now().UTC().Format("20060102_150405"), ext)
	if _, err := s.storage.Save(filename, payload); err != nil {
		s.logger.Warn("failed to persist hours report", zap.String("filename", filename), zap.Error(err))
	}

	return payload, filename, nil
}
