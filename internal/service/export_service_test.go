package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
	"github.com/gestorescolar/tareas-api/pkg/export"
)

type stubExportSources struct {
	users         []models.User
	rows          []models.HoursReportRow
	tasks         []models.Task
	projects      []models.Project
	notifications []models.Notification
	messages      []models.Message
	groups        []models.Group
	assignments   []models.GroupAssignment
}

func (s *stubExportSources) ListAll(_ context.Context) ([]models.User, error) {
	return s.users, nil
}

func (s *stubExportSources) HoursReport(_ context.Context) ([]models.HoursReportRow, error) {
	return s.rows, nil
}

type stubTaskSource struct{ tasks []models.Task }

func (s *stubTaskSource) ListAll(_ context.Context) ([]models.Task, error) { return s.tasks, nil }

type stubProjectSource struct{ projects []models.Project }

func (s *stubProjectSource) ListAll(_ context.Context) ([]models.Project, error) {
	return s.projects, nil
}

type stubNotificationSource struct{ notifications []models.Notification }

func (s *stubNotificationSource) ListAll(_ context.Context) ([]models.Notification, error) {
	return s.notifications, nil
}

type stubMessageSource struct{ messages []models.Message }

func (s *stubMessageSource) ListAll(_ context.Context) ([]models.Message, error) {
	return s.messages, nil
}

type stubGroupSource struct{ groups []models.Group }

func (s *stubGroupSource) ListAll(_ context.Context) ([]models.Group, error) { return s.groups, nil }

type stubAssignmentSource struct{ assignments []models.GroupAssignment }

func (s *stubAssignmentSource) ListAll(_ context.Context) ([]models.GroupAssignment, error) {
	return s.assignments, nil
}

type stubReportStorage struct {
	saved map[string][]byte
}

func (s *stubReportStorage) Save(filename string, data []byte) (string, error) {
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[filename] = data
	return filename, nil
}

func newExportServiceForTest(src *stubExportSources) (*ExportService, *stubReportStorage) {
	storage := &stubReportStorage{}
	svc := NewExportService(
		src,
		&stubTaskSource{tasks: src.tasks},
		&stubProjectSource{projects: src.projects},
		&stubNotificationSource{notifications: src.notifications},
		&stubMessageSource{messages: src.messages},
		&stubGroupSource{groups: src.groups},
		&stubAssignmentSource{assignments: src.assignments},
		export.NewCSVExporter(),
		export.NewPDFExporter(),
		storage,
		nil,
	)
	return svc, storage
}

func TestExportServiceDocumentIncludesEveryCollection(t *testing.T) {
	src := &stubExportSources{
		users:         []models.User{{Matricula: "est001"}},
		tasks:         []models.Task{{ID: "task-1"}},
		projects:      []models.Project{{ID: "proj-1"}},
		notifications: []models.Notification{{ID: "notif-1"}},
		messages:      []models.Message{{ID: "msg-1"}},
		groups:        []models.Group{{ID: "grupo-1"}},
		assignments:   []models.GroupAssignment{{ID: "asig-1"}},
	}
	svc, _ := newExportServiceForTest(src)

	doc, err := svc.Document(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.Users, 1)
	assert.Len(t, doc.Tasks, 1)
	assert.Len(t, doc.Projects, 1)
	assert.Len(t, doc.Notifications, 1)
	assert.Len(t, doc.Messages, 1)
	assert.Len(t, doc.Groups, 1)
	assert.Len(t, doc.GroupAssignments, 1)
	assert.False(t, doc.ExportDate.IsZero())
}

func TestExportServiceHoursReportCSV(t *testing.T) {
	src := &stubExportSources{
		rows: []models.HoursReportRow{
			{Matricula: "est001", Nombre: "María Elena", Carrera: "Sistemas", HorasCompletadas: 120, HorasRequeridas: 480},
		},
	}
	svc, storage := newExportServiceForTest(src)

	payload, filename, err := svc.HoursReport(context.Background(), "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "horas_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	content := string(payload)
	assert.Contains(t, content, "est001")
	assert.Contains(t, content, "25.0%")
	assert.Contains(t, storage.saved, filename)
}

func TestExportServiceHoursReportPDF(t *testing.T) {
	src := &stubExportSources{
		rows: []models.HoursReportRow{
			{Matricula: "est001", Nombre: "María Elena", HorasRequeridas: 480},
		},
	}
	svc, _ := newExportServiceForTest(src)

	payload, filename, err := svc.HoursReport(context.Background(), "pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.True(t, strings.HasSuffix(filename, ".pdf"))
}

func TestExportServiceHoursReportUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(&stubExportSources{})

	_, _, err := svc.HoursReport(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
