package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type mockTaskRepo struct {
	tasks map[string]*models.Task
	seq   int
}

func newMockTaskRepo() *mockTaskRepo {
	return &mockTaskRepo{tasks: map[string]*models.Task{}}
}

func (m *mockTaskRepo) FindByID(_ context.Context, id string) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (m *mockTaskRepo) List(_ context.Context, _ models.TaskFilter) ([]models.Task, error) {
	var out []models.Task
	for _, task := range m.tasks {
		out = append(out, *task)
	}
	return out, nil
}

func (m *mockTaskRepo) ListForStudent(_ context.Context, _ string) ([]models.Task, error) {
	return nil, nil
}

func (m *mockTaskRepo) Create(_ context.Context, task *models.Task) error {
	if task.ID == "" {
		m.seq++
		task.ID = "task-" + string(rune('0'+m.seq))
	}
	stored := *task
	m.tasks[task.ID] = &stored
	return nil
}

func (m *mockTaskRepo) Update(_ context.Context, task *models.Task) error {
	stored := *task
	m.tasks[task.ID] = &stored
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id string) error {
	delete(m.tasks, id)
	return nil
}

type mockNotifier struct {
	sent []*models.Notification
}

func (m *mockNotifier) Create(_ context.Context, notification *models.Notification) error {
	m.sent = append(m.sent, notification)
	return nil
}

type mockGroupLookup struct {
	groups map[string]*models.Group
}

func (m *mockGroupLookup) FindByID(_ context.Context, id string) (*models.Group, error) {
	group, ok := m.groups[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return group, nil
}

type mockMemberLookup struct {
	members map[string][]models.GroupMember
}

func (m *mockMemberLookup) Members(_ context.Context, groupID string) ([]models.GroupMember, error) {
	return m.members[groupID], nil
}

type mockUserAccounts struct {
	users   map[string]*models.User
	credits map[string]int
}

func newMockUserAccounts() *mockUserAccounts {
	return &mockUserAccounts{users: map[string]*models.User{}, credits: map[string]int{}}
}

func (m *mockUserAccounts) FindByMatricula(_ context.Context, matricula string) (*models.User, error) {
	user, ok := m.users[matricula]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserAccounts) CreditHours(_ context.Context, matricula string, hours int) (int, error) {
	m.credits[matricula] += hours
	if user, ok := m.users[matricula]; ok {
		user.HorasCompletadas += hours
		return user.HorasCompletadas, nil
	}
	return m.credits[matricula], nil
}

type mockEnrollmentLookup struct {
	byTask map[string][]models.TaskEnrollment
}

func (m *mockEnrollmentLookup) ListByTask(_ context.Context, taskID string) ([]models.TaskEnrollment, error) {
	return m.byTask[taskID], nil
}

type mockTaskFileRepo struct {
	files map[string]*models.TaskFile
}

func newMockTaskFileRepo() *mockTaskFileRepo {
	return &mockTaskFileRepo{files: map[string]*models.TaskFile{}}
}

func (m *mockTaskFileRepo) Create(_ context.Context, file *models.TaskFile) error {
	if file.ID == "" {
		file.ID = "file-1"
	}
	m.files[file.ID] = file
	return nil
}

func (m *mockTaskFileRepo) FindByID(_ context.Context, id string) (*models.TaskFile, error) {
	file, ok := m.files[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return file, nil
}

func (m *mockTaskFileRepo) ListByTask(_ context.Context, taskID string) ([]models.TaskFile, error) {
	var out []models.TaskFile
	for _, file := range m.files {
		if file.TaskID == taskID {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (m *mockTaskFileRepo) Delete(_ context.Context, id string) error {
	delete(m.files, id)
	return nil
}

func (m *mockTaskFileRepo) Submissions(_ context.Context, taskID string) ([]models.TaskSubmission, error) {
	var out []models.TaskSubmission
	for _, file := range m.files {
		if file.TaskID == taskID {
			out = append(out, models.TaskSubmission{UserID: file.UploadedBy, FileName: file.FileName})
		}
	}
	return out, nil
}

type mockFileStore struct {
	saved   map[string][]byte
	deleted []string
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{saved: map[string][]byte{}}
}

func (m *mockFileStore) Save(filename string, data []byte) (string, error) {
	m.saved[filename] = data
	return filename, nil
}

func (m *mockFileStore) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	return nil
}

type taskServiceFixture struct {
	svc         *TaskService
	tasks       *mockTaskRepo
	sent        *mockNotifier
	groups      *mockGroupLookup
	members     *mockMemberLookup
	users       *mockUserAccounts
	enrollments *mockEnrollmentLookup
	files       *mockTaskFileRepo
	store       *mockFileStore
}

func newTaskServiceFixture() *taskServiceFixture {
	f := &taskServiceFixture{
		tasks:       newMockTaskRepo(),
		sent:        &mockNotifier{},
		groups:      &mockGroupLookup{groups: map[string]*models.Group{}},
		members:     &mockMemberLookup{members: map[string][]models.GroupMember{}},
		users:       newMockUserAccounts(),
		enrollments: &mockEnrollmentLookup{byTask: map[string][]models.TaskEnrollment{}},
		files:       newMockTaskFileRepo(),
		store:       newMockFileStore(),
	}
	f.svc = NewTaskService(f.tasks, f.sent, f.groups, f.members, f.users, f.enrollments, f.files, f.store, nil, nil)
	return f
}

func (f *taskServiceFixture) addUser(matricula string, role models.UserRole, required int) {
	f.users.users[matricula] = &models.User{
		Matricula:       matricula,
		TipoUsuario:     role,
		Activo:          true,
		HorasRequeridas: required,
	}
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func TestTaskServiceCreateRequiresSingleAssignee(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est001", models.RoleEstudiante, 480)

	req := models.CreateTaskRequest{
		Title:   "Tarea",
		DueDate: time.Now().Add(24 * time.Hour),
		UserID:  strPtr("est001"),
		GroupID: strPtr("grupo-1"),
	}
	_, err := f.svc.Create(context.Background(), "maestro001", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.UserID = nil
	req.GroupID = nil
	_, err = f.svc.Create(context.Background(), "maestro001", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTaskServiceCreateRejectsHoursTaskWithoutHours(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est001", models.RoleEstudiante, 480)

	_, err := f.svc.Create(context.Background(), "maestro001", models.CreateTaskRequest{
		Title:    "Tarea",
		DueDate:  time.Now().Add(24 * time.Hour),
		UserID:   strPtr("est001"),
		HasHours: true,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTaskServiceCreateNotifiesAssignee(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est001", models.RoleEstudiante, 480)

	task, err := f.svc.Create(context.Background(), "maestro001", models.CreateTaskRequest{
		Title:         "Proyecto de matemáticas",
		DueDate:       time.Now().Add(24 * time.Hour),
		UserID:        strPtr("est001"),
		HasHours:      true,
		HoursAssigned: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.True(t, task.IsAvailable)

	require.Len(t, f.sent.sent, 1)
	assert.Equal(t, "est001", f.sent.sent[0].UserID)
	assert.Equal(t, models.NotificationTask, f.sent.sent[0].Type)
	assert.Contains(t, f.sent.sent[0].Message, "8 horas")
}

func TestTaskServiceCreateSkipsSelfNotification(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("maestro001", models.RoleMaestro, 480)

	_, err := f.svc.Create(context.Background(), "maestro001", models.CreateTaskRequest{
		Title:   "Revisar entregas",
		DueDate: time.Now().Add(24 * time.Hour),
		UserID:  strPtr("maestro001"),
	})
	require.NoError(t, err)
	assert.Empty(t, f.sent.sent)
}

func TestTaskServiceCreateGroupFansOutToMembers(t *testing.T) {
	f := newTaskServiceFixture()
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", TipoGrupo: models.GroupServicioSocial}
	f.members.members["grupo-1"] = []models.GroupMember{
		{Matricula: "est001"},
		{Matricula: "est002"},
	}

	_, err := f.svc.Create(context.Background(), "maestro001", models.CreateTaskRequest{
		Title:   "Tarea grupal",
		DueDate: time.Now().Add(24 * time.Hour),
		GroupID: strPtr("grupo-1"),
	})
	require.NoError(t, err)
	require.Len(t, f.sent.sent, 2)
}

func TestTaskServiceCompleteCreditsHoursOnce(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est001", models.RoleEstudiante, 480)
	f.users.users["est001"].HorasCompletadas = 45

	task := &models.Task{
		ID:            "task-1",
		Title:         "Proyecto",
		UserID:        strPtr("est001"),
		Status:        models.TaskPending,
		HasHours:      true,
		HoursAssigned: 8,
		CreatedBy:     "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, f.users.credits["est001"])
	assert.Equal(t, 53, f.users.users["est001"].HorasCompletadas)

	// Completing an already completed task never credits again.
	_, err = f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, f.users.credits["est001"])

	// Nor does bouncing through another state and back.
	_, err = f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskInProgress),
	})
	require.NoError(t, err)
	_, err = f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 16, f.users.credits["est001"])
}

func TestTaskServiceCompleteSendsHoursNotification(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est001", models.RoleEstudiante, 480)
	f.users.users["est001"].HorasCompletadas = 45

	task := &models.Task{
		ID:            "task-1",
		Title:         "Proyecto",
		UserID:        strPtr("est001"),
		Status:        models.TaskPending,
		HasHours:      true,
		HoursAssigned: 8,
		CreatedBy:     "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskCompleted),
	})
	require.NoError(t, err)

	var hoursMsg string
	for _, n := range f.sent.sent {
		if n.Type == models.NotificationHoursUpdate {
			hoursMsg = n.Message
		}
	}
	assert.Equal(t, "Se han acreditado 8 horas. Total: 53/480 horas", hoursMsg)
}

func TestTaskServiceCompleteSkipsCreditForCourseGroup(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est001", models.RoleEstudiante, 480)
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", TipoGrupo: models.GroupTallerCurso}

	task := &models.Task{
		ID:            "task-1",
		Title:         "Taller",
		GroupID:       strPtr("grupo-1"),
		Status:        models.TaskPending,
		HasHours:      true,
		HoursAssigned: 4,
		CreatedBy:     "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskCompleted),
	})
	require.NoError(t, err)
	assert.Zero(t, f.users.credits["est001"])
}

func TestTaskServiceStatusChangeNotifiesOwner(t *testing.T) {
	f := newTaskServiceFixture()

	task := &models.Task{
		ID:        "task-1",
		Title:     "Proyecto",
		UserID:    strPtr("est001"),
		Status:    models.TaskPending,
		CreatedBy: "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "maestro001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskInProgress),
	})
	require.NoError(t, err)
	require.Len(t, f.sent.sent, 1)
	assert.Equal(t, "est001", f.sent.sent[0].UserID)
	assert.Equal(t, models.NotificationTaskUpdate, f.sent.sent[0].Type)
}

func TestTaskServiceStatusChangeByOwnerStaysSilent(t *testing.T) {
	f := newTaskServiceFixture()

	task := &models.Task{
		ID:        "task-1",
		Title:     "Proyecto",
		UserID:    strPtr("est001"),
		Status:    models.TaskPending,
		CreatedBy: "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskInProgress),
	})
	require.NoError(t, err)
	assert.Empty(t, f.sent.sent)
}

func TestTaskServiceGroupStatusChangeNotifiesCreator(t *testing.T) {
	f := newTaskServiceFixture()
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", TipoGrupo: models.GroupTallerCurso}

	task := &models.Task{
		ID:        "task-1",
		Title:     "Tarea grupal",
		GroupID:   strPtr("grupo-1"),
		Status:    models.TaskPending,
		CreatedBy: "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskInProgress),
	})
	require.NoError(t, err)
	require.Len(t, f.sent.sent, 1)
	assert.Equal(t, "maestro001", f.sent.sent[0].UserID)
	assert.Equal(t, models.NotificationTaskUpdate, f.sent.sent[0].Type)
}

func TestTaskServiceCompleteGroupTaskCreditsEnrolledActor(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est001", models.RoleEstudiante, 480)
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", TipoGrupo: models.GroupServicioSocial}
	f.enrollments.byTask["task-1"] = []models.TaskEnrollment{{TaskID: "task-1", UserID: "est001"}}

	task := &models.Task{
		ID:            "task-1",
		Title:         "Jornada de limpieza",
		GroupID:       strPtr("grupo-1"),
		Status:        models.TaskPending,
		HasHours:      true,
		HoursAssigned: 5,
		CreatedBy:     "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "est001", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, f.users.credits["est001"])

	var hours *models.Notification
	for _, n := range f.sent.sent {
		if n.Type == models.NotificationHoursUpdate {
			hours = n
		}
	}
	require.NotNil(t, hours)
	assert.Equal(t, "est001", hours.UserID)
	assert.Equal(t, "Horas de servicio social acreditadas", hours.Title)
	assert.Equal(t, "Se han acreditado 5 horas. Total: 5/480 horas", hours.Message)
}

func TestTaskServiceCompleteGroupTaskCreditsMemberWithoutEnrollment(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est002", models.RoleEstudiante, 480)
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", TipoGrupo: models.GroupServicioSocial}
	f.members.members["grupo-1"] = []models.GroupMember{{Matricula: "est002"}}

	task := &models.Task{
		ID:            "task-1",
		Title:         "Colecta",
		GroupID:       strPtr("grupo-1"),
		Status:        models.TaskPending,
		HasHours:      true,
		HoursAssigned: 3,
		CreatedBy:     "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "est002", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, f.users.credits["est002"])
}

func TestTaskServiceCompleteGroupTaskSkipsNonParticipant(t *testing.T) {
	f := newTaskServiceFixture()
	f.addUser("est009", models.RoleEstudiante, 480)
	f.groups.groups["grupo-1"] = &models.Group{ID: "grupo-1", TipoGrupo: models.GroupServicioSocial}
	f.members.members["grupo-1"] = []models.GroupMember{{Matricula: "est001"}}

	task := &models.Task{
		ID:            "task-1",
		Title:         "Jornada de limpieza",
		GroupID:       strPtr("grupo-1"),
		Status:        models.TaskPending,
		HasHours:      true,
		HoursAssigned: 5,
		CreatedBy:     "maestro001",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.svc.Update(context.Background(), "task-1", "est009", models.UpdateTaskRequest{
		Status: statusPtr(models.TaskCompleted),
	})
	require.NoError(t, err)
	assert.Zero(t, f.users.credits["est009"])
}

func TestTaskServiceAttachFileCleansUpOnRecordFailure(t *testing.T) {
	f := newTaskServiceFixture()

	task := &models.Task{ID: "task-1", Title: "Proyecto", UserID: strPtr("est001"), Status: models.TaskPending, CreatedBy: "maestro001"}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	file, err := f.svc.AttachFile(context.Background(), "task-1", "est001", "reporte.pdf", "application/pdf", []byte("contenido"))
	require.NoError(t, err)
	assert.Equal(t, "tasks/task-1/est001_reporte.pdf", file.Path)
	assert.Contains(t, f.store.saved, "tasks/task-1/est001_reporte.pdf")
	assert.Equal(t, int64(len("contenido")), file.SizeBytes)
}

func TestTaskServiceSubmissionStatsForGroup(t *testing.T) {
	f := newTaskServiceFixture()
	f.members.members["grupo-1"] = []models.GroupMember{
		{Matricula: "est001"},
		{Matricula: "est002"},
		{Matricula: "est003"},
		{Matricula: "est004"},
	}

	task := &models.Task{ID: "task-1", Title: "Tarea grupal", GroupID: strPtr("grupo-1"), Status: models.TaskPending, CreatedBy: "maestro001"}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	require.NoError(t, f.files.Create(context.Background(), &models.TaskFile{ID: "file-1", TaskID: "task-1", UploadedBy: "est001", FileName: "a.pdf"}))

	stats, err := f.svc.SubmissionStats(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalExpected)
	assert.Equal(t, 1, stats.Submitted)
	assert.InDelta(t, 25.0, stats.Porcentaje, 0.001)
}

func TestTaskServiceGetNotFound(t *testing.T) {
	f := newTaskServiceFixture()

	_, err := f.svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
