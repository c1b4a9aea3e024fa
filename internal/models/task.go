package models

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether the status is known.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// TaskPriority orders tasks in listings.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Task represents an assignment. Exactly one of UserID/GroupID is set:
// individual tasks carry the assignee matricula, group tasks the group id.
type Task struct {
	ID                 string       `db:"id" json:"id"`
	Title              string       `db:"title" json:"title"`
	Description        string       `db:"description" json:"description"`
	UserID             *string      `db:"user_id" json:"userId,omitempty"`
	GroupID            *string      `db:"group_id" json:"groupId,omitempty"`
	Status             TaskStatus   `db:"status" json:"status"`
	Priority           TaskPriority `db:"priority" json:"priority"`
	DueDate            time.Time    `db:"due_date" json:"dueDate"`
	HasHours           bool         `db:"has_hours" json:"hasHours"`
	HoursAssigned      int          `db:"hours_assigned" json:"hoursAssigned"`
	MaxStudents        *int         `db:"max_students" json:"maxStudents,omitempty"`
	CurrentEnrollments int          `db:"current_enrollments" json:"currentEnrollments"`
	IsAvailable        bool         `db:"is_available" json:"isAvailable"`
	CreatedBy          string       `db:"created_by" json:"createdBy"`
	CreatedAt          time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updatedAt"`
}

// CreateTaskRequest payload for registering a task.
type CreateTaskRequest struct {
	Title         string       `json:"title" validate:"required"`
	Description   string       `json:"description"`
	UserID        *string      `json:"userId"`
	GroupID       *string      `json:"groupId"`
	Priority      TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate       time.Time    `json:"dueDate" validate:"required"`
	HasHours      bool         `json:"hasHours"`
	HoursAssigned int          `json:"hoursAssigned"`
	MaxStudents   *int         `json:"maxStudents"`
}

// UpdateTaskRequest payload for editing a task. Nil fields are untouched.
type UpdateTaskRequest struct {
	Title         *string       `json:"title"`
	Description   *string       `json:"description"`
	Status        *TaskStatus   `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority      *TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate       *time.Time    `json:"dueDate"`
	HoursAssigned *int          `json:"hoursAssigned"`
}

// TaskFilter captures listing criteria.
type TaskFilter struct {
	UserID  *string
	GroupID *string
	Status  *TaskStatus
}

// SubmissionStats summarises file submissions for one task.
type SubmissionStats struct {
	TaskID        string           `json:"taskId"`
	TotalExpected int              `json:"totalExpected"`
	Submitted     int              `json:"submitted"`
	Porcentaje    float64          `json:"porcentaje"`
	Submissions   []TaskSubmission `json:"submissions"`
}

// TaskSubmission is one uploader entry in the submission stats.
type TaskSubmission struct {
	UserID     string    `db:"uploaded_by" json:"userId"`
	FileName   string    `db:"file_name" json:"fileName"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploadedAt"`
}
