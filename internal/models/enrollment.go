package models

import "time"

// TaskEnrollment records a student's self-enrollment in an open task.
// The (taskId, userId) pair is unique.
type TaskEnrollment struct {
	ID         string    `db:"id" json:"id"`
	TaskID     string    `db:"task_id" json:"taskId"`
	UserID     string    `db:"user_id" json:"userId"`
	FileID     *string   `db:"file_id" json:"fileId,omitempty"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolledAt"`
}

// EnrollRequest payload for joining a task. FileID optionally points at a
// previously uploaded task file submitted together with the enrollment.
type EnrollRequest struct {
	FileID *string `json:"fileId"`
}
