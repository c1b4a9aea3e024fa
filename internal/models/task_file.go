package models

import "time"

// TaskFile is a stored attachment for a task, keyed by task with an
// uploader index.
type TaskFile struct {
	ID         string    `db:"id" json:"id"`
	TaskID     string    `db:"task_id" json:"taskId"`
	UploadedBy string    `db:"uploaded_by" json:"uploadedBy"`
	FileName   string    `db:"file_name" json:"fileName"`
	MIMEType   string    `db:"mime_type" json:"mimeType"`
	SizeBytes  int64     `db:"size_bytes" json:"sizeBytes"`
	Path       string    `db:"path" json:"-"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploadedAt"`
}
