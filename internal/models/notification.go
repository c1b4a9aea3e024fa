package models

import "time"

// Notification types.
const (
	NotificationTask        = "task"
	NotificationTaskUpdate  = "task_update"
	NotificationHoursUpdate = "hours_update"
	NotificationReminder    = "reminder"
)

// Notification is an in-app message delivered to one user.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CreateNotificationRequest payload for pushing a notification.
type CreateNotificationRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Message string `json:"message" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=task task_update hours_update reminder"`
}
