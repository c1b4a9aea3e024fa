package models

import "time"

// GroupAssignment links a user to a group. The (groupId, userId) pair is
// unique; the assignment table is the single source of truth for membership.
type GroupAssignment struct {
	ID         string    `db:"id" json:"id"`
	GroupID    string    `db:"group_id" json:"groupId"`
	UserID     string    `db:"user_id" json:"userId"`
	AssignedBy string    `db:"assigned_by" json:"assignedBy"`
	AssignedAt time.Time `db:"assigned_at" json:"assignedAt"`
}

// AssignUserRequest payload for adding a member to a group.
type AssignUserRequest struct {
	UserID string `json:"userId" validate:"required"`
}
