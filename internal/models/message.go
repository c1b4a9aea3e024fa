package models

import "time"

// Message is one entry in the global chat feed.
type Message struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	UserName  string    `db:"user_name" json:"userName"`
	Content   string    `db:"content" json:"content"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// PostMessageRequest payload for the chat feed.
type PostMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}
