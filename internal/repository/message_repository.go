package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gestorescolar/tareas-api/internal/models"
)

// MessageRepository handles persistence of the global chat feed.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a new chat message.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, user_id, user_name, content, timestamp)
        VALUES (:id, :user_id, :user_name, :content, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// List returns the feed sorted oldest first.
func (r *MessageRepository) List(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, user_id, user_name, content, timestamp FROM (
            SELECT id, user_id, user_name, content, timestamp FROM messages ORDER BY timestamp DESC LIMIT %d
        ) latest ORDER BY timestamp ASC`, limit)
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// ListAll returns every message for the export document.
func (r *MessageRepository) ListAll(ctx context.Context) ([]models.Message, error) {
	const query = `SELECT id, user_id, user_name, content, timestamp FROM messages ORDER BY timestamp`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query); err != nil {
		return nil, fmt.Errorf("list all messages: %w", err)
	}
	return messages, nil
}
