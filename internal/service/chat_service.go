package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gestorescolar/tareas-api/internal/models"
	appErrors "github.com/gestorescolar/tareas-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	List(ctx context.Context, limit int) ([]models.Message, error)
}

// ChatService provides the global chat feed.
type ChatService struct {
	repo      messageRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService constructs a ChatService instance.
func NewChatService(repo messageRepository, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChatService{repo: repo, validator: validate, logger: logger}
}

// Post appends a message to the feed on behalf of the authenticated user.
func (s *ChatService) Post(ctx context.Context, userID, userName string, req models.PostMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	message := &models.Message{
		UserID:   userID,
		UserName: userName,
		Content:  req.Content,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to post message")
	}
	return message, nil
}

// List returns the feed sorted oldest first.
func (s *ChatService) List(ctx context.Context, limit int) ([]models.Message, error) {
	messages, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, nil
}
