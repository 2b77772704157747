package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kiroku/backend/internal/models"
	"github.com/kiroku/backend/pkg/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	maxMessageLength   = 1000
	defaultMessagePage = 50
	maxMessagePage     = 100
)

// ChatService is an append-only message log per group. Messages are
// pulled by polling clients; there is no push delivery.
type ChatService struct {
	DB     *gorm.DB
	Groups *GroupService
}

func NewChatService(db *gorm.DB, groups *GroupService) *ChatService {
	return &ChatService{DB: db, Groups: groups}
}

func (s *ChatService) Send(ctx context.Context, userID, groupID uuid.UUID, content string) (*models.GroupMessage, error) {
	if _, err := s.Groups.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("message content is required")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperr.Validationf("message content must be at most %d characters", maxMessageLength)
	}

	message := models.GroupMessage{
		GroupID: groupID,
		UserID:  userID,
		Content: content,
	}
	if err := s.DB.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}

	var sender models.User
	if err := s.DB.WithContext(ctx).First(&sender, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	message.User = sender
	return &message, nil
}

// List returns up to limit messages older than before (or the most recent
// page when before is nil), oldest-first so clients can append-render.
func (s *ChatService) List(ctx context.Context, userID, groupID uuid.UUID, limit int, before *time.Time) ([]models.GroupMessage, error) {
	if _, err := s.Groups.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultMessagePage
	}
	if limit > maxMessagePage {
		limit = maxMessagePage
	}

	query := s.DB.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var messages []models.GroupMessage
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Delete removes a message only when the caller authored it. Zero rows
// matched is reported the same way whether the message belongs to someone
// else or never existed.
func (s *ChatService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	result := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", messageID, userID).
		Delete(&models.GroupMessage{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.Validation("message not found")
	}
	return nil
}
