package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomchat/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// SaveMessage inserts msg and returns its generated id.
func (r *MessageRepository) SaveMessage(ctx context.Context, msg *models.Message) (string, error) {
	if err := r.db.WithContext(ctx).Omit("Sender", "ReadBy").Create(msg).Error; err != nil {
		return "", fmt.Errorf("failed to save message: %w", err)
	}
	return msg.ID, nil
}

// LoadRecent returns up to limit room messages, oldest first.
func (r *MessageRepository) LoadRecent(ctx context.Context, room string, limit int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("ReadBy", func(db *gorm.DB) *gorm.DB { return db.Order("read_at") }).
		Where("room = ? AND is_private = ?", room, false).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages for room %s: %w", room, err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepository) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).Preload("Sender").Preload("ReadBy").First(&msg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return &msg, nil
}

// AppendReadBy records a read receipt. A second receipt for the same
// (message, user) pair is ignored.
func (r *MessageRepository) AppendReadBy(ctx context.Context, messageID, userID string, at time.Time) error {
	receipt := &models.ReadReceipt{
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    at,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(receipt).Error
	if err != nil {
		return fmt.Errorf("failed to append read receipt: %w", err)
	}
	return nil
}

// FindPrivateMessages returns the conversation between two users, oldest first.
func (r *MessageRepository) FindPrivateMessages(ctx context.Context, userID, otherID string, limit int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("is_private = ? AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))",
			true, userID, otherID, otherID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load private messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
