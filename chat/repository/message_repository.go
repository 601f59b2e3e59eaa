package repository

import (
	"github.com/anargu/StockChatRoomWeb/chat/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageRepository interface {
	Create(message *models.ChatMessage) error
	GetRecent(roomID *uuid.UUID, limit int) ([]models.ChatMessage, error)
}

type GormChatMessageRepository struct {
	db *gorm.DB
}

func NewGormChatMessageRepository(db *gorm.DB) *GormChatMessageRepository {
	return &GormChatMessageRepository{db: db}
}

func (r *GormChatMessageRepository) Create(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

// GetRecent returns the newest messages for a room (nil means the global
// chatroom) in chronological order.
func (r *GormChatMessageRepository) GetRecent(roomID *uuid.UUID, limit int) ([]models.ChatMessage, error) {
	query := r.db.Order("created_at DESC").Limit(limit)
	if roomID == nil {
		query = query.Where("chat_room_id IS NULL")
	} else {
		query = query.Where("chat_room_id = ?", *roomID)
	}

	var messages []models.ChatMessage
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse into ascending order for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
