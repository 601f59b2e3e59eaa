package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageType distinguishes who produced a chat message.
type MessageType int

const (
	MessageTypeNormal        MessageType = 0
	MessageTypeStockCommand  MessageType = 1
	MessageTypeStockResponse MessageType = 2
)

// User is a registered chat participant. The stock bot is a regular user
// row flagged with IsBot.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	IsBot        bool      `json:"is_bot" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ChatRoom is a named room. Messages with a nil room ID belong to the
// global chatroom instead.
type ChatRoom struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedByID uuid.UUID `json:"created_by_id" gorm:"type:uuid"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ChatMessage is a persisted chat message. Username is denormalized so
// history can render without joining users.
type ChatMessage struct {
	ID         uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	ChatRoomID *uuid.UUID  `json:"chat_room_id" gorm:"type:uuid;index"`
	UserID     uuid.UUID   `json:"user_id" gorm:"type:uuid;index"`
	Username   string      `json:"username" gorm:"not null"`
	Content    string      `json:"content" gorm:"not null"`
	Type       MessageType `json:"type" gorm:"default:0"`
	CreatedAt  time.Time   `json:"created_at" gorm:"index"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
