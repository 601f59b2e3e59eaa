package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anargu/StockChatRoomWeb/broker"
	"github.com/anargu/StockChatRoomWeb/chat/models"
	"github.com/anargu/StockChatRoomWeb/chat/repository"
	apperrors "github.com/anargu/StockChatRoomWeb/pkg/errors"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/stock"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxContentLength caps message bodies in bytes.
const maxContentLength = 1000

// ChatService handles message posting and room management. Stock
// commands are detected here: they are echoed to the room for display
// and queued for the bot worker, never persisted as chat history.
type ChatService struct {
	messages    repository.ChatMessageRepository
	rooms       repository.ChatRoomRepository
	users       repository.UserRepository
	broker      broker.MessageBroker
	hub         Broadcaster
	audience    Audience
	maxMessages int
	log         *logger.Logger
}

func NewChatService(
	messages repository.ChatMessageRepository,
	rooms repository.ChatRoomRepository,
	users repository.UserRepository,
	b broker.MessageBroker,
	hub Broadcaster,
	audience Audience,
	maxMessages int,
	log *logger.Logger,
) *ChatService {
	return &ChatService{
		messages:    messages,
		rooms:       rooms,
		users:       users,
		broker:      b,
		hub:         hub,
		audience:    audience,
		maxMessages: maxMessages,
		log:         log.WithComponent("chat_service"),
	}
}

// PostMessage processes one message from a user. Regular messages are
// persisted and broadcast; stock commands take the queue path instead.
// The returned message is ephemeral for commands.
func (s *ChatService) PostMessage(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewBadRequestError("EMPTY_MESSAGE", "Message content is required")
	}
	if len(content) > maxContentLength {
		return nil, apperrors.NewBadRequestError("MESSAGE_TOO_LONG", "Message content exceeds the maximum length")
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("USER_NOT_FOUND", "User not found")
		}
		return nil, err
	}

	if roomID != nil {
		if _, err := s.rooms.GetByID(*roomID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewNotFoundError("ROOM_NOT_FOUND", "Chat room not found")
			}
			return nil, err
		}
	}

	if stock.IsStockCommand(content) {
		return s.handleStockCommand(ctx, user, roomID, content)
	}

	message := &models.ChatMessage{
		ChatRoomID: roomID,
		UserID:     user.ID,
		Username:   user.Username,
		Content:    content,
		Type:       models.MessageTypeNormal,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.messages.Create(message); err != nil {
		return nil, err
	}

	s.hub.BroadcastToGroup(s.audience.GroupFor(roomID), "chat", message)
	return message, nil
}

// handleStockCommand echoes the command to the room so everyone sees it
// was issued, then publishes a request for the bot worker. The echo is
// not persisted. A command that matches the prefix but not the full
// syntax is echoed only; nothing is published.
func (s *ChatService) handleStockCommand(ctx context.Context, user *models.User, roomID *uuid.UUID, content string) (*models.ChatMessage, error) {
	echo := &models.ChatMessage{
		ID:         uuid.New(),
		ChatRoomID: roomID,
		UserID:     user.ID,
		Username:   user.Username,
		Content:    content,
		Type:       models.MessageTypeStockCommand,
		CreatedAt:  time.Now().UTC(),
	}
	s.hub.BroadcastToGroup(s.audience.GroupFor(roomID), "chat", echo)

	symbol, ok := stock.ExtractSymbol(content)
	if !ok || !stock.IsValidSymbol(symbol) {
		s.log.Warn("Ignoring malformed stock command", "user_id", user.ID.String())
		return echo, nil
	}

	request := broker.StockRequestMessage{
		StockSymbol: symbol,
		RequestID:   uuid.New(),
		UserID:      user.ID,
		Timestamp:   time.Now().UTC(),
		ChatRoomID:  roomID,
	}
	if err := s.broker.PublishStockRequest(ctx, request); err != nil {
		s.log.LogError(err, "Failed to publish stock request", "symbol", symbol)
		return nil, apperrors.NewBadGatewayError("BROKER_UNAVAILABLE", "Stock quote service is temporarily unavailable")
	}

	s.log.Info("Queued stock command",
		"symbol", symbol,
		"request_id", request.RequestID.String(),
		"user_id", user.ID.String(),
	)
	return echo, nil
}

// GetRecentMessages returns the newest messages for a room in
// chronological order, capped at the configured history size.
func (s *ChatService) GetRecentMessages(roomID *uuid.UUID, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > s.maxMessages {
		limit = s.maxMessages
	}

	if roomID != nil {
		if _, err := s.rooms.GetByID(*roomID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewNotFoundError("ROOM_NOT_FOUND", "Chat room not found")
			}
			return nil, err
		}
	}

	return s.messages.GetRecent(roomID, limit)
}

// CreateRoom creates a named chat room.
func (s *ChatService) CreateRoom(name string, createdBy uuid.UUID) (*models.ChatRoom, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequestError("EMPTY_ROOM_NAME", "Room name is required")
	}

	if _, err := s.rooms.GetByName(name); err == nil {
		return nil, apperrors.NewConflictError("ROOM_EXISTS", "A room with that name already exists")
	}

	room := &models.ChatRoom{
		Name:        name,
		CreatedByID: createdBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.rooms.Create(room); err != nil {
		return nil, err
	}

	s.log.Info("Created chat room", "room_id", room.ID.String(), "name", name)
	return room, nil
}

// ListRooms returns all chat rooms.
func (s *ChatService) ListRooms() ([]models.ChatRoom, error) {
	return s.rooms.List()
}

// GetRoom returns one room by ID.
func (s *ChatService) GetRoom(id uuid.UUID) (*models.ChatRoom, error) {
	room, err := s.rooms.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("ROOM_NOT_FOUND", "Chat room not found")
		}
		return nil, err
	}
	return room, nil
}
