package service

import (
	"context"
	"fmt"
	"time"

	"github.com/anargu/StockChatRoomWeb/broker"
	"github.com/anargu/StockChatRoomWeb/chat/models"
	"github.com/anargu/StockChatRoomWeb/chat/repository"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/pkg/metrics"
)

// BotEmail is the email the stock bot user is created with.
const BotEmail = "bot@stockchat.com"

// StockRouter consumes stock responses and turns each one into a bot
// chat message: persisted, then broadcast once to the audience the
// original command came from.
type StockRouter struct {
	broker      broker.MessageBroker
	messages    repository.ChatMessageRepository
	users       repository.UserRepository
	hub         Broadcaster
	audience    Audience
	botUsername string
	log         *logger.Logger
}

func NewStockRouter(
	b broker.MessageBroker,
	messages repository.ChatMessageRepository,
	users repository.UserRepository,
	hub Broadcaster,
	audience Audience,
	botUsername string,
	log *logger.Logger,
) *StockRouter {
	return &StockRouter{
		broker:      b,
		messages:    messages,
		users:       users,
		hub:         hub,
		audience:    audience,
		botUsername: botUsername,
		log:         log.WithComponent("stock_router"),
	}
}

// Run starts consuming the response queue until ctx is cancelled.
func (s *StockRouter) Run(ctx context.Context) error {
	return s.broker.ConsumeStockResponses(ctx, s.HandleResponse)
}

// HandleResponse persists and broadcasts one bot message for a stock
// response. A storage error propagates so the broker can retry the
// delivery.
func (s *StockRouter) HandleResponse(ctx context.Context, response broker.StockResponseMessage) error {
	log := s.log.WithRequestID(response.RequestID.String())

	bot, err := s.users.GetOrCreateBot(s.botUsername, BotEmail)
	if err != nil {
		return fmt.Errorf("resolve bot user: %w", err)
	}

	message := &models.ChatMessage{
		ChatRoomID: response.ChatRoomID,
		UserID:     bot.ID,
		Username:   bot.Username,
		Content:    response.FormattedMessage,
		Type:       models.MessageTypeStockResponse,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.messages.Create(message); err != nil {
		return fmt.Errorf("persist bot message: %w", err)
	}

	group := s.audience.GroupFor(response.ChatRoomID)
	s.hub.BroadcastToGroup(group, "chat", message)
	metrics.BotMessagesBroadcast.WithLabelValues(s.audience.Kind(response.ChatRoomID)).Inc()

	log.Info("Routed stock response",
		"symbol", response.StockSymbol,
		"success", response.IsSuccess,
		"group", group,
	)
	return nil
}
