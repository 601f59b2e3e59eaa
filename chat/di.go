package chat

import (
	"github.com/anargu/StockChatRoomWeb/broker"
	"github.com/anargu/StockChatRoomWeb/chat/api"
	"github.com/anargu/StockChatRoomWeb/chat/repository"
	"github.com/anargu/StockChatRoomWeb/chat/service"
	"github.com/anargu/StockChatRoomWeb/chat/ws"
	"github.com/anargu/StockChatRoomWeb/pkg/config"
	"github.com/anargu/StockChatRoomWeb/pkg/health"
	"github.com/anargu/StockChatRoomWeb/pkg/jwt"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/shared/redis"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Container holds the wired chat server components.
type Container struct {
	UserService *service.UserService
	ChatService *service.ChatService
	StockRouter *service.StockRouter
	Hub         *ws.Hub
	Router      *gin.Engine
}

// NewContainer wires repositories, services, the websocket hub and the
// HTTP router.
func NewContainer(
	cfg *config.Config,
	db *gorm.DB,
	b broker.MessageBroker,
	redisClient *redis.RedisClient,
	checker *health.Checker,
	log *logger.Logger,
) *Container {
	userRepo := repository.NewGormUserRepository(db)
	roomRepo := repository.NewGormChatRoomRepository(db)
	messageRepo := repository.NewGormChatMessageRepository(db)

	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)

	audience := service.Audience{
		GlobalRoom: cfg.Chat.GlobalRoom,
		RoomPrefix: cfg.Chat.RoomGroupPrefix,
	}

	hub := ws.NewHub(cfg.Chat.GlobalRoom, log)

	userService := service.NewUserService(userRepo, jwtService, redisClient, log)
	chatService := service.NewChatService(messageRepo, roomRepo, userRepo, b, hub, audience, cfg.Chat.MaxMessages, log)
	stockRouter := service.NewStockRouter(b, messageRepo, userRepo, hub, audience, cfg.Chat.BotUsername, log)

	hub.SetMessagePoster(chatService)

	authHandler := api.NewAuthHandler(userService)
	chatHandler := api.NewChatHandler(chatService)
	router := api.NewRouter(cfg, log, jwtService, authHandler, chatHandler, hub, checker)

	return &Container{
		UserService: userService,
		ChatService: chatService,
		StockRouter: stockRouter,
		Hub:         hub,
		Router:      router,
	}
}
