package api

import (
	"net/http"

	"github.com/anargu/StockChatRoomWeb/chat/ws"
	"github.com/anargu/StockChatRoomWeb/pkg/config"
	apperrors "github.com/anargu/StockChatRoomWeb/pkg/errors"
	"github.com/anargu/StockChatRoomWeb/pkg/health"
	"github.com/anargu/StockChatRoomWeb/pkg/jwt"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// NewRouter assembles the gin engine with the shared middleware stack
// and all chat routes.
func NewRouter(
	cfg *config.Config,
	log *logger.Logger,
	jwtService *jwt.Service,
	authHandler *AuthHandler,
	chatHandler *ChatHandler,
	hub *ws.Hub,
	checker *health.Checker,
) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(apperrors.RecoveryWithLogger())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(apperrors.ErrorHandler(log))

	limiterOpts := middleware.DefaultRateLimiterOptions()
	limiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	limiterOpts.Burst = cfg.Security.RateLimitBurst
	limiter := middleware.NewRateLimiter(log, limiterOpts)

	r.GET("/health", gin.WrapF(checker.HTTPHandler()))

	auth := r.Group("/api/auth")
	auth.Use(limiter.Middleware())
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}
	api := r.Group("/api")
	api.Use(AuthMiddleware(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.POST("/chat/messages", chatHandler.PostMessage)
		api.GET("/chat/messages", chatHandler.GetMessages)
		api.POST("/chatrooms", chatHandler.CreateRoom)
		api.GET("/chatrooms", chatHandler.ListRooms)
		api.GET("/chatrooms/:id", chatHandler.GetRoom)
	}

	// Browsers cannot set headers on websocket upgrades, so the token
	// rides in a query parameter here.
	r.GET("/ws", func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token query parameter is required"})
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
			return
		}

		ws.ServeWs(hub, cfg.Chat.RoomGroupPrefix, userID, claims.Username, c)
	})

	return r
}
