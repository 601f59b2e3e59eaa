package api

import (
	"net/http"
	"strings"

	"github.com/anargu/StockChatRoomWeb/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	contextUserIDKey   = "userID"
	contextUsernameKey = "username"
)

// AuthMiddleware validates the bearer token and stores the caller's
// identity on the context.
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a bearer token"})
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject"})
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Set(contextUsernameKey, claims.Username)
		c.Next()
	}
}

// CurrentUser reads the authenticated identity placed by AuthMiddleware.
func CurrentUser(c *gin.Context) (uuid.UUID, string, bool) {
	rawID, ok := c.Get(contextUserIDKey)
	if !ok {
		return uuid.Nil, "", false
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	username := c.GetString(contextUsernameKey)
	return userID, username, true
}
