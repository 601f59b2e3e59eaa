package service

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/anargu/StockChatRoomWeb/chat/models"
	"github.com/anargu/StockChatRoomWeb/chat/repository"
	apperrors "github.com/anargu/StockChatRoomWeb/pkg/errors"
	"github.com/anargu/StockChatRoomWeb/pkg/jwt"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/shared/redis"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const userCacheTTL = 5 * time.Minute

// UserService handles registration, login and user lookup.
type UserService struct {
	users      repository.UserRepository
	jwtService *jwt.Service
	cache      *redis.RedisClient
	log        *logger.Logger
}

func NewUserService(users repository.UserRepository, jwtService *jwt.Service, cache *redis.RedisClient, log *logger.Logger) *UserService {
	return &UserService{
		users:      users,
		jwtService: jwtService,
		cache:      cache,
		log:        log.WithComponent("user_service"),
	}
}

// Register creates a new user with a bcrypt password hash.
func (s *UserService) Register(username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || len(password) < 6 {
		return nil, apperrors.NewBadRequestError("INVALID_REGISTRATION", "Username, email and a password of at least 6 characters are required")
	}

	if _, err := s.users.GetByUsername(username); err == nil {
		return nil, apperrors.NewConflictError("USERNAME_TAKEN", "Username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewInternalServerError("HASH_FAILED", "Failed to hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(user); err != nil {
		return nil, apperrors.NewConflictError("USER_EXISTS", "A user with that username or email already exists")
	}

	s.log.Info("Registered user", "username", username)
	return user, nil
}

// Login verifies the credentials and returns a signed token.
func (s *UserService) Login(username, password string) (string, *models.User, error) {
	user, err := s.users.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, apperrors.NewUnauthorizedError("INVALID_CREDENTIALS", "Invalid username or password")
		}
		return "", nil, err
	}

	if user.IsBot {
		return "", nil, apperrors.NewUnauthorizedError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperrors.NewUnauthorizedError("INVALID_CREDENTIALS", "Invalid username or password")
	}

	token, err := s.jwtService.GenerateToken(user.ID.String(), user.Username)
	if err != nil {
		return "", nil, apperrors.NewInternalServerError("TOKEN_FAILED", "Failed to issue token")
	}

	return token, user, nil
}

// GetByID returns a user, serving repeated lookups from Redis.
func (s *UserService) GetByID(id uuid.UUID) (*models.User, error) {
	key := "user:" + id.String()

	if s.cache != nil {
		if cached, err := s.cache.Get(key); err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(cached), &user); err == nil {
				return &user, nil
			}
		}
	}

	user, err := s.users.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("USER_NOT_FOUND", "User not found")
		}
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(user); err == nil {
			if err := s.cache.Set(key, string(payload), userCacheTTL); err != nil {
				s.log.Warn("Failed to cache user", "user_id", id.String(), "error", err.Error())
			}
		}
	}

	return user, nil
}
