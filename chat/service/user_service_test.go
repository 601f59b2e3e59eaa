package service

import (
	"testing"

	"github.com/anargu/StockChatRoomWeb/chat/repository"
	apperrors "github.com/anargu/StockChatRoomWeb/pkg/errors"
	"github.com/anargu/StockChatRoomWeb/pkg/jwt"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserFixture(t *testing.T) (*UserService, repository.UserRepository) {
	t.Helper()

	db := newTestDB(t)
	userRepo := repository.NewGormUserRepository(db)
	jwtService := jwt.NewService("test-secret", 0)
	return NewUserService(userRepo, jwtService, nil, logger.GetGlobal()), userRepo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newUserFixture(t)

	user, err := svc.Register("alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.False(t, user.IsBot)

	token, loggedIn, err := svc.Login("alice", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Register("alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = svc.Login("alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetStatusCode(err))
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, _, err := svc.Login("nobody", "whatever")
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetStatusCode(err))
}

func TestLoginAsBotRejected(t *testing.T) {
	svc, userRepo := newUserFixture(t)

	bot, err := userRepo.GetOrCreateBot("StockBot", BotEmail)
	require.NoError(t, err)
	assert.True(t, bot.IsBot)

	_, _, err = svc.Login("StockBot", "-")
	require.Error(t, err)
	assert.Equal(t, 401, apperrors.GetStatusCode(err))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Register("alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	_, err = svc.Register("alice", "other@example.com", "secret123")
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.GetStatusCode(err))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newUserFixture(t)

	_, err := svc.Register("alice", "alice@example.com", "short")
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetStatusCode(err))
}

func TestGetByID(t *testing.T) {
	svc, _ := newUserFixture(t)

	user, err := svc.Register("alice", "alice@example.com", "secret123")
	require.NoError(t, err)

	found, err := svc.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, found.Username)
}
