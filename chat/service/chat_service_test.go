package service

import (
	"context"
	"errors"
	"testing"

	"github.com/anargu/StockChatRoomWeb/broker"
	"github.com/anargu/StockChatRoomWeb/chat/models"
	"github.com/anargu/StockChatRoomWeb/chat/repository"
	apperrors "github.com/anargu/StockChatRoomWeb/pkg/errors"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fakeHub struct {
	groups   []string
	events   []string
	payloads []any
}

func (f *fakeHub) BroadcastToGroup(group string, event string, payload any) {
	f.groups = append(f.groups, group)
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
}

type fakeBroker struct {
	requests   []broker.StockRequestMessage
	publishErr error
}

func (f *fakeBroker) PublishStockRequest(ctx context.Context, request broker.StockRequestMessage) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.requests = append(f.requests, request)
	return nil
}

func (f *fakeBroker) PublishStockResponse(ctx context.Context, response broker.StockResponseMessage) error {
	return nil
}

func (f *fakeBroker) ConsumeStockRequests(ctx context.Context, handler broker.RequestHandler) error {
	return nil
}

func (f *fakeBroker) ConsumeStockResponses(ctx context.Context, handler broker.ResponseHandler) error {
	return nil
}

func (f *fakeBroker) Ping() error  { return nil }
func (f *fakeBroker) Close() error { return nil }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named in-memory database keeps the schema visible across pooled
	// connections; the random name isolates tests from each other.
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ChatRoom{}, &models.ChatMessage{}))
	return db
}

func testAudience() Audience {
	return Audience{GlobalRoom: "chatroom", RoomPrefix: "room:"}
}

type chatFixture struct {
	db      *gorm.DB
	hub     *fakeHub
	broker  *fakeBroker
	service *ChatService
	user    *models.User
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()

	db := newTestDB(t)
	hub := &fakeHub{}
	b := &fakeBroker{}

	userRepo := repository.NewGormUserRepository(db)
	roomRepo := repository.NewGormChatRoomRepository(db)
	messageRepo := repository.NewGormChatMessageRepository(db)

	svc := NewChatService(messageRepo, roomRepo, userRepo, b, hub, testAudience(), 50, logger.GetGlobal())

	user := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, userRepo.Create(user))

	return &chatFixture{db: db, hub: hub, broker: b, service: svc, user: user}
}

func (f *chatFixture) createRoom(t *testing.T, name string) *models.ChatRoom {
	t.Helper()
	room, err := f.service.CreateRoom(name, f.user.ID)
	require.NoError(t, err)
	return room
}

func (f *chatFixture) messageCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.ChatMessage{}).Count(&count).Error)
	return count
}

func TestPostMessagePersistsAndBroadcasts(t *testing.T) {
	f := newChatFixture(t)

	message, err := f.service.PostMessage(context.Background(), f.user.ID, nil, "hello everyone")
	require.NoError(t, err)
	assert.Equal(t, "hello everyone", message.Content)
	assert.Equal(t, models.MessageTypeNormal, message.Type)
	assert.Equal(t, "alice", message.Username)

	assert.Equal(t, int64(1), f.messageCount(t))
	require.Len(t, f.hub.groups, 1)
	assert.Equal(t, "chatroom", f.hub.groups[0])
	assert.Equal(t, "chat", f.hub.events[0])
}

func TestPostMessageToRoomScopesBroadcast(t *testing.T) {
	f := newChatFixture(t)
	room := f.createRoom(t, "trading")

	_, err := f.service.PostMessage(context.Background(), f.user.ID, &room.ID, "room talk")
	require.NoError(t, err)

	require.Len(t, f.hub.groups, 1)
	assert.Equal(t, "room:"+room.ID.String(), f.hub.groups[0])
}

func TestPostMessageUnknownRoom(t *testing.T) {
	f := newChatFixture(t)
	missing := uuid.New()

	_, err := f.service.PostMessage(context.Background(), f.user.ID, &missing, "hello")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.GetStatusCode(err))
}

func TestPostMessageEmptyContent(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.service.PostMessage(context.Background(), f.user.ID, nil, "   ")
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetStatusCode(err))

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	_, err = f.service.PostMessage(context.Background(), f.user.ID, nil, string(long))
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetStatusCode(err))
}

func TestStockCommandPublishesRequestWithoutPersisting(t *testing.T) {
	f := newChatFixture(t)

	echo, err := f.service.PostMessage(context.Background(), f.user.ID, nil, "/stock=aapl.us")
	require.NoError(t, err)
	assert.Equal(t, "/stock=aapl.us", echo.Content)
	assert.Equal(t, models.MessageTypeStockCommand, echo.Type)

	// The command is echoed for display but never stored as history.
	assert.Equal(t, int64(0), f.messageCount(t))
	require.Len(t, f.hub.groups, 1)
	assert.Equal(t, "chatroom", f.hub.groups[0])

	require.Len(t, f.broker.requests, 1)
	request := f.broker.requests[0]
	assert.Equal(t, "aapl.us", request.StockSymbol)
	assert.Equal(t, f.user.ID, request.UserID)
	assert.Nil(t, request.ChatRoomID)
	assert.NotEqual(t, uuid.Nil, request.RequestID)
}

func TestStockCommandCarriesRoomScope(t *testing.T) {
	f := newChatFixture(t)
	room := f.createRoom(t, "stocks")

	_, err := f.service.PostMessage(context.Background(), f.user.ID, &room.ID, "/stock=msft")
	require.NoError(t, err)

	require.Len(t, f.broker.requests, 1)
	require.NotNil(t, f.broker.requests[0].ChatRoomID)
	assert.Equal(t, room.ID, *f.broker.requests[0].ChatRoomID)
}

func TestStockCommandMalformedEchoesOnly(t *testing.T) {
	f := newChatFixture(t)

	echo, err := f.service.PostMessage(context.Background(), f.user.ID, nil, "/stock=")
	require.NoError(t, err)
	assert.Equal(t, "/stock=", echo.Content)

	// Echoed to the room, but nothing queued or persisted.
	require.Len(t, f.hub.groups, 1)
	assert.Empty(t, f.broker.requests)
	assert.Equal(t, int64(0), f.messageCount(t))
}

func TestStockCommandBrokerDown(t *testing.T) {
	f := newChatFixture(t)
	f.broker.publishErr = errors.New("connection refused")

	_, err := f.service.PostMessage(context.Background(), f.user.ID, nil, "/stock=aapl")
	require.Error(t, err)
	assert.Equal(t, 502, apperrors.GetStatusCode(err))
	assert.Equal(t, int64(0), f.messageCount(t))
}

func TestGetRecentMessagesOrderAndLimit(t *testing.T) {
	f := newChatFixture(t)

	for _, content := range []string{"first", "second", "third"} {
		_, err := f.service.PostMessage(context.Background(), f.user.ID, nil, content)
		require.NoError(t, err)
	}

	messages, err := f.service.GetRecentMessages(nil, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "second", messages[0].Content)
	assert.Equal(t, "third", messages[1].Content)
}

func TestCreateRoomDuplicateName(t *testing.T) {
	f := newChatFixture(t)
	f.createRoom(t, "general")

	_, err := f.service.CreateRoom("general", f.user.ID)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.GetStatusCode(err))
}

func TestListRooms(t *testing.T) {
	f := newChatFixture(t)
	f.createRoom(t, "one")
	f.createRoom(t, "two")

	rooms, err := f.service.ListRooms()
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}
