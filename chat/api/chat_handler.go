package api

import (
	"net/http"

	"github.com/anargu/StockChatRoomWeb/chat/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type postMessageRequest struct {
	Content    string     `json:"content" binding:"required"`
	ChatRoomID *uuid.UUID `json:"chat_room_id"`
}

type createRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

// PostMessage accepts a chat message over REST. Websocket frames are the
// primary path; this endpoint serves scripted clients and tests.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	userID, _, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.chat.PostMessage(c.Request.Context(), userID, req.ChatRoomID, req.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

// GetMessages returns recent history for the global chatroom or, with a
// room_id query parameter, one room.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	var roomID *uuid.UUID
	if raw := c.Query("room_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room_id"})
			return
		}
		roomID = &parsed
	}

	messages, err := h.chat.GetRecentMessages(roomID, 0)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *ChatHandler) CreateRoom(c *gin.Context) {
	userID, _, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.chat.CreateRoom(req.Name, userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	rooms, err := h.chat.ListRooms()
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *ChatHandler) GetRoom(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return
	}

	room, err := h.chat.GetRoom(id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, room)
}
