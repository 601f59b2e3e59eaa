package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Client is one websocket connection owned by an authenticated user.
type Client struct {
	UserID   uuid.UUID
	Username string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub

	// done is closed by the hub when the client is removed. Send is
	// never closed, so the read pump can keep calling sendMessage
	// while the hub drops the client.
	done chan struct{}

	// groups is only touched from the hub's Run goroutine.
	groups map[string]bool

	roomPrefix string
}

// chatFrame is the content of an inbound "chat" message.
type chatFrame struct {
	Content    string     `json:"content"`
	ChatRoomID *uuid.UUID `json:"chat_room_id"`
}

// roomFrame is the content of join_room and leave_room messages.
type roomFrame struct {
	RoomID uuid.UUID `json:"room_id"`
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Warn("Websocket read error", "user_id", c.UserID.String(), "error", err.Error())
			}
			break
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.sendError("Malformed message")
			continue
		}

		c.handleMessage(message)
	}
}

func (c *Client) handleMessage(message Message) {
	switch message.Type {
	case "chat":
		c.handleChat(message)
	case "join_room":
		if frame, ok := decodeContent[roomFrame](message); ok {
			c.Hub.join <- membership{client: c, group: c.roomPrefix + frame.RoomID.String()}
		}
	case "leave_room":
		if frame, ok := decodeContent[roomFrame](message); ok {
			c.Hub.leave <- membership{client: c, group: c.roomPrefix + frame.RoomID.String()}
		}
	case "ping":
		c.sendMessage("pong", nil)
	default:
		c.sendError("Unknown message type: " + message.Type)
	}
}

func (c *Client) handleChat(message Message) {
	frame, ok := decodeContent[chatFrame](message)
	if !ok {
		c.sendError("Malformed chat message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.Hub.poster.PostMessage(ctx, c.UserID, frame.ChatRoomID, frame.Content); err != nil {
		c.sendError(err.Error())
	}
}

func decodeContent[T any](message Message) (T, bool) {
	var out T
	data, err := json.Marshal(message.Content)
	if err != nil {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, false
	}
	return out, true
}

func (c *Client) sendMessage(messageType string, content any) {
	data, err := json.Marshal(Message{Type: messageType, Content: content})
	if err != nil {
		return
	}
	select {
	case <-c.done:
	case c.Send <- data:
	default:
	}
}

func (c *Client) sendError(text string) {
	c.sendMessage("error", map[string]string{"message": text})
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs upgrades an authenticated request to a websocket connection
// and registers the client with the hub. The caller resolves the user
// from the token before handing off here.
func ServeWs(hub *Hub, roomPrefix string, userID uuid.UUID, username string, c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.LogError(err, "Failed to upgrade websocket", "user_id", userID.String())
		return
	}

	client := &Client{
		UserID:     userID,
		Username:   username,
		Conn:       conn,
		Send:       make(chan []byte, 256),
		Hub:        hub,
		done:       make(chan struct{}),
		groups:     make(map[string]bool),
		roomPrefix: roomPrefix,
	}

	hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
