package ws

import (
	"context"
	"encoding/json"

	"github.com/anargu/StockChatRoomWeb/chat/models"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"

	"github.com/google/uuid"
)

// MessagePoster is the slice of the chat service the hub needs to handle
// inbound chat frames.
type MessagePoster interface {
	PostMessage(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, content string) (*models.ChatMessage, error)
}

// Message is the envelope for every websocket frame, both directions.
type Message struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

type groupMessage struct {
	group   string
	payload []byte
}

type membership struct {
	client *Client
	group  string
}

// Hub tracks connected clients and their group subscriptions. Every
// client is subscribed to the global chatroom group on connect; room
// groups are joined and left with explicit frames.
type Hub struct {
	clients    map[*Client]bool
	groups     map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan groupMessage

	poster      MessagePoster
	globalGroup string
	log         *logger.Logger
}

func NewHub(globalGroup string, log *logger.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		groups:      make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		join:        make(chan membership),
		leave:       make(chan membership),
		broadcast:   make(chan groupMessage, 64),
		globalGroup: globalGroup,
		log:         log.WithComponent("ws_hub"),
	}
}

// SetMessagePoster wires the chat service in after construction, since
// the service itself broadcasts through the hub.
func (h *Hub) SetMessagePoster(poster MessagePoster) {
	h.poster = poster
}

// BroadcastToGroup fans one event out to every client in a group.
func (h *Hub) BroadcastToGroup(group string, event string, payload any) {
	data, err := json.Marshal(Message{Type: event, Content: payload})
	if err != nil {
		h.log.LogError(err, "Failed to marshal broadcast", "group", group)
		return
	}
	h.broadcast <- groupMessage{group: group, payload: data}
}

// Run processes hub events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.done)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.addToGroup(client, h.globalGroup)
			h.log.Info("Client connected", "user_id", client.UserID.String(), "username", client.Username)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.removeClient(client)
				h.log.Info("Client disconnected", "user_id", client.UserID.String())
			}

		case m := <-h.join:
			h.addToGroup(m.client, m.group)
			h.log.Info("Client joined group", "user_id", m.client.UserID.String(), "group", m.group)

		case m := <-h.leave:
			h.removeFromGroup(m.client, m.group)

		case gm := <-h.broadcast:
			for client := range h.groups[gm.group] {
				select {
				case client.Send <- gm.payload:
				default:
					h.removeClient(client)
					h.log.Warn("Dropped client with blocked send channel", "user_id", client.UserID.String())
				}
			}
		}
	}
}

func (h *Hub) addToGroup(client *Client, group string) {
	if h.groups[group] == nil {
		h.groups[group] = make(map[*Client]bool)
	}
	h.groups[group][client] = true
	client.groups[group] = true
}

func (h *Hub) removeFromGroup(client *Client, group string) {
	if members, ok := h.groups[group]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(client.groups, group)
}

// removeClient drops the client from every group and signals its pumps
// through done. Send is never closed: the read pump may still be
// delivering frames, and a send on a closed channel would take the
// whole process down.
func (h *Hub) removeClient(client *Client) {
	for group := range client.groups {
		h.removeFromGroup(client, group)
	}
	delete(h.clients, client)
	close(client.done)
}
