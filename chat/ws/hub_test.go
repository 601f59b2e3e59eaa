package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/anargu/StockChatRoomWeb/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	hub := NewHub("chatroom", logger.GetGlobal())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, cancel
}

func newTestClient(hub *Hub, username string) *Client {
	return newTestClientBuffered(hub, username, 16)
}

func newTestClientBuffered(hub *Hub, username string, sendBuffer int) *Client {
	return &Client{
		UserID:     uuid.New(),
		Username:   username,
		Send:       make(chan []byte, sendBuffer),
		Hub:        hub,
		done:       make(chan struct{}),
		groups:     make(map[string]bool),
		roomPrefix: "room:",
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()

	select {
	case data := <-c.Send:
		var message Message
		require.NoError(t, json.Unmarshal(data, &message))
		return message
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()

	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBroadcastsToGlobalGroupOnConnect(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	c1 := newTestClient(hub, "alice")
	c2 := newTestClient(hub, "bob")
	hub.register <- c1
	hub.register <- c2

	hub.BroadcastToGroup("chatroom", "chat", map[string]string{"content": "hello"})

	for _, c := range []*Client{c1, c2} {
		message := receive(t, c)
		assert.Equal(t, "chat", message.Type)
	}
}

func TestHubScopesRoomBroadcasts(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	member := newTestClient(hub, "alice")
	outsider := newTestClient(hub, "bob")
	hub.register <- member
	hub.register <- outsider

	roomID := uuid.New()
	group := "room:" + roomID.String()
	hub.join <- membership{client: member, group: group}

	hub.BroadcastToGroup(group, "chat", map[string]string{"content": "room only"})

	message := receive(t, member)
	assert.Equal(t, "chat", message.Type)
	assertNoMessage(t, outsider)
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	client := newTestClient(hub, "alice")
	hub.register <- client

	roomID := uuid.New()
	group := "room:" + roomID.String()
	hub.join <- membership{client: client, group: group}
	hub.leave <- membership{client: client, group: group}

	hub.BroadcastToGroup(group, "chat", map[string]string{"content": "gone"})
	assertNoMessage(t, client)

	// Global membership survives room changes.
	hub.BroadcastToGroup("chatroom", "chat", map[string]string{"content": "still here"})
	message := receive(t, client)
	assert.Equal(t, "chat", message.Type)
}

func TestHubUnregisterRemovesFromAllGroups(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	client := newTestClient(hub, "alice")
	other := newTestClient(hub, "bob")
	hub.register <- client
	hub.register <- other

	hub.unregister <- client

	hub.BroadcastToGroup("chatroom", "chat", map[string]string{"content": "after leave"})
	message := receive(t, other)
	assert.Equal(t, "chat", message.Type)

	// The hub signals the removed client through done.
	select {
	case <-client.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for done signal")
	}
}

func TestHubDroppedClientSurvivesLateSends(t *testing.T) {
	hub, cancel := newTestHub(t)
	defer cancel()

	client := newTestClientBuffered(hub, "alice", 1)
	hub.register <- client

	// Two broadcasts against a full one-slot buffer make the hub drop
	// the client.
	hub.BroadcastToGroup("chatroom", "chat", map[string]string{"content": "one"})
	hub.BroadcastToGroup("chatroom", "chat", map[string]string{"content": "two"})

	select {
	case <-client.done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the hub to drop the client")
	}

	// The read pump may still be handling an inbound frame; its sends
	// must not bring the process down.
	assert.NotPanics(t, func() {
		client.sendError("room not found")
		client.sendMessage("pong", nil)
	})
}
