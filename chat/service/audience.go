package service

import "github.com/google/uuid"

// Audience maps a chat room reference to the websocket group that should
// receive messages for it. A nil room ID addresses the global chatroom.
type Audience struct {
	GlobalRoom string
	RoomPrefix string
}

// GroupFor resolves the websocket group name for a room reference.
func (a Audience) GroupFor(roomID *uuid.UUID) string {
	if roomID == nil {
		return a.GlobalRoom
	}
	return a.RoomPrefix + roomID.String()
}

// Kind labels the audience for metrics.
func (a Audience) Kind(roomID *uuid.UUID) string {
	if roomID == nil {
		return "global"
	}
	return "room"
}

// Broadcaster delivers an event to every client subscribed to a group.
type Broadcaster interface {
	BroadcastToGroup(group string, event string, payload any)
}
