package broker

import (
	"time"

	"github.com/google/uuid"
)

// StockRequestMessage is the wire format published to the stock requests
// queue. Field names are fixed for interop with the legacy worker.
type StockRequestMessage struct {
	StockSymbol string     `json:"stockSymbol"`
	RequestID   uuid.UUID  `json:"requestId"`
	UserID      uuid.UUID  `json:"userId"`
	Timestamp   time.Time  `json:"timestamp"`
	ChatRoomID  *uuid.UUID `json:"chatRoomId"`
}

// StockResponseMessage is the wire format published to the stock responses
// queue. Exactly one response is produced per consumed request, success or
// failure.
type StockResponseMessage struct {
	RequestID        uuid.UUID  `json:"requestId"`
	StockSymbol      string     `json:"stockSymbol"`
	Price            *float64   `json:"price"`
	FormattedMessage string     `json:"formattedMessage"`
	Timestamp        time.Time  `json:"timestamp"`
	IsSuccess        bool       `json:"isSuccess"`
	ErrorMessage     *string    `json:"errorMessage"`
	ChatRoomID       *uuid.UUID `json:"chatRoomId"`
}
