package broker

import "context"

// RequestHandler processes one delivered stock request. A nil return
// acknowledges the delivery; an error triggers the broker retry policy.
type RequestHandler func(ctx context.Context, request StockRequestMessage) error

// ResponseHandler processes one delivered stock response.
type ResponseHandler func(ctx context.Context, response StockResponseMessage) error

// MessageBroker abstracts a durable, at-least-once message queue with
// manual acknowledgment. Handlers may be invoked concurrently (competing
// consumers); no ordering is guaranteed across messages.
type MessageBroker interface {
	// PublishStockRequest publishes a request persistently to the stock
	// requests queue. Fails with errors.ErrBrokerUnavailable when the
	// publish cannot be confirmed; the failure is the caller's to surface.
	PublishStockRequest(ctx context.Context, request StockRequestMessage) error

	// PublishStockResponse publishes a response persistently to the stock
	// responses queue.
	PublishStockResponse(ctx context.Context, response StockResponseMessage) error

	// ConsumeStockRequests registers a long-lived consumer on the stock
	// requests queue. The consumer stops when ctx is cancelled.
	ConsumeStockRequests(ctx context.Context, handler RequestHandler) error

	// ConsumeStockResponses registers a long-lived consumer on the stock
	// responses queue.
	ConsumeStockResponses(ctx context.Context, handler ResponseHandler) error

	// Ping reports whether the broker connection is alive.
	Ping() error

	// Close tears down the broker connection.
	Close() error
}
