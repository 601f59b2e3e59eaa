package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/anargu/StockChatRoomWeb/pkg/errors"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/pkg/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
)

// errMalformedPayload marks a delivery whose body cannot be deserialized.
// Such messages are dead-lettered immediately instead of being retried.
var errMalformedPayload = errors.New("malformed message payload")

// deadLetterSuffix names the per-queue dead-letter queue.
const deadLetterSuffix = ".dlq"

// RabbitMQBroker implements MessageBroker on top of RabbitMQ.
//
// Queues are durable and messages are published persistent, so they
// survive a broker restart. Deliveries are manually acknowledged: a
// handler error requeues the message once; a failure on the redelivery
// routes it to the queue's dead-letter queue.
type RabbitMQBroker struct {
	conn           *amqp.Connection
	pubCh          *amqp.Channel
	pubMu          sync.Mutex
	requestsQueue  string
	responsesQueue string
	prefetch       int
	log            *logger.Logger
}

// NewRabbitMQBroker connects to RabbitMQ and declares the request and
// response queues together with their dead-letter queues.
func NewRabbitMQBroker(url, requestsQueue, responsesQueue string, prefetch int, log *logger.Logger) (*RabbitMQBroker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBrokerUnavailable, err)
	}

	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: open channel: %v", apperrors.ErrBrokerUnavailable, err)
	}

	b := &RabbitMQBroker{
		conn:           conn,
		pubCh:          pubCh,
		requestsQueue:  requestsQueue,
		responsesQueue: responsesQueue,
		prefetch:       prefetch,
		log:            log,
	}

	for _, queue := range []string{requestsQueue, responsesQueue} {
		if err := b.declareQueue(pubCh, queue); err != nil {
			b.Close()
			return nil, err
		}
	}

	log.Info("Connected to RabbitMQ",
		"requests_queue", requestsQueue,
		"responses_queue", responsesQueue,
	)

	return b, nil
}

// declareQueue declares a durable queue and its dead-letter companion.
func (b *RabbitMQBroker) declareQueue(ch *amqp.Channel, name string) error {
	dlq := name + deadLetterSuffix

	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%w: declare queue %s: %v", apperrors.ErrBrokerUnavailable, dlq, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
		return fmt.Errorf("%w: declare queue %s: %v", apperrors.ErrBrokerUnavailable, name, err)
	}

	return nil
}

// PublishStockRequest publishes a request persistently to the requests queue.
func (b *RabbitMQBroker) PublishStockRequest(ctx context.Context, request StockRequestMessage) error {
	if err := b.publish(ctx, b.requestsQueue, request); err != nil {
		return err
	}
	metrics.StockRequestsPublished.Inc()
	b.log.Info("Published stock request",
		"symbol", request.StockSymbol,
		"request_id", request.RequestID.String(),
	)
	return nil
}

// PublishStockResponse publishes a response persistently to the responses queue.
func (b *RabbitMQBroker) PublishStockResponse(ctx context.Context, response StockResponseMessage) error {
	if err := b.publish(ctx, b.responsesQueue, response); err != nil {
		return err
	}
	metrics.StockResponsesPublished.Inc()
	b.log.Info("Published stock response",
		"symbol", response.StockSymbol,
		"request_id", response.RequestID.String(),
		"success", response.IsSuccess,
	)
	return nil
}

func (b *RabbitMQBroker) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message for %s: %w", queue, err)
	}

	// amqp channels are not safe for concurrent publishing.
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	err = b.pubCh.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("%w: publish to %s: %v", apperrors.ErrBrokerUnavailable, queue, err)
	}

	return nil
}

// ConsumeStockRequests registers a consumer on the requests queue.
func (b *RabbitMQBroker) ConsumeStockRequests(ctx context.Context, handler RequestHandler) error {
	return b.consume(ctx, b.requestsQueue, func(ctx context.Context, body []byte) error {
		var request StockRequestMessage
		if err := json.Unmarshal(body, &request); err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		metrics.StockRequestsConsumed.Inc()
		return handler(ctx, request)
	})
}

// ConsumeStockResponses registers a consumer on the responses queue.
func (b *RabbitMQBroker) ConsumeStockResponses(ctx context.Context, handler ResponseHandler) error {
	return b.consume(ctx, b.responsesQueue, func(ctx context.Context, body []byte) error {
		var response StockResponseMessage
		if err := json.Unmarshal(body, &response); err != nil {
			return fmt.Errorf("%w: %v", errMalformedPayload, err)
		}
		metrics.StockResponsesConsumed.Inc()
		return handler(ctx, response)
	})
}

// consume opens a dedicated channel and pumps deliveries to handle until
// ctx is cancelled. The ack/nack policy lives here, once, for every
// consumer in the system.
func (b *RabbitMQBroker) consume(ctx context.Context, queue string, handle func(context.Context, []byte) error) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("%w: open channel: %v", apperrors.ErrBrokerUnavailable, err)
	}

	if err := ch.Qos(b.prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("%w: set qos: %v", apperrors.ErrBrokerUnavailable, err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("%w: consume %s: %v", apperrors.ErrBrokerUnavailable, queue, err)
	}

	b.log.Info("Started consuming", "queue", queue)

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					b.log.Warn("Delivery channel closed", "queue", queue)
					return
				}
				b.handleDelivery(ctx, queue, d, handle)
			}
		}
	}()

	return nil
}

func (b *RabbitMQBroker) handleDelivery(ctx context.Context, queue string, d amqp.Delivery, handle func(context.Context, []byte) error) {
	err := handle(ctx, d.Body)

	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			b.log.LogError(ackErr, "Failed to ack delivery", "queue", queue)
			return
		}
		metrics.MessagesAcked.WithLabelValues(queue).Inc()

	case errors.Is(err, errMalformedPayload):
		b.log.LogError(err, "Dropping malformed message", "queue", queue)
		b.nack(queue, d, false)
		metrics.MessagesDeadLettered.WithLabelValues(queue).Inc()

	case d.Redelivered:
		b.log.LogError(err, "Handler failed on redelivery, dead-lettering", "queue", queue)
		b.nack(queue, d, false)
		metrics.MessagesDeadLettered.WithLabelValues(queue).Inc()

	default:
		b.log.LogError(err, "Handler failed, requeueing once", "queue", queue)
		b.nack(queue, d, true)
	}
}

func (b *RabbitMQBroker) nack(queue string, d amqp.Delivery, requeue bool) {
	if nackErr := d.Nack(false, requeue); nackErr != nil {
		b.log.LogError(nackErr, "Failed to nack delivery", "queue", queue)
		return
	}
	metrics.MessagesNacked.WithLabelValues(queue).Inc()
}

// Ping reports whether the underlying connection is alive.
func (b *RabbitMQBroker) Ping() error {
	if b.conn == nil || b.conn.IsClosed() {
		return apperrors.ErrBrokerUnavailable
	}
	return nil
}

// Close tears down the channel and connection.
func (b *RabbitMQBroker) Close() error {
	if b.pubCh != nil {
		b.pubCh.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
