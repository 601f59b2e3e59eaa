package stooqbot

import (
	"context"
	"fmt"
	"time"

	"github.com/anargu/StockChatRoomWeb/broker"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/pkg/metrics"
	"github.com/anargu/StockChatRoomWeb/stock"
)

// errInvalidData is the machine-readable error carried on failure
// responses for unknown symbols and unparsable payloads. Fetch failures
// carry the underlying error's description instead; a recovered panic
// falls back to errInternalFailure.
const (
	errInvalidData     = "Stock data not found or invalid"
	errInternalFailure = "Internal error while retrieving stock data"
)

// Service consumes stock requests, resolves each one against the quote
// provider and publishes exactly one response per request, success or
// failure. Several instances may run at once; the queue balances
// requests between them.
type Service struct {
	broker       broker.MessageBroker
	fetcher      QuoteFetcher
	cache        QuoteCache
	fetchTimeout time.Duration
	log          *logger.Logger
}

func NewService(b broker.MessageBroker, fetcher QuoteFetcher, cache QuoteCache, fetchTimeout time.Duration, log *logger.Logger) *Service {
	return &Service{
		broker:       b,
		fetcher:      fetcher,
		cache:        cache,
		fetchTimeout: fetchTimeout,
		log:          log.WithComponent("stooqbot"),
	}
}

// Run starts consuming the request queue until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	return s.broker.ConsumeStockRequests(ctx, s.HandleRequest)
}

// HandleRequest resolves one request. Lookup failures become failure
// responses rather than redeliveries; only a failed response publish
// propagates an error back to the broker.
func (s *Service) HandleRequest(ctx context.Context, request broker.StockRequestMessage) (err error) {
	log := s.log.WithRequestID(request.RequestID.String())

	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic while handling stock request",
				"symbol", request.StockSymbol,
				"panic", fmt.Sprintf("%v", r),
			)
			err = s.publish(ctx, s.fetchErrorResponse(request, errInternalFailure))
		}
	}()

	log.Info("Handling stock request", "symbol", request.StockSymbol)

	if !stock.IsValidSymbol(request.StockSymbol) {
		log.Warn("Rejected invalid stock symbol", "symbol", request.StockSymbol)
		return s.publish(ctx, s.notFoundResponse(request))
	}

	payload, err := s.lookup(ctx, request.StockSymbol)
	if err != nil {
		metrics.QuoteFetchFailures.Inc()
		log.LogError(err, "Quote fetch failed", "symbol", request.StockSymbol)
		return s.publish(ctx, s.fetchErrorResponse(request, err.Error()))
	}

	if !stock.IsValidPayload(payload) {
		log.Warn("Quote provider has no data for symbol", "symbol", request.StockSymbol)
		return s.publish(ctx, s.notFoundResponse(request))
	}

	price := stock.ParsePrice(payload)
	if price <= 0 {
		metrics.QuoteParseFailures.Inc()
		log.Warn("Quote payload did not yield a usable price", "symbol", request.StockSymbol)
		return s.publish(ctx, s.notFoundResponse(request))
	}

	log.Info("Resolved stock quote", "symbol", request.StockSymbol, "price", price)
	return s.publish(ctx, s.successResponse(request, price))
}

// lookup serves the payload from cache when possible, otherwise fetches
// from the provider under the configured timeout and caches the result.
func (s *Service) lookup(ctx context.Context, symbol string) (string, error) {
	if s.cache != nil {
		if payload, ok := s.cache.Get(symbol); ok {
			return payload, nil
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	payload, err := s.fetcher.Fetch(fetchCtx, symbol)
	if err != nil {
		return "", err
	}

	if s.cache != nil && stock.IsValidPayload(payload) {
		s.cache.Set(symbol, payload)
	}

	return payload, nil
}

func (s *Service) publish(ctx context.Context, response broker.StockResponseMessage) error {
	if err := s.broker.PublishStockResponse(ctx, response); err != nil {
		return fmt.Errorf("publish stock response: %w", err)
	}
	return nil
}

func (s *Service) successResponse(request broker.StockRequestMessage, price float64) broker.StockResponseMessage {
	return broker.StockResponseMessage{
		RequestID:        request.RequestID,
		StockSymbol:      request.StockSymbol,
		Price:            &price,
		FormattedMessage: stock.FormatResponse(request.StockSymbol, price, true, ""),
		Timestamp:        time.Now().UTC(),
		IsSuccess:        true,
		ChatRoomID:       request.ChatRoomID,
	}
}

func (s *Service) notFoundResponse(request broker.StockRequestMessage) broker.StockResponseMessage {
	errMsg := errInvalidData
	return broker.StockResponseMessage{
		RequestID:        request.RequestID,
		StockSymbol:      request.StockSymbol,
		FormattedMessage: stock.FormatResponse(request.StockSymbol, 0, false, ""),
		Timestamp:        time.Now().UTC(),
		IsSuccess:        false,
		ErrorMessage:     &errMsg,
		ChatRoomID:       request.ChatRoomID,
	}
}

// fetchErrorResponse carries the failure's description so consumers can
// tell a provider outage from an unknown symbol.
func (s *Service) fetchErrorResponse(request broker.StockRequestMessage, errMsg string) broker.StockResponseMessage {
	return broker.StockResponseMessage{
		RequestID:        request.RequestID,
		StockSymbol:      request.StockSymbol,
		FormattedMessage: stock.FormatResponse(request.StockSymbol, 0, false, errMsg),
		Timestamp:        time.Now().UTC(),
		IsSuccess:        false,
		ErrorMessage:     &errMsg,
		ChatRoomID:       request.ChatRoomID,
	}
}
