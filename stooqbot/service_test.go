package stooqbot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anargu/StockChatRoomWeb/broker"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = "Symbol,Date,Time,Open,High,Low,Close,Volume\nAAPL.US,2024-01-09,22:00:02,185.50,186.00,184.75,185.56,1000000"

type fakeBroker struct {
	responses  []broker.StockResponseMessage
	publishErr error
}

func (f *fakeBroker) PublishStockRequest(ctx context.Context, request broker.StockRequestMessage) error {
	return nil
}

func (f *fakeBroker) PublishStockResponse(ctx context.Context, response broker.StockResponseMessage) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.responses = append(f.responses, response)
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

type fakeFetcher struct {
	payload   string
	err       error
	panicWith any
	calls     int
}

func (f *fakeFetcher) Fetch(ctx context.Context, symbol string) (string, error) {
	f.calls++
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.payload, f.err
}

type fakeCache struct {
	data map[string]string
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Get(symbol string) (string, bool) {
	payload, ok := f.data[symbol]
	return payload, ok
}

func (f *fakeCache) Set(symbol string, payload string) {
	f.sets++
	f.data[symbol] = payload
}

func newTestService(b *fakeBroker, fetcher *fakeFetcher, cache QuoteCache) *Service {
	return NewService(b, fetcher, cache, time.Second, logger.GetGlobal())
}

func newRequest(symbol string) broker.StockRequestMessage {
	return broker.StockRequestMessage{
		StockSymbol: symbol,
		RequestID:   uuid.New(),
		UserID:      uuid.New(),
		Timestamp:   time.Now().UTC(),
	}
}

func TestHandleRequestSuccess(t *testing.T) {
	b := &fakeBroker{}
	svc := newTestService(b, &fakeFetcher{payload: validPayload}, nil)
	request := newRequest("aapl")

	err := svc.HandleRequest(context.Background(), request)
	require.NoError(t, err)
	require.Len(t, b.responses, 1)

	response := b.responses[0]
	assert.Equal(t, request.RequestID, response.RequestID)
	assert.True(t, response.IsSuccess)
	require.NotNil(t, response.Price)
	assert.Equal(t, 185.56, *response.Price)
	assert.Equal(t, "The quote for AAPL is $185.56 per share.", response.FormattedMessage)
	assert.Nil(t, response.ErrorMessage)
}

func TestHandleRequestPreservesRoomScope(t *testing.T) {
	b := &fakeBroker{}
	svc := newTestService(b, &fakeFetcher{payload: validPayload}, nil)

	roomID := uuid.New()
	request := newRequest("aapl")
	request.ChatRoomID = &roomID

	require.NoError(t, svc.HandleRequest(context.Background(), request))
	require.Len(t, b.responses, 1)
	require.NotNil(t, b.responses[0].ChatRoomID)
	assert.Equal(t, roomID, *b.responses[0].ChatRoomID)
}

func TestHandleRequestUnknownSymbol(t *testing.T) {
	b := &fakeBroker{}
	svc := newTestService(b, &fakeFetcher{payload: "FOO.US,N/D,N/D,N/D,N/D,N/D,N/D,N/D"}, nil)

	require.NoError(t, svc.HandleRequest(context.Background(), newRequest("foo")))
	require.Len(t, b.responses, 1)

	response := b.responses[0]
	assert.False(t, response.IsSuccess)
	assert.Nil(t, response.Price)
	assert.Equal(t, "Sorry, I couldn't find stock information for FOO.", response.FormattedMessage)
	require.NotNil(t, response.ErrorMessage)
	assert.Equal(t, "Stock data not found or invalid", *response.ErrorMessage)
}

func TestHandleRequestFetchError(t *testing.T) {
	b := &fakeBroker{}
	svc := newTestService(b, &fakeFetcher{err: errors.New("connection refused")}, nil)

	require.NoError(t, svc.HandleRequest(context.Background(), newRequest("aapl")))
	require.Len(t, b.responses, 1)

	response := b.responses[0]
	assert.False(t, response.IsSuccess)
	assert.Equal(t, "Sorry, there was an error retrieving stock information for AAPL.", response.FormattedMessage)

	// The wire error carries the cause so outages are distinguishable
	// from unknown symbols.
	require.NotNil(t, response.ErrorMessage)
	assert.Equal(t, "connection refused", *response.ErrorMessage)
}

func TestHandleRequestInvalidSymbolSkipsFetch(t *testing.T) {
	b := &fakeBroker{}
	fetcher := &fakeFetcher{payload: validPayload}
	svc := newTestService(b, fetcher, nil)

	require.NoError(t, svc.HandleRequest(context.Background(), newRequest("bad symbol!")))
	assert.Zero(t, fetcher.calls)
	require.Len(t, b.responses, 1)
	assert.False(t, b.responses[0].IsSuccess)
}

func TestHandleRequestPublishFailurePropagates(t *testing.T) {
	b := &fakeBroker{publishErr: errors.New("broker down")}
	svc := newTestService(b, &fakeFetcher{payload: validPayload}, nil)

	err := svc.HandleRequest(context.Background(), newRequest("aapl"))
	assert.Error(t, err)
}

func TestHandleRequestRecoversFromPanic(t *testing.T) {
	b := &fakeBroker{}
	svc := newTestService(b, &fakeFetcher{panicWith: "boom"}, nil)

	err := svc.HandleRequest(context.Background(), newRequest("aapl"))
	require.NoError(t, err)
	require.Len(t, b.responses, 1)
	assert.False(t, b.responses[0].IsSuccess)
	require.NotNil(t, b.responses[0].ErrorMessage)
	assert.Equal(t, "Internal error while retrieving stock data", *b.responses[0].ErrorMessage)
}

func TestHandleRequestServesFromCache(t *testing.T) {
	b := &fakeBroker{}
	fetcher := &fakeFetcher{payload: validPayload}
	cache := newFakeCache()
	cache.data["aapl"] = validPayload
	svc := newTestService(b, fetcher, cache)

	require.NoError(t, svc.HandleRequest(context.Background(), newRequest("aapl")))
	assert.Zero(t, fetcher.calls)
	require.Len(t, b.responses, 1)
	assert.True(t, b.responses[0].IsSuccess)
}

func TestHandleRequestPopulatesCache(t *testing.T) {
	b := &fakeBroker{}
	fetcher := &fakeFetcher{payload: validPayload}
	cache := newFakeCache()
	svc := newTestService(b, fetcher, cache)

	require.NoError(t, svc.HandleRequest(context.Background(), newRequest("aapl")))
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, cache.sets)

	require.NoError(t, svc.HandleRequest(context.Background(), newRequest("aapl")))
	assert.Equal(t, 1, fetcher.calls)
}
