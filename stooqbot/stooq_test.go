package stooqbot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anargu/StockChatRoomWeb/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *StooqClient {
	cfg := config.Get()
	client := NewStooqClient(cfg)
	client.baseURL = baseURL
	client.urlSuffix = ".us&f=sd2t2ohlcv&h&e=csv"
	client.httpClient.Timeout = 2 * time.Second
	return client
}

func TestBuildURL(t *testing.T) {
	client := newTestClient("https://stooq.com/q/l/?s=")

	assert.Equal(t, "https://stooq.com/q/l/?s=aapl.us&f=sd2t2ohlcv&h&e=csv", client.BuildURL("aapl"))
	assert.Equal(t, "https://stooq.com/q/l/?s=aapl.us&f=sd2t2ohlcv&h&e=csv", client.BuildURL("AAPL"))
	assert.Equal(t, "https://stooq.com/q/l/?s=aapl.us&f=sd2t2ohlcv&h&e=csv", client.BuildURL(" aapl "))

	// An explicit market suffix is not doubled.
	assert.Equal(t, "https://stooq.com/q/l/?s=aapl.us&f=sd2t2ohlcv&h&e=csv", client.BuildURL("AAPL.US"))
}

func TestFetchReturnsBody(t *testing.T) {
	const payload = "Symbol,Date,Time,Open,High,Low,Close,Volume\nAAPL.US,2024-01-09,22:00:02,185.50,186.00,184.75,185.56,1000000"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "s=aapl.us")
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/q/l/?s=")

	body, err := client.Fetch(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, payload, body)
}

func TestFetchNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/q/l/?s=")

	_, err := client.Fetch(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/q/l/?s=")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx, "AAPL")
	assert.Error(t, err)
}
