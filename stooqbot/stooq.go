package stooqbot

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/anargu/StockChatRoomWeb/pkg/config"
)

// QuoteFetcher retrieves the raw CSV quote payload for a stock symbol.
type QuoteFetcher interface {
	Fetch(ctx context.Context, symbol string) (string, error)
}

// StooqClient fetches quotes from the stooq.com CSV endpoint.
type StooqClient struct {
	httpClient *http.Client
	baseURL    string
	urlSuffix  string
}

// NewStooqClient builds a client with a tuned transport and the fetch
// timeout from configuration.
func NewStooqClient(cfg *config.Config) *StooqClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &StooqClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Stooq.Timeout,
		},
		baseURL:   cfg.Stooq.BaseURL,
		urlSuffix: cfg.Stooq.URLSuffix,
	}
}

// BuildURL renders the provider URL for a symbol. Symbols are
// lowercased and any explicit ".us" market suffix is stripped, since the
// suffix is reapplied by the configured URL tail.
func (c *StooqClient) BuildURL(symbol string) string {
	normalized := strings.ToLower(strings.TrimSpace(symbol))
	normalized = strings.TrimSuffix(normalized, ".us")
	return c.baseURL + normalized + c.urlSuffix
}

// Fetch performs the HTTP GET and returns the raw CSV body.
func (c *StooqClient) Fetch(ctx context.Context, symbol string) (string, error) {
	url := c.BuildURL(symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build quote request for %s: %w", symbol, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch quote for %s: unexpected status %d", symbol, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read quote body for %s: %w", symbol, err)
	}

	return string(body), nil
}
