package stooqbot

import (
	"strings"
	"time"

	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/pkg/metrics"
	"github.com/anargu/StockChatRoomWeb/shared/redis"
)

// QuoteCache caches raw provider payloads per symbol so bursts of
// requests for the same symbol hit the provider once per TTL window.
type QuoteCache interface {
	Get(symbol string) (string, bool)
	Set(symbol string, payload string)
}

// RedisQuoteCache stores payloads in Redis with a fixed TTL.
type RedisQuoteCache struct {
	client *redis.RedisClient
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisQuoteCache(client *redis.RedisClient, ttl time.Duration, log *logger.Logger) *RedisQuoteCache {
	return &RedisQuoteCache{client: client, ttl: ttl, log: log}
}

func (c *RedisQuoteCache) key(symbol string) string {
	return "quote:" + strings.ToLower(strings.TrimSpace(symbol))
}

func (c *RedisQuoteCache) Get(symbol string) (string, bool) {
	payload, err := c.client.Get(c.key(symbol))
	if err != nil {
		return "", false
	}
	metrics.QuoteCacheHits.Inc()
	return payload, true
}

func (c *RedisQuoteCache) Set(symbol string, payload string) {
	if err := c.client.Set(c.key(symbol), payload, c.ttl); err != nil {
		// Cache writes are best-effort; the quote already made it out.
		c.log.Warn("Failed to cache quote payload", "symbol", symbol, "error", err.Error())
	}
}
