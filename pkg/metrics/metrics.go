package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the stock-quote pipeline. Registered on the default
// registry and exposed by the /metrics endpoint in pkg/observability.
var (
	StockRequestsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_stock_requests_published_total",
		Help: "Stock requests published to the request queue.",
	})

	StockRequestsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_stock_requests_consumed_total",
		Help: "Stock requests consumed from the request queue.",
	})

	StockResponsesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_stock_responses_published_total",
		Help: "Stock responses published to the response queue.",
	})

	StockResponsesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_stock_responses_consumed_total",
		Help: "Stock responses consumed from the response queue.",
	})

	MessagesAcked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockchat_broker_messages_acked_total",
		Help: "Broker deliveries acknowledged, per queue.",
	}, []string{"queue"})

	MessagesNacked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockchat_broker_messages_nacked_total",
		Help: "Broker deliveries negatively acknowledged, per queue.",
	}, []string{"queue"})

	MessagesDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockchat_broker_messages_dead_lettered_total",
		Help: "Broker deliveries routed to a dead-letter queue, per queue.",
	}, []string{"queue"})

	QuoteFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_quote_fetch_failures_total",
		Help: "Failed HTTP fetches from the quote provider.",
	})

	QuoteParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_quote_parse_failures_total",
		Help: "Quote payloads that failed CSV parsing.",
	})

	QuoteCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_quote_cache_hits_total",
		Help: "Quote lookups served from the Redis cache.",
	})

	BotMessagesBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockchat_bot_messages_broadcast_total",
		Help: "Bot chat messages broadcast, per audience kind.",
	}, []string{"audience"})
)
