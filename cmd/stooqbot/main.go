package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anargu/StockChatRoomWeb/broker"
	"github.com/anargu/StockChatRoomWeb/pkg/config"
	"github.com/anargu/StockChatRoomWeb/pkg/health"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/pkg/observability"
	"github.com/anargu/StockChatRoomWeb/pkg/secrets"
	"github.com/anargu/StockChatRoomWeb/shared/redis"
	"github.com/anargu/StockChatRoomWeb/stooqbot"
)

// The bot worker is a standalone process: it owns no HTTP surface beyond
// health and metrics, and scales horizontally as a competing consumer on
// the request queue.
func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting stock bot worker", "env", cfg.Server.Env)

	vaultManager, err := secrets.NewVaultManager(log)
	if err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		os.Exit(1)
	}
	secretsCtx, secretsCancel := context.WithTimeout(context.Background(), 10*time.Second)
	cfg.Broker.URL = vaultManager.GetSecretWithDefault(secretsCtx, "rabbitmq-url", cfg.Broker.URL)
	secretsCancel()

	shutdownTracing := observability.SetupTracing("stockchat-stooqbot")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics(metricsAddr())

	messageBroker, err := broker.NewRabbitMQBroker(
		cfg.Broker.URL,
		cfg.Broker.StockRequestsQueue,
		cfg.Broker.StockResponsesQueue,
		cfg.Broker.Prefetch,
		log,
	)
	if err != nil {
		log.LogError(err, "Failed to connect to message broker")
		os.Exit(1)
	}
	defer messageBroker.Close()

	var cache stooqbot.QuoteCache
	redisClient := redis.NewRedisClient()
	if err := redisClient.Ping(); err != nil {
		log.Warn("Redis is unreachable, quote caching disabled", "error", err.Error())
	} else {
		cache = stooqbot.NewRedisQuoteCache(redisClient, cfg.Cache.QuoteTTL, log)
	}

	fetcher := stooqbot.NewStooqClient(cfg)
	service := stooqbot.NewService(messageBroker, fetcher, cache, cfg.Stooq.Timeout, log)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterBrokerCheck(messageBroker.Ping)
	checker.RegisterAPICheck("stooq", fetcher.BuildURL("aapl.us"), nil)
	checker.Start()

	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", checker.HTTPHandler())
		if err := http.ListenAndServe(healthAddr(), mux); err != nil {
			log.LogError(err, "Health endpoint failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := service.Run(ctx); err != nil {
		log.LogError(err, "Failed to start request consumer")
		os.Exit(1)
	}

	log.Info("Stock bot worker running",
		"requests_queue", cfg.Broker.StockRequestsQueue,
		"responses_queue", cfg.Broker.StockResponsesQueue,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down stock bot worker...")
	cancel()

	// Give in-flight handlers a moment to finish and nack cleanly.
	time.Sleep(2 * time.Second)
	log.Info("Stock bot worker exited gracefully")
}

func metricsAddr() string {
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		return addr
	}
	return ":9091"
}

func healthAddr() string {
	if addr := os.Getenv("HEALTH_ADDR"); addr != "" {
		return addr
	}
	return ":8082"
}
