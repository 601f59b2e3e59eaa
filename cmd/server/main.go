package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anargu/StockChatRoomWeb/broker"
	"github.com/anargu/StockChatRoomWeb/chat"
	"github.com/anargu/StockChatRoomWeb/chat/models"
	"github.com/anargu/StockChatRoomWeb/pkg/config"
	"github.com/anargu/StockChatRoomWeb/pkg/health"
	"github.com/anargu/StockChatRoomWeb/pkg/logger"
	"github.com/anargu/StockChatRoomWeb/pkg/observability"
	"github.com/anargu/StockChatRoomWeb/pkg/secrets"
	"github.com/anargu/StockChatRoomWeb/shared/redis"
)

func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting chat server", "env", cfg.Server.Env)

	// Secrets can come from Vault in production; environment variables
	// remain the fallback.
	vaultManager, err := secrets.NewVaultManager(log)
	if err != nil {
		log.LogError(err, "Failed to initialize secrets manager")
		os.Exit(1)
	}
	secretsCtx, secretsCancel := context.WithTimeout(context.Background(), 10*time.Second)
	cfg.JWT.Secret = vaultManager.GetSecretWithDefault(secretsCtx, "jwt-secret", cfg.JWT.Secret)
	cfg.Broker.URL = vaultManager.GetSecretWithDefault(secretsCtx, "rabbitmq-url", cfg.Broker.URL)
	cfg.Database.Password = vaultManager.GetSecretWithDefault(secretsCtx, "db-password", cfg.Database.Password)
	secretsCancel()

	shutdownTracing := observability.SetupTracing("stockchat-server")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics(metricsAddr())

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(&models.User{}, &models.ChatRoom{}, &models.ChatMessage{}); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	redisClient := redis.NewRedisClient()
	if err := redisClient.Ping(); err != nil {
		log.Warn("Redis is unreachable, caching disabled", "error", err.Error())
		redisClient = nil
	}

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

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error { return config.TestConnection(db) })
	checker.RegisterBrokerCheck(messageBroker.Ping)
	checker.Start()

	container := chat.NewContainer(cfg, db, messageBroker, redisClient, checker, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go container.Hub.Run(ctx)

	if err := container.StockRouter.Run(ctx); err != nil {
		log.LogError(err, "Failed to start stock response consumer")
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      container.Router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}

func metricsAddr() string {
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		return addr
	}
	return ":9090"
}
