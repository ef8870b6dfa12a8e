package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/router"
	"chat-relay/runtime"
	"chat-relay/services"
	"chat-relay/transport/ws"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	// The main function acts as a thin wrapper. Its only responsibility is
	// to call run() and handle the OS exit code, so every defer (store
	// handles, subscriber connections) executes before the process exits.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Relational directory store
	db, err := gorm.Open(sqlite.Open(config.DatabasePath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return exitRuntime, fmt.Errorf("directory store opening failed: %w", err)
	}
	directory := repositories.NewDirectoryRepository(db, logger)
	if err := directory.Migrate(); err != nil {
		return exitRuntime, fmt.Errorf("directory migration failed: %w", err)
	}
	defer func() {
		logger.Info("Closing directory store...")
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	// 3. Key-value store (history + backbone). An unreachable store is not
	// fatal: history degrades to empty and the backbone only matters once
	// a second process joins the deployment.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("History store unreachable at startup, rooms start without history", "error", err)
	}
	defer func() {
		logger.Info("Closing history store...")
		_ = redisClient.Close()
	}()

	history := repositories.NewHistoryRepository(redisClient, logger, config.HistoryLimit, config.HistoryTTL)

	// 4. Broadcast backbone
	var pubsub contract.IPubSub
	if config.Standalone {
		logger.Info("Standalone mode, fan-out stays in-process")
		pubsub = repositories.NewLocalPubSub()
	} else {
		redisPubSub := repositories.NewRedisPubSub(redisClient, logger)
		redisPubSub.Start(ctx)
		pubsub = redisPubSub
	}
	defer func() {
		_ = pubsub.Close()
	}()

	// 5. Coordination layer
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(logger, registry, pubsub, config.DeliveryTimeout)
	lifecycle := runtime.NewLifecycle(logger, registry, broadcaster, history, config.HistoryLimit, config.MultiRoom)
	chatService := services.NewChatService(logger, directory, history, broadcaster, config.HistoryLimit)

	var authorizer contract.IAuthorizer = auth.AllowAll{}
	if config.AuthSecret != "" {
		authorizer = auth.NewJWTAuthorizer(config.AuthSecret)
	} else {
		logger.Warn("No AUTH_SECRET set, every request is accepted (development only)")
	}

	dispatcher := router.New(logger, authorizer, chatService, lifecycle)
	server := ws.NewServer(logger, dispatcher, lifecycle, config.AllowedOrigin, config.ConnectionBufferSize)

	// 6. HTTP surface
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:    address,
		Handler: server.Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Relay listening", "address", address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful shutdown: stop the listener, let in-flight handlers
	// finish, then close the websocket clients Shutdown leaves alone.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Forced shutdown", "error", err)
	}
	server.CloseConnections()
	logger.Info("Relay stopped cleanly")

	return exitOK, nil
}
