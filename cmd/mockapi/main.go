// Package main runs the in-memory mock backend.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gptchat/config"
	"github.com/xiaot623/gptchat/domain"
	"github.com/xiaot623/gptchat/logging"
	"github.com/xiaot623/gptchat/mockapi"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	backend := mockapi.NewBackend()
	assistant := backend.AddAssistant("", domain.Assistant{
		Name:   "Chat Bot",
		Public: true,
		Config: domain.AssistantConfig{Configurable: map[string]interface{}{"type": "chatbot"}},
	})

	server := mockapi.NewServer(backend,
		mockapi.WithLogger(logger),
		mockapi.WithRequestLog(),
		mockapi.WithChunkDelay(50*time.Millisecond),
	)

	addr := fmt.Sprintf(":%d", cfg.MockAPIPort)
	go func() {
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start mock backend", zap.Error(err))
		}
	}()
	logger.Info("mock backend started",
		zap.String("addr", addr),
		zap.String("assistant_id", assistant.AssistantID))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down mock backend")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown gracefully", zap.Error(err))
	}
}
