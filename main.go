package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"productapi/internal/app"
	"productapi/internal/config"
	"productapi/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Listen()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error("Server stopped unexpectedly", zap.Error(err))
	case sig := <-quit:
		log.Info("Shutting down server", zap.String("signal", sig.String()))
	}

	if err := a.Shutdown(shutdownTimeout); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	log.Info("Server gracefully stopped")
}
