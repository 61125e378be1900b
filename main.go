package main

import (
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweetshop/internal/app"
	"sweetshop/internal/config"

	"github.com/lmittmann/tint"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Error loading config: %v", err)
	}

	// --- Logger Setup ---
	slog.SetDefault(setupLogger(cfg))

	// --- Initialize Application ---
	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			slog.Error("error while releasing resources", slog.Any("error", err))
		}
	}()

	// --- Start RabbitMQ Consumer ---
	if err := application.StartConsumers(); err != nil {
		slog.Warn("failed to start item event consumer", slog.Any("error", err))
	}

	// --- Start HTTP Server ---
	slog.Info("starting server", slog.String("port", cfg.AppPort), slog.String("store", cfg.StoreDriver))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Fiber.Listen(cfg.AppPort)
	}()

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server failed", slog.Any("error", err))
		return
	}

	if err := application.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("error during fiber shutdown", slog.Any("error", err))
	}
	slog.Info("server gracefully stopped")
}

// setupLogger returns colored tint output for development and JSON otherwise.
func setupLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
