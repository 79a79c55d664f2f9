package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/reportops/core/internal/config"
	"github.com/reportops/core/pkg/logger"
	"github.com/reportops/core/pkg/server"
)

func main() {
	// Setup structured logging
	logger.SetupLogger()
	log := logger.New("report-api")

	// Load configuration
	cfg := config.Load()

	// Create and configure server
	srv, err := server.New(cfg, log)
	if err != nil {
		log.Fatal().
			Err(err).
			Str("action", "server_creation_failed").
			Msg("Failed to create server")
	}

	// Restore schedules and start background collection
	srv.Bootstrap(context.Background())

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().
				Err(err).
				Str("action", "server_failed").
				Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Str("action", "shutdown").Msg("Shutting down report service")
	srv.Close()
}
