// Package main is the entry point for the spreadscan service. It serves the scan API,
// streams live scans over websockets, and runs the configured scan batch on a schedule.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/aristath/spreadscan/internal/config"
	"github.com/aristath/spreadscan/internal/server"
	"github.com/aristath/spreadscan/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting spreadscan")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}
