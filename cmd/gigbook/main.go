package main

import (
	"context"
	"os"

	_ "github.com/kirinyoku/gigbook/docs"
	"github.com/kirinyoku/gigbook/internal/app"
	"github.com/kirinyoku/gigbook/internal/config"
	"github.com/kirinyoku/gigbook/internal/logging"
)

// @title Gigbook API
// @version 1.0
// @description Booking, availability and contract negotiation for artists and venues.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger := logging.New(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	})

	cfg, err := config.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	logger = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create application")
	}

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("application finished with error")
		os.Exit(1)
	}
}
