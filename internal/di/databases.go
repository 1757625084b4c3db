package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/spreadscan/internal/config"
	"github.com/aristath/spreadscan/internal/database"
)

// InitializeDatabases opens the price store and applies its schema
func InitializeDatabases(cfg *config.Config, profile database.DatabaseProfile, log zerolog.Logger) (*Container, error) {
	priceDB, err := database.New(database.Config{
		Path:    cfg.PriceDBPath,
		Profile: profile,
		Name:    "prices",
		Driver:  cfg.PriceDBDriver,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize price database: %w", err)
	}

	if err := priceDB.Migrate(); err != nil {
		priceDB.Close()
		return nil, fmt.Errorf("failed to migrate price database: %w", err)
	}

	log.Info().
		Str("path", priceDB.Path()).
		Str("driver", priceDB.Driver()).
		Str("profile", string(profile)).
		Msg("Price database ready")

	return &Container{PriceDB: priceDB}, nil
}
