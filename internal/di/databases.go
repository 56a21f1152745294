package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/config"
	"github.com/aristath/stockfolio/internal/database"
)

// InitializeDatabase opens stockfolio.db and applies its schema
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileLedger, // capital and holdings are financial records
		Name:    "stockfolio",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stockfolio database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate stockfolio database: %w", err)
	}

	log.Info().Str("path", db.Path()).Msg("Database initialized")
	return &Container{DB: db}, nil
}
