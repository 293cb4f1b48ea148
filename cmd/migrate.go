package cmd

import (
	"fmt"

	"github.com/weaverai/weaver/db"
	"github.com/weaverai/weaver/internal/config"
)

// runMigrate applies pending database migrations and exits.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := initLogger()
	logger.Info("applying database migrations", "database", cfg.PostgresDBName)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	fmt.Println("Database schema is up to date.")
	return nil
}
