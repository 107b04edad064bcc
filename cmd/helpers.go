package cmd

import (
	"fmt"

	"github.com/lepostier/lepostier/internal/catalog"
	"github.com/lepostier/lepostier/internal/config"
	"github.com/lepostier/lepostier/internal/db"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `lepostier init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// openDatabase opens and migrates the configured database.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}

func newPresenter(cfg *config.Config) *catalog.Presenter {
	return &catalog.Presenter{
		Media:         catalog.NewResolver(cfg.Media.Root, cfg.Media.URL),
		MemberCardURL: cfg.MemberCardURL,
	}
}
