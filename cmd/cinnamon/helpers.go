package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/cinnamon/internal/common"
	"github.com/Veraticus/cinnamon/internal/config"
	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/Veraticus/cinnamon/internal/service"
	"github.com/Veraticus/cinnamon/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/cinnamon/cinnamon.db"
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("could not open database at %s", dbPath), err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadTaxonomy returns the stored taxonomy, seeding the built-in default
// when none has been persisted yet.
func loadTaxonomy(ctx context.Context, store service.Storage) (model.Taxonomy, error) {
	taxonomy, err := store.GetTaxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	if len(taxonomy) > 0 {
		return taxonomy, nil
	}

	taxonomy = model.DefaultTaxonomy()
	if err := store.SaveTaxonomy(ctx, taxonomy); err != nil {
		return nil, fmt.Errorf("failed to seed default taxonomy: %w", err)
	}
	return taxonomy, nil
}
