package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/mfitchett/tally/internal/classifier"
	"github.com/mfitchett/tally/internal/config"
	"github.com/mfitchett/tally/internal/engine"
	"github.com/mfitchett/tally/internal/service"
	"github.com/mfitchett/tally/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initEngine builds a classification engine on top of the given storage,
// applying any classifier overrides from config.
func initEngine(store service.Storage) *engine.Engine {
	cfg := classifier.DefaultConfig()
	if v := viper.GetInt("classifier.min_training_samples"); v > 0 {
		cfg.MinTrainingSamples = v
	}
	if v := viper.GetInt("classifier.vocabulary_size"); v > 0 {
		cfg.VocabularySize = v
	}
	if v := viper.GetFloat64("classifier.auto_approve_threshold"); v > 0 {
		cfg.AutoApproveThreshold = v
	}
	return engine.NewWithConfig(store, store, store, cfg)
}
