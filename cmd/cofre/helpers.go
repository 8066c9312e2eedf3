package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/cofre/internal/classification"
	"github.com/Veraticus/cofre/internal/engine"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/recurring"
	"github.com/Veraticus/cofre/internal/service"
	"github.com/Veraticus/cofre/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	store.SetRetryOptions(service.RetryOptions{MaxAttempts: cfg.Database.BusyRetries})

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// currentActor is the identity given by --user/--family or COFRE_ACTOR_*.
func currentActor() (model.Actor, error) {
	actor := model.Actor{
		UserID:   strings.TrimSpace(viper.GetString("actor.user")),
		FamilyID: strings.TrimSpace(viper.GetString("actor.family")),
	}
	if !actor.Authenticated() {
		return actor, fmt.Errorf("no user given: pass --user or set COFRE_ACTOR_USER")
	}
	return actor, nil
}

func newEngine(store *storage.SQLiteStorage) *engine.Engine {
	return engine.NewWithConfig(store, classification.MustDefault(), engine.NoopHeuristic{}, engine.Config{
		CacheTTL:     cfg.Engine.CacheTTL,
		StrongTokens: cfg.Engine.StrongTokens,
	})
}

func newHistorySuggester(store *storage.SQLiteStorage) *engine.HistorySuggester {
	return engine.NewHistorySuggester(store, classification.MustDefault(), engine.HistoryConfig{
		CacheTTL:     cfg.Engine.CacheTTL,
		Window:       cfg.History.Window,
		StrongTokens: cfg.Engine.StrongTokens,
	})
}

func newLearner(store *storage.SQLiteStorage, invalidators ...engine.Invalidator) *engine.Learner {
	return engine.NewLearner(store, engine.LearnerConfig{
		Policy:         cfg.Learning.ConflictPolicy,
		SeedConfidence: cfg.Learning.SeedConfidence,
		StrongTokens:   cfg.Engine.StrongTokens,
	}, invalidators...)
}

func newDetector(store *storage.SQLiteStorage) (*recurring.Detector, error) {
	return recurring.NewDetector(recurring.Deps{Store: store})
}
