package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
	"github.com/phrazzld/taskdeck-api/internal/config"
	"github.com/phrazzld/taskdeck-api/internal/platform/bolt"
	"github.com/phrazzld/taskdeck-api/internal/platform/memory"
	"github.com/phrazzld/taskdeck-api/internal/platform/postgres"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// setupAppDatabase opens the postgres connection pool and verifies it with a ping.
func setupAppDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}

// setupTaskStore builds the task store selected by store.backend. The
// returned close function releases whatever the backend holds open.
func setupTaskStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.TaskStore, func() error, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		db, err := setupAppDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewPostgresTaskStore(db, logger), db.Close, nil

	case config.StoreBackendBolt:
		s, err := bolt.Open(cfg.Store.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("bolt task store opened", "path", cfg.Store.Path)
		return s, s.Close, nil

	case config.StoreBackendMemory:
		logger.Warn("using in-memory task store, tasks are lost on restart")
		return memory.NewTaskStore(logger), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
