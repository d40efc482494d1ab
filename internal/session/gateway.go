package session

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"task-list/internal/config"
	"task-list/internal/db"
	"task-list/pkg/persist"
)

// OpenGateway picks the storage for cfg: PostgreSQL when a database URL is
// configured, otherwise the JSON data file. The returned close func releases
// any held resources and is never nil.
func OpenGateway(ctx context.Context, cfg *config.Config) (persist.Gateway, func(), error) {
	if cfg.DatabaseURL == "" {
		return persist.NewFileStore(cfg.DataFile), func() {}, nil
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	store := persist.NewPgStore(pool)
	if err := store.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure task_list table: %w", err)
	}
	log.Info("using postgres storage")
	return store, pool.Close, nil
}
