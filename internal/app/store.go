package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/skyseat/internal/catalog"
	"github.com/kirinyoku/skyseat/internal/config"
	"github.com/kirinyoku/skyseat/internal/domain"
	"github.com/kirinyoku/skyseat/internal/postgres"
	"github.com/kirinyoku/skyseat/internal/repository"
	"github.com/kirinyoku/skyseat/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/skyseat/internal/repository/postgres"
)

// OpenStore builds the configured repository.Store. For postgres it opens
// the pool and applies the schema; the returned func releases the pool.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	const op = "app.OpenStore"

	if cfg.Storage.Backend != config.StoragePostgres {
		logger.Info("using in-memory storage")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := postgres.New(ctx, postgres.Config{
		DSN: postgres.DSN(
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.Name,
			cfg.Postgres.SSLMode,
		),
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	store := postgresrepo.NewStore(pool, cfg.Lock.Timeout)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("%s:%w", op, err)
	}

	logger.Info("using postgres storage", "host", cfg.Postgres.Host, "db", cfg.Postgres.Name)
	return store, pool.Close, nil
}

// loadCatalog reads the seed catalog, or returns nil when none is configured.
func loadCatalog(cfg *config.Config) (*domain.Catalog, error) {
	if cfg.Catalog.Path == "" {
		return nil, nil
	}
	return catalog.Load(cfg.Catalog.Path)
}
