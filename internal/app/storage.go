package app

import (
	"context"
	"fmt"

	"github.com/m3rciful/storybot/core/database"
	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/config"
	"github.com/m3rciful/storybot/internal/session"
	"github.com/m3rciful/storybot/internal/storage/memory"
	"github.com/m3rciful/storybot/internal/storage/mongo"
	"github.com/m3rciful/storybot/internal/storage/postgres"
)

// Backend is a store that holds both the catalog and the sessions.
type Backend interface {
	catalog.Store
	session.Backend
}

// storage is an opened backend plus the hooks bootstrap needs.
type storage struct {
	backend Backend
	close   func() error
	migrate func(ctx context.Context) error
}

// openStorage connects the configured driver. Migrations are returned
// rather than run so the caller controls ordering.
func openStorage(ctx context.Context, cfg *config.Config) (storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return storage{}, err
		}
		return storage{
			backend: postgres.New(db),
			close:   db.Close,
			migrate: func(ctx context.Context) error { return database.RunMigrations(ctx, cfg.Database) },
		}, nil
	case config.DriverMongo:
		db, err := database.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return storage{}, err
		}
		store := mongo.New(db)
		return storage{
			backend: store,
			close:   func() error { return db.Client().Disconnect(context.Background()) },
			migrate: func(ctx context.Context) error { return store.EnsureIndexes(ctx, cfg.Bot.SessionTTL()) },
		}, nil
	case config.DriverMemory:
		return storage{backend: memory.New(), close: func() error { return nil }}, nil
	}
	return storage{}, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
}
