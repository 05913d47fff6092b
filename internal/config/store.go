package config

import (
	"context"
	"fmt"
	"log"

	"catalog-service/internal/store"
)

// CatalogBackend is the opened catalog store with its probe and cleanup
type CatalogBackend struct {
	Store store.CatalogStore
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenCatalogStore connects the store selected by STORE_DRIVER
func OpenCatalogStore(ctx context.Context, cfg *Config) (*CatalogBackend, error) {
	switch cfg.StoreDriver {
	case StoreDriverMongo:
		client, db, err := InitMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ms := store.NewMongoStore(db)
		if err := ms.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create mongodb indexes: %w", err)
		}
		log.Println("✓ MongoDB catalog store connected")
		return &CatalogBackend{
			Store: ms,
			Ping: func(ctx context.Context) error {
				return client.Ping(ctx, nil)
			},
			Close: func() {
				_ = client.Disconnect(context.Background())
			},
		}, nil
	case StoreDriverPostgres:
		db, err := InitDB(cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		log.Println("✓ PostgreSQL catalog store connected")
		return &CatalogBackend{
			Store: store.NewGormStore(db),
			Ping:  sqlDB.PingContext,
			Close: func() {
				_ = sqlDB.Close()
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
}
