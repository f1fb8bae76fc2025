package db

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"userhub/internal/config"
	"userhub/internal/model"
	"userhub/internal/repository"
)

// Store is an open user store and the means to release it.
type Store struct {
	Driver string
	Users  repository.UserRepository

	close func(ctx context.Context) error
}

// Close releases the underlying connection. It is safe on a memory store.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects the store selected by cfg.StoreDriver and prepares its schema.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		gormDB, err := NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		return gormStore(cfg.StoreDriver, gormDB, logger)

	case config.DriverPostgres:
		gormDB, err := NewPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return gormStore(cfg.StoreDriver, gormDB, logger)

	case config.DriverMongo:
		client, err := NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		database := client.Database(cfg.MongoDatabase)
		if err := repository.EnsureUserIndexes(ctx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("store ready", "driver", cfg.StoreDriver, "database", cfg.MongoDatabase)
		return &Store{
			Driver: cfg.StoreDriver,
			Users:  repository.NewMongoUserRepository(database),
			close:  client.Disconnect,
		}, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return &Store{
			Driver: cfg.StoreDriver,
			Users:  repository.NewMemoryUserRepository(),
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func gormStore(driver string, gormDB *gorm.DB, logger *slog.Logger) (*Store, error) {
	if err := Migrate(gormDB); err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("%s pool: %w", driver, err)
	}
	logger.Info("store ready", "driver", driver)
	return &Store{
		Driver: driver,
		Users:  repository.NewUserRepository(gormDB),
		close: func(context.Context) error {
			return sqlDB.Close()
		},
	}, nil
}

// Migrate creates or updates the users table.
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
