package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/config"
	"github.com/atu-ZeRo1227/ohagoru-bot/pkg/db"
	"github.com/atu-ZeRo1227/ohagoru-bot/services/reservation-bot/internal/domain"
)

// Store persists the whole reservation collection as one unit. Callers load,
// mutate and save within a single operation; there is no incremental update.
type Store interface {
	Load(ctx context.Context) (domain.Store, error)
	Save(ctx context.Context, s domain.Store) error
}

// Open builds the store selected by STORE_DRIVER.
func Open(ctx context.Context, cfg config.App, log *slog.Logger) (Store, func() error, error) {
	switch cfg.StoreDriver {
	case "file":
		return NewJSONFileStore(cfg.DataFile, log), func() error { return nil }, nil
	case "sqlite", "postgres":
		gdb, err := db.Open(cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		s := NewGormStore(gdb)
		if err := s.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		closer := func() error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		return s, closer, nil
	case "redis":
		pool := NewRedisPool(cfg.RedisAddr)
		return NewRedisStore(pool, cfg.RedisKey, log), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
