package app

import (
	"fmt"

	"github.com/conduit-lang/restifier/internal/cli/config"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/conduit-lang/restifier/internal/orm/store/memory"
	"github.com/conduit-lang/restifier/internal/orm/store/redisstore"
	"github.com/conduit-lang/restifier/internal/orm/store/sqlstore"
	"go.uber.org/zap"
)

// OpenStore connects the backend selected by cfg.Driver
func OpenStore(cfg config.StoreConfig, logger *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), nil

	case "redis":
		s, err := redisstore.Open(redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		s, err := sqlstore.Open(cfg.Driver, cfg.DSN, sqlstore.WithLogger(logger.Named("sqlstore")))
		if err != nil {
			return nil, err
		}
		db := s.DB()
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("connect to %s: %w", cfg.Driver, err)
		}
		return s, nil
	}
}
