package app

import (
	"context"
	"errors"

	"tecbook-auth/internal/config"
	"tecbook-auth/internal/db"
	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/logger"
	"tecbook-auth/internal/redis"
)

type Infra struct {
	DB        *db.DB
	Redis     *redis.Client
	Directory directory.Directory
}

// setupInfra connects the optional backing services. Without a DSN accounts
// live in memory; without Redis lookups go straight to the store.
func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	if cfg.DatabaseDSN != "" {
		database, err := db.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		infra.DB = database
		infra.Directory = directory.NewPostgres(database)
		logger.Info("database ready", nil)
	} else {
		infra.Directory = directory.NewMemory()
		logger.Warn("DATABASE_DSN not set, using in-memory accounts", nil)
	}

	if cfg.RedisAddr != "" {
		client, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		infra.Redis = client
		infra.Directory = directory.NewCache(infra.Directory, client, cfg.CacheTTL)
		logger.Info("redis ready", map[string]any{"cache_ttl_s": cfg.CacheTTL.Seconds()})
	}

	return infra, nil
}

func (i *Infra) Close() error {
	var errs []error
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	return errors.Join(errs...)
}
