package storage

import (
	"context"
	"fmt"
	"strings"

	"ProposalLens/internal/config"
	"ProposalLens/internal/ports"
)

// Open builds the store selected by cfg.Driver. The caller owns Close.
func Open(ctx context.Context, cfg config.CacheConfig) (ports.Store, error) {
	var (
		store ports.Store
		err   error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", config.DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = config.DefaultCachePath()
		}
		var s *SQLStore
		if s, err = OpenSQLite(ctx, path); err == nil {
			store = s
		}
	case config.DriverPostgres:
		var s *SQLStore
		if s, err = OpenPostgres(ctx, cfg.DSN); err == nil {
			store = s
		}
	case config.DriverRedis:
		var s *RedisStore
		if s, err = NewRedisStore(ctx, cfg.RedisURL, cfg.Prefix); err == nil {
			store = s
		}
	case config.DriverMemory:
		store = NewMemoryStore()
	default:
		err = fmt.Errorf("unknown cache driver %q (valid: sqlite, postgres, redis, memory)", cfg.Driver)
	}

	if err != nil {
		return nil, err
	}
	return store, nil
}
