// Package bootstrap opens the storage backend and lineage locker selected
// by configuration. It is shared by the server and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"lifeplan/internal/config"
	"lifeplan/internal/domain/repositories"
	"lifeplan/internal/lock"
	"lifeplan/internal/repository/postgres"
	"lifeplan/internal/repository/sqlite"
)

// Storage bundles the repositories of one backend
type Storage struct {
	Driver     string
	Documents  repositories.DocumentRepository
	Households repositories.HouseholdRepository
	TxManager  repositories.TransactionManager
	Ping       func(ctx context.Context) error
	close      func()
}

// Close releases the underlying connections
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage connects to the configured database. Postgres migrations are
// applied when migrate is true; the SQLite schema is always created.
func OpenStorage(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (*Storage, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
		if err != nil {
			return nil, err
		}
		tables := postgres.NewTableNames(cfg.TablePrefix)
		if migrate {
			if err := postgres.ApplyMigrations(ctx, pool, tables, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}

		logger.Info("database connected", "driver", cfg.DatabaseDriver, "table_prefix", cfg.TablePrefix)
		return &Storage{
			Driver:     cfg.DatabaseDriver,
			Documents:  postgres.NewDocumentRepository(repoConfig),
			Households: postgres.NewHouseholdRepository(repoConfig),
			TxManager:  postgres.NewTransactionManager(repoConfig),
			Ping:       pool.Ping,
			close:      pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		repoConfig := &sqlite.RepositoryConfig{DB: db, Logger: logger}

		logger.Info("database connected", "driver", cfg.DatabaseDriver, "path", cfg.SQLitePath)
		return &Storage{
			Driver:     cfg.DatabaseDriver,
			Documents:  sqlite.NewDocumentRepository(repoConfig),
			Households: sqlite.NewHouseholdRepository(repoConfig),
			TxManager:  sqlite.NewTransactionManager(repoConfig),
			Ping:       db.PingContext,
			close:      func() { db.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
}

// Locker is a lineage locker plus an optional health probe
type Locker struct {
	lock.Locker
	Ping  func(ctx context.Context) error
	close func() error
}

// Close releases the locker's connections
func (l *Locker) Close() error {
	if l.close != nil {
		return l.close()
	}
	return nil
}

// NewLocker returns a Redis locker when REDIS_URL is set, otherwise a
// process-local one.
func NewLocker(cfg *config.Config, logger *slog.Logger) (*Locker, error) {
	opts := lock.DefaultOptions()
	opts.TTL = cfg.LockTTL

	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, lineage locks are process-local")
		return &Locker{Locker: lock.NewLocalLocker(opts)}, nil
	}

	rl, err := lock.NewRedisLocker(cfg.RedisURL, opts)
	if err != nil {
		return nil, fmt.Errorf("create redis locker: %w", err)
	}
	logger.Info("lineage locks use redis", "ttl", cfg.LockTTL)
	return &Locker{Locker: rl, Ping: rl.Ping, close: rl.Close}, nil
}
