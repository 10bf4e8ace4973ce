package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.up.sql
var migrationFiles embed.FS

const prefixPlaceholder = "{{prefix}}"

// ApplyMigrations runs every embedded *.up.sql file not yet recorded in the
// migrations table, in name order, one transaction per file.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	if err := ensureMigrationsTable(ctx, pool, tables); err != nil {
		return err
	}

	files, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		version := strings.TrimPrefix(file, "migrations/")

		var exists bool
		query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE version = $1)`, tables.Migrations)
		if err := pool.QueryRow(ctx, query, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if exists {
			continue
		}

		contents, err := migrationFiles.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", version, err)
		}
		sql := strings.ReplaceAll(string(contents), prefixPlaceholder, tables.Prefix)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", version, err)
		}

		if _, err := tx.Exec(ctx, sql); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("execute migration %s: %w", version, err)
		}

		record := fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, tables.Migrations)
		if _, err := tx.Exec(ctx, record, version); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %s: %w", version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %s: %w", version, err)
		}

		logger.Info("migration applied", "version", version, "prefix", tables.Prefix)
	}

	return nil
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	_, err := pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, tables.Migrations))
	if err != nil {
		return fmt.Errorf("ensure %s: %w", tables.Migrations, err)
	}
	return nil
}

// DropAllTables drops every table in reverse dependency order
func DropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	for _, table := range []string{
		tables.Documents,
		tables.HouseholdMembers,
		tables.Households,
		tables.Migrations,
	} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		logger.Info("table dropped", "table", table)
	}
	return nil
}
