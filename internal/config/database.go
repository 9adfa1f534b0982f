package config

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"CollabChatAPI/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPgxPool(cfg *AppConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), cfg.DBConnectionString())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if cfg.DBMigrate {
		if err := runMigrations(context.Background(), pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	slog.Info("Connected to Postgres", "host", cfg.DBHost, "database", cfg.DBName)
	return pool, nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := db.Migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		stmt, err := db.Migrations.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(stmt)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		slog.Info("Applied migration", "file", name)
	}

	return nil
}
