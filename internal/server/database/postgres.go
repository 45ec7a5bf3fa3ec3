package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations contains all database migrations in order.
// Each migration has a version key and SQL to execute.
var migrations = []struct {
	Version string
	SQL     string
}{
	{
		Version: "000001_create_users",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				id            UUID         PRIMARY KEY,
				email         VARCHAR(255) NOT NULL UNIQUE,
				name          VARCHAR(255) NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		Version: "000002_create_procedures",
		SQL: `
			CREATE TABLE IF NOT EXISTS procedures (
				id           UUID         PRIMARY KEY,
				user_id      UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name         VARCHAR(255) NOT NULL,
				performed_at TIMESTAMPTZ  NOT NULL,
				hospital     VARCHAR(255) NOT NULL DEFAULT '',
				role         VARCHAR(20)  NOT NULL,
				category     VARCHAR(20)  NOT NULL,
				notes        TEXT         NOT NULL DEFAULT '',
				created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				updated_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_procedures_user_date
				ON procedures(user_id, performed_at DESC);
		`,
	},
	{
		Version: "000003_create_templates",
		SQL: `
			CREATE TABLE IF NOT EXISTS templates (
				id         UUID         PRIMARY KEY,
				user_id    UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name       VARCHAR(255) NOT NULL,
				category   VARCHAR(20)  NOT NULL,
				role       VARCHAR(20)  NOT NULL,
				notes      TEXT         NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_templates_user ON templates(user_id);
		`,
	},
	{
		Version: "000004_create_media_files",
		SQL: `
			CREATE TABLE IF NOT EXISTS media_files (
				id           UUID         PRIMARY KEY,
				user_id      UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				procedure_id UUID         REFERENCES procedures(id) ON DELETE SET NULL,
				category     VARCHAR(16)  NOT NULL,
				file_name    VARCHAR(255) NOT NULL,
				stored_name  VARCHAR(64)  NOT NULL,
				file_type    VARCHAR(16)  NOT NULL,
				size_bytes   BIGINT       NOT NULL,
				public_path  VARCHAR(512) NOT NULL,
				created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_media_files_user ON media_files(user_id);
			CREATE INDEX IF NOT EXISTS idx_media_files_procedure ON media_files(procedure_id);
			CREATE INDEX IF NOT EXISTS idx_media_files_orphans
				ON media_files(created_at) WHERE procedure_id IS NULL;
		`,
	},
}

// DB wraps a pgxpool connection pool and provides health checks and migrations.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database")
	return &DB{Pool: pool}, nil
}

// RunMigrations applies all pending database migrations in order.
func (db *DB) RunMigrations(ctx context.Context) error {
	// Create migrations tracking table
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		// Check if already applied
		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status for %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		// Execute migration in a transaction
		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
		}

		slog.Info("applied migration", "version", m.Version)
	}

	return nil
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
