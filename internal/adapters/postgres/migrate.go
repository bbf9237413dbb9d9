package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Migrate applies (up) or reverts (down) the SQL files in dir. Files are
// named NNN_name.up.sql / NNN_name.down.sql; applied versions are tracked in
// schema_migrations. down reverts only the most recent version.
func Migrate(ctx context.Context, db *DB, dir, direction string) error {
	if _, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	switch direction {
	case "up":
		return migrateUp(ctx, db, dir)
	case "down":
		return migrateDown(ctx, db, dir)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
}

func migrateUp(ctx context.Context, db *DB, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, f := range files {
		version := strings.TrimSuffix(filepath.Base(f), ".up.sql")

		var applied bool
		if err := db.Pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("check %s: %w", version, err)
		}
		if applied {
			continue
		}

		if err := execFile(ctx, db, f, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			return err
		}
		slog.Info("migration applied", "version", version)
	}
	return nil
}

func migrateDown(ctx context.Context, db *DB, dir string) error {
	var version string
	err := db.Pool.QueryRow(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version)
	if err != nil {
		return fmt.Errorf("latest migration: %w", err)
	}

	f := filepath.Join(dir, version+".down.sql")
	if err := execFile(ctx, db, f, `DELETE FROM schema_migrations WHERE version = $1`, version); err != nil {
		return err
	}
	slog.Info("migration reverted", "version", version)
	return nil
}

// execFile runs a migration file and its bookkeeping statement in one
// transaction.
func execFile(ctx context.Context, db *DB, path, bookkeeping, version string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, string(data)); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	if _, err := tx.Exec(ctx, bookkeeping, version); err != nil {
		return fmt.Errorf("record %s: %w", version, err)
	}
	return tx.Commit(ctx)
}
