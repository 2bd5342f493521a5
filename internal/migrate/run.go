// Package migrate applies the broker's embedded schema migrations.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migration is one embedded SQL file, identified by its filename stem.
type migration struct {
	version string
	file    string
}

// Run applies every embedded migration that has not been recorded yet, in
// filename order. Calling it repeatedly is a no-op once the schema is
// current.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var pending []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		pending = append(pending, migration{
			version: strings.TrimSuffix(e.Name(), ".sql"),
			file:    e.Name(),
		})
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].file < pending[j].file })

	for _, m := range pending {
		if applyErr := apply(ctx, db, m); applyErr != nil {
			return applyErr
		}
	}
	return nil
}

func alreadyApplied(ctx context.Context, db *sql.DB, m migration) (bool, error) {
	var applied bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)
	`, m.version).Scan(&applied)
	if err != nil {
		return false, fmt.Errorf("check migration %s: %w", m.file, err)
	}
	return applied, nil
}

// apply runs one migration and records it inside the same transaction, so a
// failed statement leaves no ledger entry behind.
func apply(ctx context.Context, db *sql.DB, m migration) error {
	applied, err := alreadyApplied(ctx, db, m)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	stmt, err := migrationsFS.ReadFile("migrations/" + m.file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.file, err)
	}

	logger := slog.Default().With("component", "migrations")
	logger.InfoContext(ctx, "applying migration", "version", m.version)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "migration rollback failed",
				"error", rollbackErr,
				"migration", m.file,
			)
		}
	}()

	if _, execErr := tx.ExecContext(ctx, string(stmt)); execErr != nil {
		return fmt.Errorf("exec migration %s: %w", m.file, execErr)
	}
	if _, recordErr := tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version) VALUES ($1)
	`, m.version); recordErr != nil {
		return fmt.Errorf("record migration %s: %w", m.file, recordErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit migration %s: %w", m.file, commitErr)
	}
	return nil
}
