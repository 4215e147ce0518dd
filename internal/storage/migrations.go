package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial client knowledge schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS client_knowledge (
					id TEXT PRIMARY KEY,
					client_id TEXT NOT NULL,
					key TEXT NOT NULL,
					subject TEXT NOT NULL DEFAULT '',
					value TEXT NOT NULL,
					confirmed INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL,
					UNIQUE (client_id, key, subject)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_client_knowledge_lookup ON client_knowledge(client_id, key)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add learning suggestions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS learning_suggestions (
					id TEXT PRIMARY KEY,
					client_id TEXT NOT NULL,
					key TEXT NOT NULL,
					subject TEXT NOT NULL DEFAULT '',
					value TEXT NOT NULL,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'rejected')),
					created_at DATETIME NOT NULL,
					resolved_at DATETIME
				)`,
				`CREATE INDEX IF NOT EXISTS idx_learning_suggestions_client ON learning_suggestions(client_id, status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Prevent duplicate pending suggestions",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE UNIQUE INDEX IF NOT EXISTS idx_learning_suggestions_pending
				ON learning_suggestions(client_id, key, subject)
				WHERE status = 'pending'
			`)
			return err
		},
	},
	{
		Version:     4,
		Description: "Add learning observations",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS learning_observations (
					client_id TEXT NOT NULL,
					kind TEXT NOT NULL,
					source TEXT NOT NULL,
					subject TEXT NOT NULL,
					column_name TEXT NOT NULL DEFAULT '',
					class TEXT NOT NULL DEFAULT '',
					tag TEXT NOT NULL DEFAULT '',
					column_index INTEGER NOT NULL DEFAULT 0,
					amount TEXT NOT NULL DEFAULT '0',
					recorded_at DATETIME NOT NULL,
					PRIMARY KEY (client_id, kind, source, subject)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_learning_observations_client ON learning_observations(client_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}
