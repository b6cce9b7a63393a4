/*
Package storage provides SQLite database migrations and helper functions.

This file contains schema definitions and migration logic for the storage
layer.
*/
package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	// Run migrations in order
	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "interpretation_cache", up: s.migration002InterpretationCache},
	}

	for _, m := range migrations {
		if version < m.version {
			s.logger.Debug("running migration", zap.Int("version", m.version), zap.String("name", m.name))
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// migration001InitialSchema creates the run tables.
func (s *SQLiteStorage) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			input TEXT NOT NULL,
			config_hash TEXT NOT NULL,
			events INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			suits INTEGER NOT NULL,
			status TEXT NOT NULL,
			degraded INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_runs_started
		ON runs(started_at DESC)
	`); err != nil {
		return fmt.Errorf("failed to create runs index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_suits (
			run_id TEXT NOT NULL,
			suit_id INTEGER NOT NULL,
			label TEXT NOT NULL,
			mass REAL NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, suit_id)
		)
	`); err != nil {
		return fmt.Errorf("failed to create run_suits table: %w", err)
	}

	return nil
}

// migration002InterpretationCache creates the interpreter response cache.
func (s *SQLiteStorage) migration002InterpretationCache() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS interpretation_cache (
			cache_key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create interpretation_cache table: %w", err)
	}
	return nil
}
