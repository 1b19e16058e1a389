package storage

import (
	"context"
	"database/sql"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const migrationV1Up = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    root_path TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    created_count INTEGER NOT NULL DEFAULT 0,
    overwritten_count INTEGER NOT NULL DEFAULT 0,
    unchanged_count INTEGER NOT NULL DEFAULT 0,
    applied BOOLEAN NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root_path, finished_at);

CREATE TABLE IF NOT EXISTS stubs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    init_path TEXT NOT NULL,
    stub_path TEXT NOT NULL,
    bucket TEXT NOT NULL CHECK (bucket IN ('create', 'overwrite', 'unchanged')),
    symbol_count INTEGER NOT NULL DEFAULT 0,
    body_hash BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE,
    UNIQUE(run_id, stub_path)
);

CREATE INDEX IF NOT EXISTS idx_stubs_run ON stubs(run_id);
`

const migrationV1Down = `
DROP TABLE IF EXISTS stubs;
DROP TABLE IF EXISTS runs;
DROP TABLE IF EXISTS schema_version;
`

const migrationV11Up = `
CREATE TABLE IF NOT EXISTS stub_symbols (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stub_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    FOREIGN KEY (stub_id) REFERENCES stubs(id) ON DELETE CASCADE,
    UNIQUE(stub_id, name)
);

CREATE INDEX IF NOT EXISTS idx_stub_symbols_name ON stub_symbols(name);
`

const migrationV11Down = `
DROP TABLE IF EXISTS stub_symbols;
`

// CurrentVersion returns the highest applied schema version, 0.0.0 for a
// fresh database
func CurrentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	current := semver.MustParse("0.0.0")

	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return current, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to check schema_version table")
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read schema_version")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid schema version %s", raw)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		version, err := semver.NewVersion(migration.Version)
		if err != nil {
			return errors.Wrapf(err, "invalid migration version %s", migration.Version)
		}
		if !current.LessThan(version) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", migration.Version)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return errors.Wrapf(err, "failed to record migration %s", migration.Version)
		}
		current = version
	}
	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == current.Original() {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return errors.Newf("no migration to roll back at version %s", current)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return errors.Wrapf(err, "failed to roll back migration %s", migration.Version)
	}
	// the 1.0.0 down script drops schema_version itself
	if migration.Version == AllMigrations[0].Version {
		return nil
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return errors.Wrapf(err, "failed to remove migration record %s", migration.Version)
	}
	return nil
}
