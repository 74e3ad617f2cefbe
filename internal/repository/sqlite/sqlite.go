package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Repository represents a data repository that interacts with the database
// and provides logging capabilities. It holds a reference to the database
// and a logger instance for logging operations.
type Repository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewRepository creates a new instance of Repository with the provided storage path.
// It returns a pointer to the newly created Repository.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string) (*Repository, error) {
	// Open (or create if it doesn't exist) the database file.
	dtb, err := sql.Open("sqlite3", fmt.Sprintf("%s?_pragma=foreign_keys(1)", storagePath))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Check if the connection is actually established.
	if err = dtb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	// Perform the initial schema migration.
	if err = initSchema(ctx, dtb); err != nil {
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return &Repository{db: dtb, log: log}, nil
}

// initSchema creates the necessary tables if they don't already exist.
func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS competitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		base_url TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		competitor_id INTEGER NOT NULL REFERENCES competitors(id),
		asset_type TEXT NOT NULL,
		url TEXT NOT NULL,
		crawl_frequency TEXT NOT NULL,
		priority_threshold TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (competitor_id, url)
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL REFERENCES assets(id),
		content_hash TEXT NOT NULL,
		content_text TEXT NOT NULL DEFAULT '',
		metadata TEXT,
		fetch_status TEXT NOT NULL,
		http_status INTEGER NOT NULL DEFAULT 0,
		captured_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_asset_time ON snapshots (asset_id, captured_at);

	CREATE TABLE IF NOT EXISTS changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id INTEGER NOT NULL REFERENCES assets(id),
		snapshot_before_id INTEGER NOT NULL REFERENCES snapshots(id),
		snapshot_after_id INTEGER NOT NULL REFERENCES snapshots(id),
		status TEXT NOT NULL DEFAULT 'detected',
		change_type TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		why_it_matters TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL DEFAULT 0,
		reject_reason TEXT NOT NULL DEFAULT '',
		diff_payload TEXT NOT NULL DEFAULT '{}',
		detected_at TIMESTAMP NOT NULL,
		classified_at TIMESTAMP,
		UNIQUE (asset_id, snapshot_before_id, snapshot_after_id)
	);
	CREATE INDEX IF NOT EXISTS idx_changes_status_priority ON changes (status, priority);

	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		change_id INTEGER NOT NULL UNIQUE REFERENCES changes(id),
		priority TEXT NOT NULL,
		channel TEXT NOT NULL,
		delivery_mode TEXT NOT NULL,
		message_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		sent_at TIMESTAMP
	);
	`
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// NewForTest wraps an existing database handle. Tests use it to inject a
// mocked connection for failure scenarios.
func NewForTest(dtb *sql.DB, log *slog.Logger) *Repository {
	return &Repository{db: dtb, log: log}
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}
