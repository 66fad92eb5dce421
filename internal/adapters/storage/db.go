package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	sql     string
}

// migrations are applied in order; never edit a released entry, append a new one.
var migrations = []migration{
	{1, "initial schema", `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		full_name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		decided_by TEXT,
		decided_at TEXT,
		decision_note TEXT NOT NULL DEFAULT '',
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		password_change_required INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS referee_profile (
		account_id TEXT PRIMARY KEY,
		license_level TEXT NOT NULL,
		license_number TEXT NOT NULL DEFAULT '',
		region TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL,
		FOREIGN KEY (account_id) REFERENCES account(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS event (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		venue TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		level TEXT NOT NULL,
		referee_quota INTEGER NOT NULL,
		status TEXT NOT NULL,
		submitted_by TEXT NOT NULL,
		decided_by TEXT,
		decided_at TEXT,
		decision_note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT,
		FOREIGN KEY (submitted_by) REFERENCES account(id)
	);

	CREATE TABLE IF NOT EXISTS assignment (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		referee_id TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		assigned_by TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		responded_at TEXT,
		updated_at TEXT,
		UNIQUE (event_id, referee_id),
		FOREIGN KEY (event_id) REFERENCES event(id),
		FOREIGN KEY (referee_id) REFERENCES account(id)
	);

	CREATE TABLE IF NOT EXISTS honor (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		referee_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		receipt_key TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		verified_by TEXT,
		verified_at TEXT,
		rejection_reason TEXT NOT NULL DEFAULT '',
		paid_at TEXT,
		UNIQUE (event_id, referee_id),
		FOREIGN KEY (event_id) REFERENCES event(id),
		FOREIGN KEY (referee_id) REFERENCES account(id)
	);

	CREATE TABLE IF NOT EXISTS forum_topic (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		author_id TEXT NOT NULL,
		pinned INTEGER NOT NULL DEFAULT 0,
		locked INTEGER NOT NULL DEFAULT 0,
		hidden INTEGER NOT NULL DEFAULT 0,
		reply_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		last_activity_at TEXT NOT NULL,
		FOREIGN KEY (author_id) REFERENCES account(id)
	);

	CREATE TABLE IF NOT EXISTS forum_reply (
		id TEXT PRIMARY KEY,
		topic_id TEXT NOT NULL,
		author_id TEXT NOT NULL,
		body TEXT NOT NULL,
		hidden INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		FOREIGN KEY (topic_id) REFERENCES forum_topic(id) ON DELETE CASCADE,
		FOREIGN KEY (author_id) REFERENCES account(id)
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT,
		next_attempt_at TEXT,
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_email TEXT NOT NULL DEFAULT '',
		actor_role TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		resource_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS revoked_token (
		jti TEXT PRIMARY KEY,
		expires_at TEXT NOT NULL
	);
	`},
	{2, "lookup indexes", `
	CREATE INDEX IF NOT EXISTS idx_account_status ON account(status);
	CREATE INDEX IF NOT EXISTS idx_event_status_dates ON event(status, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_event_submitted_by ON event(submitted_by);
	CREATE INDEX IF NOT EXISTS idx_assignment_referee_status ON assignment(referee_id, status);
	CREATE INDEX IF NOT EXISTS idx_honor_status ON honor(status);
	CREATE INDEX IF NOT EXISTS idx_forum_topic_activity ON forum_topic(pinned, last_activity_at);
	CREATE INDEX IF NOT EXISTS idx_forum_reply_topic ON forum_reply(topic_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, next_attempt_at);
	CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event(timestamp);
	`},
}

// LatestSchemaVersion is the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// InitDB applies connection pragmas and runs all pending migrations.
// PRE: db is a valid database connection
// POST: WAL mode and foreign keys enabled; schema at LatestSchemaVersion
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return MigrateDB(context.Background(), db)
}

// DSN builds a modernc.org/sqlite data source name for a database file.
// PRAGMAs are per-connection, so they ride on the DSN and apply to every
// connection the pool opens.
func DSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

// Open opens the database file at path and applies pending migrations.
// POST: returned DB is migrated to LatestSchemaVersion
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateDB applies every migration newer than the recorded schema version.
// Each migration runs in its own transaction together with its version row.
// POST: schema_version holds one row per applied migration
func MigrateDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.Info("schema_event", "event", "migration_applied", "version", m.version, "name", m.name)
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, time.Now().UTC().Format(TimeLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func SchemaVersion(ctx context.Context, db SQLDB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}
