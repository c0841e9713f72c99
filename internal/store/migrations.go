package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT UNIQUE NOT NULL,
    name TEXT,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER,
    input_data TEXT NOT NULL,
    prediction INTEGER NOT NULL CHECK (prediction >= 0),
    type TEXT NOT NULL DEFAULT 'hourly',
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS locations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    lat REAL NOT NULL,
    lng REAL NOT NULL,
    bikes_available INTEGER NOT NULL CHECK (bikes_available >= 0),
    hourly_rate INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reference TEXT NOT NULL UNIQUE,
    user_id INTEGER NOT NULL,
    location_id INTEGER NOT NULL REFERENCES locations(id),
    date TEXT NOT NULL,
    amount INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'Confirmed',
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER,
    message TEXT NOT NULL,
    rating INTEGER NOT NULL,
    created_at DATETIME NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "Index per-user lookups",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_predictions_user_time ON predictions(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_bookings_user_time ON bookings(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_feedback_time ON feedback(created_at);
`,
	},
}

// Migrate applies every pending migration, each in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	current, err := s.MigrationVersion(ctx)
	if err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		log.Printf("migrations: applying %d - %s", m.Version, m.Description)
		if err := s.apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("execute migration %d: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Description, s.now().UTC(),
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// MigrationVersion returns the highest applied migration, 0 on a fresh
// database.
func (s *Store) MigrationVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, storageErr("migration version", err)
	}
	return int(version.Int64), nil
}
