package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lox/ridewise/internal/models"
)

var (
	// ErrInventoryExhausted means the location had no bikes left to book.
	ErrInventoryExhausted = errors.New("no bikes available at location")
	// ErrBookingFailed means the decrement and booking insert did not
	// commit together; nothing was persisted.
	ErrBookingFailed = errors.New("booking did not complete")
	// ErrLocationNotFound means no location has the requested ID.
	ErrLocationNotFound = errors.New("location not found")
)

// StorageError wraps a failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// IsBusy reports whether err is SQLite lock contention worth retrying.
func IsBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// SeedLocations inserts locs only when the locations table is empty and
// returns the number inserted.
func (s *Store) SeedLocations(ctx context.Context, locs []models.Location) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin seed", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&count); err != nil {
		return 0, storageErr("count locations", err)
	}
	if count > 0 {
		return 0, nil
	}

	for _, l := range locs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO locations (name, lat, lng, bikes_available, hourly_rate)
			VALUES (?, ?, ?, ?, ?)
		`, l.Name, l.Latitude, l.Longitude, l.BikesAvailable, l.HourlyRate); err != nil {
			return 0, storageErr("insert location "+l.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit seed", err)
	}
	return len(locs), nil
}

// InsertLocation adds a single location and returns its id.
func (s *Store) InsertLocation(ctx context.Context, l models.Location) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (name, lat, lng, bikes_available, hourly_rate)
		VALUES (?, ?, ?, ?, ?)
	`, l.Name, l.Latitude, l.Longitude, l.BikesAvailable, l.HourlyRate)
	if err != nil {
		return 0, storageErr("insert location", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("insert location", err)
	}
	return id, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, lat, lng, bikes_available, hourly_rate FROM locations ORDER BY id`)
	if err != nil {
		return nil, storageErr("list locations", err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.BikesAvailable, &l.HourlyRate); err != nil {
			return nil, storageErr("scan location", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list locations", err)
	}
	return locations, nil
}

// GetLocation returns nil, nil when the location does not exist.
func (s *Store) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	var l models.Location
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, lat, lng, bikes_available, hourly_rate FROM locations WHERE id = ?
	`, id).Scan(&l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.BikesAvailable, &l.HourlyRate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get location", err)
	}
	return &l, nil
}
