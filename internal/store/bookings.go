package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lox/ridewise/internal/models"
)

// BookLocation takes one bike from a location and records the booking in a
// single transaction. The decrement is conditional on stock remaining, so
// concurrent callers can never drive bikes_available below zero.
func (s *Store) BookLocation(ctx context.Context, userID, locationID int64, date string, amount int) (*models.Booking, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin booking", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE locations SET bikes_available = bikes_available - 1
		WHERE id = ? AND bikes_available > 0
	`, locationID)
	if err != nil {
		return nil, storageErr("decrement inventory", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, storageErr("decrement inventory", err)
	}

	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM locations WHERE id = ?)`, locationID).Scan(&exists); err != nil {
			return nil, storageErr("check location", err)
		}
		if !exists {
			return nil, ErrLocationNotFound
		}
		return nil, ErrInventoryExhausted
	}

	b := &models.Booking{
		Reference:  uuid.NewString(),
		UserID:     userID,
		LocationID: locationID,
		Date:       date,
		Amount:     amount,
		Status:     models.BookingConfirmed,
		CreatedAt:  s.now().UTC(),
	}
	if err := tx.QueryRowContext(ctx, `SELECT name FROM locations WHERE id = ?`, locationID).Scan(&b.LocationName); err != nil {
		return nil, fmt.Errorf("%w: read location: %w", ErrBookingFailed, err)
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (reference, user_id, location_id, date, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, b.Reference, b.UserID, b.LocationID, b.Date, b.Amount, b.Status, b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: insert booking: %w", ErrBookingFailed, err)
	}
	b.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: insert booking: %w", ErrBookingFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %w", ErrBookingFailed, err)
	}
	return b, nil
}

// ListBookings returns a user's bookings with location names, newest first.
func (s *Store) ListBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.reference, b.user_id, b.location_id, l.name, b.date, b.amount, b.status, b.created_at
		FROM bookings b
		JOIN locations l ON l.id = b.location_id
		WHERE b.user_id = ?
		ORDER BY b.created_at DESC, b.id DESC
	`, userID)
	if err != nil {
		return nil, storageErr("query bookings", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.Reference, &b.UserID, &b.LocationID, &b.LocationName, &b.Date, &b.Amount, &b.Status, &b.CreatedAt); err != nil {
			return nil, storageErr("scan booking", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query bookings", err)
	}
	return bookings, nil
}
