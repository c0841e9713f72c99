package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lox/ridewise/internal/models"
)

// InsertFeedback appends a feedback entry. userID may be nil for anonymous
// visitors.
func (s *Store) InsertFeedback(ctx context.Context, userID *int64, message string, rating int) (*models.Feedback, error) {
	if message == "" {
		return nil, errors.New("insert feedback: message required")
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("insert feedback: rating %d outside 1..5", rating)
	}

	f := &models.Feedback{
		Message:   message,
		Rating:    rating,
		CreatedAt: s.now().UTC(),
	}
	if userID != nil {
		f.UserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (user_id, message, rating, created_at) VALUES (?, ?, ?, ?)
	`, f.UserID, f.Message, f.Rating, f.CreatedAt)
	if err != nil {
		return nil, storageErr("insert feedback", err)
	}
	f.ID, err = result.LastInsertId()
	if err != nil {
		return nil, storageErr("insert feedback", err)
	}
	return f, nil
}

// RecentFeedback returns up to limit entries, newest first.
func (s *Store) RecentFeedback(ctx context.Context, limit int) ([]models.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, rating, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageErr("query feedback", err)
	}
	defer rows.Close()

	entries := []models.Feedback{}
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Message, &f.Rating, &f.CreatedAt); err != nil {
			return nil, storageErr("scan feedback", err)
		}
		entries = append(entries, f)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query feedback", err)
	}
	return entries, nil
}
