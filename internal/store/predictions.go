package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lox/ridewise/internal/models"
)

// ErrInvalidRecord means a caller tried to ledger a value the table does not
// accept: a negative prediction or an unknown mode.
var ErrInvalidRecord = errors.New("invalid prediction record")

// PredictionEntry is one row for RecordPredictions.
type PredictionEntry struct {
	Snapshot map[string]any
	Value    int
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RecordPrediction appends a prediction to the ledger. The snapshot is
// stored as a JSON object so the feature set can evolve without migrations.
func (s *Store) RecordPrediction(ctx context.Context, userID *int64, snapshot map[string]any, value int, mode models.PredictionMode) (*models.PredictionRecord, error) {
	return s.insertPrediction(ctx, s.db, userID, PredictionEntry{Snapshot: snapshot, Value: value}, mode)
}

// RecordPredictions appends every entry in one transaction. Either all rows
// are in the ledger afterwards or none are.
func (s *Store) RecordPredictions(ctx context.Context, userID *int64, entries []PredictionEntry, mode models.PredictionMode) ([]models.PredictionRecord, error) {
	for i, e := range entries {
		if err := checkRecord(e.Value, mode); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin predictions", err)
	}
	defer tx.Rollback()

	records := make([]models.PredictionRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := s.insertPrediction(ctx, tx, userID, e, mode)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit predictions", err)
	}
	return records, nil
}

func checkRecord(value int, mode models.PredictionMode) error {
	if value < 0 {
		return fmt.Errorf("%w: negative value %d", ErrInvalidRecord, value)
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRecord, mode)
	}
	return nil
}

func (s *Store) insertPrediction(ctx context.Context, db execer, userID *int64, e PredictionEntry, mode models.PredictionMode) (*models.PredictionRecord, error) {
	if err := checkRecord(e.Value, mode); err != nil {
		return nil, err
	}

	input, err := json.Marshal(e.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %w", ErrInvalidRecord, err)
	}

	rec := &models.PredictionRecord{
		Input:      e.Snapshot,
		Prediction: e.Value,
		Mode:       mode,
		CreatedAt:  s.now().UTC(),
	}
	if userID != nil {
		rec.UserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO predictions (user_id, input_data, prediction, type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.UserID, string(input), rec.Prediction, string(rec.Mode), rec.CreatedAt)
	if err != nil {
		return nil, storageErr("insert prediction", err)
	}
	rec.ID, err = result.LastInsertId()
	if err != nil {
		return nil, storageErr("insert prediction", err)
	}
	return rec, nil
}

// PredictionHistory returns a user's predictions, newest first. A user with
// no predictions gets an empty slice.
func (s *Store) PredictionHistory(ctx context.Context, userID int64) ([]models.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, input_data, prediction, type, created_at
		FROM predictions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, storageErr("query predictions", err)
	}
	defer rows.Close()

	records := []models.PredictionRecord{}
	for rows.Next() {
		var (
			r     models.PredictionRecord
			input string
			mode  string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &input, &r.Prediction, &mode, &r.CreatedAt); err != nil {
			return nil, storageErr("scan prediction", err)
		}
		r.Mode = models.PredictionMode(mode)
		if err := json.Unmarshal([]byte(input), &r.Input); err != nil {
			return nil, fmt.Errorf("decode snapshot for prediction %d: %w", r.ID, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query predictions", err)
	}
	return records, nil
}
