package models

import (
	"database/sql"
	"time"
)

type PredictionMode string

const (
	ModeHourly    PredictionMode = "hourly"
	ModeDaily     PredictionMode = "daily"
	ModePDFHourly PredictionMode = "pdf_hourly"
)

func (m PredictionMode) Valid() bool {
	switch m {
	case ModeHourly, ModeDaily, ModePDFHourly:
		return true
	}
	return false
}

type PredictionRecord struct {
	ID         int64          `json:"id"`
	UserID     sql.NullInt64  `json:"-"`
	Input      map[string]any `json:"input"`
	Prediction int            `json:"prediction"`
	Mode       PredictionMode `json:"type"`
	CreatedAt  time.Time      `json:"timestamp"`
}

type Location struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lng"`
	BikesAvailable int     `json:"bikes_available"`
	HourlyRate     int     `json:"hourly_rate"`
}

const BookingConfirmed = "Confirmed"

type Booking struct {
	ID           int64     `json:"id"`
	Reference    string    `json:"reference"`
	UserID       int64     `json:"user_id"`
	LocationID   int64     `json:"location_id"`
	LocationName string    `json:"location_name"`
	Date         string    `json:"date"` // YYYY-MM-DD
	Amount       int       `json:"amount"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"timestamp"`
}

type Feedback struct {
	ID        int64         `json:"id"`
	UserID    sql.NullInt64 `json:"-"`
	Message   string        `json:"message"`
	Rating    int           `json:"rating"`
	CreatedAt time.Time     `json:"timestamp"`
}
