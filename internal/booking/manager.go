package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lox/ridewise/internal/metrics"
	"github.com/lox/ridewise/internal/models"
	"github.com/lox/ridewise/internal/store"
)

var (
	ErrInventoryExhausted = store.ErrInventoryExhausted
	ErrBookingFailed      = store.ErrBookingFailed
	ErrLocationNotFound   = store.ErrLocationNotFound
	ErrInvalidBooking     = errors.New("invalid booking request")
)

const dateLayout = "2006-01-02"

// Manager owns the bike inventory and the bookings made against it.
type Manager struct {
	store      *store.Store
	maxElapsed time.Duration
}

func NewManager(s *store.Store) *Manager {
	return &Manager{store: s, maxElapsed: 5 * time.Second}
}

// Book reserves one bike at locationID for userID on date (YYYY-MM-DD).
// Lock contention is retried; inventory exhaustion is never retried.
func (m *Manager) Book(ctx context.Context, userID, locationID int64, date string, amount int) (*models.Booking, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidBooking, date)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount %d", ErrInvalidBooking, amount)
	}

	var b *models.Booking
	operation := func() error {
		var err error
		b, err = m.store.BookLocation(ctx, userID, locationID, date, amount)
		if err != nil && !store.IsBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxElapsedTime = m.maxElapsed
	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))

	switch {
	case err == nil:
		metrics.BookingsTotal.WithLabelValues("confirmed").Inc()
	case errors.Is(err, ErrInventoryExhausted):
		metrics.BookingsTotal.WithLabelValues("exhausted").Inc()
		return nil, err
	case errors.Is(err, ErrLocationNotFound):
		metrics.BookingsTotal.WithLabelValues("not_found").Inc()
		return nil, err
	default:
		metrics.BookingsTotal.WithLabelValues("failed").Inc()
		log.Printf("booking: location %d user %d: %v", locationID, userID, err)
		return nil, err
	}

	if loc, err := m.store.GetLocation(ctx, locationID); err == nil && loc != nil {
		metrics.BikesAvailable.WithLabelValues(strconv.FormatInt(loc.ID, 10)).Set(float64(loc.BikesAvailable))
	}
	log.Printf("booking: %s confirmed at %s for user %d", b.Reference, b.LocationName, userID)
	return b, nil
}

// List returns the user's bookings, newest first.
func (m *Manager) List(ctx context.Context, userID int64) ([]models.Booking, error) {
	return m.store.ListBookings(ctx, userID)
}

// Locations returns every rental location with its current stock.
func (m *Manager) Locations(ctx context.Context) ([]models.Location, error) {
	return m.store.ListLocations(ctx)
}

// Quote prices a rental of the given number of hours at locationID.
func (m *Manager) Quote(ctx context.Context, locationID int64, hours int) (int, error) {
	if hours <= 0 {
		return 0, fmt.Errorf("%w: hours must be positive", ErrInvalidBooking)
	}
	loc, err := m.store.GetLocation(ctx, locationID)
	if err != nil {
		return 0, err
	}
	if loc == nil {
		return 0, ErrLocationNotFound
	}
	return loc.HourlyRate * hours, nil
}
