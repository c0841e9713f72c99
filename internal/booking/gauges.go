package booking

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/lox/ridewise/internal/metrics"
)

// RefreshGauges publishes the current stock of every location.
func (m *Manager) RefreshGauges(ctx context.Context) error {
	locs, err := m.store.ListLocations(ctx)
	if err != nil {
		return err
	}
	for _, l := range locs {
		metrics.BikesAvailable.WithLabelValues(strconv.FormatInt(l.ID, 10)).Set(float64(l.BikesAvailable))
	}
	return nil
}

// RunGauges refreshes the inventory gauges every interval until ctx is done.
func (m *Manager) RunGauges(ctx context.Context, interval time.Duration) {
	if err := m.RefreshGauges(ctx); err != nil {
		log.Printf("booking: refresh gauges: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("booking: gauge refresh shutting down")
			return
		case <-ticker.C:
			if err := m.RefreshGauges(ctx); err != nil {
				log.Printf("booking: refresh gauges: %v", err)
			}
		}
	}
}
