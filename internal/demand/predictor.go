package demand

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/lox/ridewise/internal/features"
	"github.com/lox/ridewise/internal/metrics"
)

// ErrModelUnavailable is returned by every prediction when no model artifact
// was loaded at startup.
var ErrModelUnavailable = errors.New("demand model unavailable")

// Model is a loaded regression model taking a row in features.Columns order.
type Model interface {
	Predict(row []float64) (float64, error)
}

// Predictor turns feature vectors into non-negative integer demand.
// It is safe for concurrent use as long as the model is.
type Predictor struct {
	model Model
}

// NewPredictor wraps m. A nil model yields a predictor that fails closed.
func NewPredictor(m Model) *Predictor {
	return &Predictor{model: m}
}

// Available reports whether a model is loaded.
func (p *Predictor) Available() bool {
	return p != nil && p.model != nil
}

// Predict returns the demand estimate for a single vector.
func (p *Predictor) Predict(v features.Vector) (int, error) {
	if !p.Available() {
		metrics.PredictionErrors.WithLabelValues("model_unavailable").Inc()
		return 0, ErrModelUnavailable
	}
	raw, err := p.model.Predict(v.Row())
	if err != nil {
		metrics.PredictionErrors.WithLabelValues("model").Inc()
		return 0, fmt.Errorf("model predict: %w", err)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		metrics.PredictionErrors.WithLabelValues("model").Inc()
		return 0, fmt.Errorf("model predict: non-finite output %v", raw)
	}
	if raw < 0 {
		return 0, nil
	}
	return int(raw), nil
}

// nightTempDrop is subtracted from the base temperature for hours before 6
// and after 20 when expanding a day.
const nightTempDrop = 5.0

// HourlyVector derives the vector used for hour h of a daily prediction.
func HourlyVector(base features.Vector, h int) features.Vector {
	v := base.WithHour(h)
	if h < 6 || h > 20 {
		v.Temperature -= nightTempDrop
	}
	return v
}

// PredictDaily sums the predictions for all 24 hours derived from base.
func (p *Predictor) PredictDaily(ctx context.Context, base features.Vector) (int, error) {
	if !p.Available() {
		metrics.PredictionErrors.WithLabelValues("model_unavailable").Inc()
		return 0, ErrModelUnavailable
	}

	var hourly [24]int
	g, ctx := errgroup.WithContext(ctx)
	for h := range 24 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := p.Predict(HourlyVector(base, h))
			if err != nil {
				return fmt.Errorf("hour %d: %w", h, err)
			}
			hourly[h] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range hourly {
		total += n
	}
	return total, nil
}

// BatchResult holds per-row predictions for a batch and their total.
type BatchResult struct {
	Values []int
	Total  int
}

// PredictBatch predicts each row independently, in order.
func (p *Predictor) PredictBatch(ctx context.Context, rows []features.Vector) (*BatchResult, error) {
	res := &BatchResult{Values: make([]int, len(rows))}
	for i, v := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := p.Predict(v)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		res.Values[i] = n
		res.Total += n
	}
	return res, nil
}
