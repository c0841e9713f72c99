package demand

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/lox/ridewise/internal/features"
)

// linearModel predicts 10*hour + temperature - 20*weather.
type linearModel struct{}

func (linearModel) Predict(row []float64) (float64, error) {
	return 10*row[7] + row[4] - 20*row[3], nil
}

type constModel float64

func (c constModel) Predict([]float64) (float64, error) { return float64(c), nil }

type failingModel struct{}

func (failingModel) Predict([]float64) (float64, error) { return 0, errors.New("boom") }

func TestPredict(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		v     features.Vector
		want  int
	}{
		{"linear", linearModel{}, features.Vector{Weather: 1, Temperature: 25, Hour: 8}, 85},
		{"truncates fraction", constModel(41.9), features.Defaults, 41},
		{"clamps negative", constModel(-12.5), features.Defaults, 0},
		{"zero", constModel(0), features.Defaults, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewPredictor(tt.model).Predict(tt.v)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if got != tt.want {
				t.Errorf("Predict = %d, want %d", got, tt.want)
			}
			if got < 0 {
				t.Errorf("Predict returned negative %d", got)
			}
		})
	}
}

func TestPredict_NonFinite(t *testing.T) {
	for _, c := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := NewPredictor(constModel(c)).Predict(features.Defaults); err == nil {
			t.Errorf("expected error for model output %v", c)
		}
	}
}

func TestPredict_ModelError(t *testing.T) {
	_, err := NewPredictor(failingModel{}).Predict(features.Defaults)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrModelUnavailable) {
		t.Error("model failure should not be reported as unavailable")
	}
}

func TestPredict_Unavailable(t *testing.T) {
	p := NewPredictor(nil)
	if p.Available() {
		t.Fatal("Available() = true for nil model")
	}
	if _, err := p.Predict(features.Defaults); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("Predict err = %v, want ErrModelUnavailable", err)
	}
	if _, err := p.PredictDaily(context.Background(), features.Defaults); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("PredictDaily err = %v, want ErrModelUnavailable", err)
	}
	if _, err := p.PredictBatch(context.Background(), []features.Vector{features.Defaults}); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("PredictBatch err = %v, want ErrModelUnavailable", err)
	}
}

func TestHourlyVector_NightAdjustment(t *testing.T) {
	base := features.Defaults
	base.Temperature = 20
	tests := []struct {
		hour     int
		wantTemp float64
	}{
		{0, 15}, {5, 15}, {6, 20}, {12, 20}, {20, 20}, {21, 15}, {23, 15},
	}
	for _, tt := range tests {
		v := HourlyVector(base, tt.hour)
		if v.Hour != tt.hour {
			t.Errorf("hour %d: Hour = %d", tt.hour, v.Hour)
		}
		if v.Temperature != tt.wantTemp {
			t.Errorf("hour %d: Temperature = %v, want %v", tt.hour, v.Temperature, tt.wantTemp)
		}
	}
	if base.Temperature != 20 {
		t.Error("HourlyVector mutated the base vector")
	}
}

func TestPredictDaily_EqualsSumOfHours(t *testing.T) {
	p := NewPredictor(linearModel{})
	base := features.Vector{Season: 2, Workingday: 1, Weather: 1, Temperature: 22, Humidity: 40, Windspeed: 5, Hour: 12}

	want := 0
	for h := range 24 {
		v := base
		v.Hour = h
		if h < 6 || h > 20 {
			v.Temperature -= 5
		}
		n, err := p.Predict(v)
		if err != nil {
			t.Fatal(err)
		}
		want += n
	}

	got, err := p.PredictDaily(context.Background(), base)
	if err != nil {
		t.Fatalf("PredictDaily: %v", err)
	}
	if got != want {
		t.Errorf("PredictDaily = %d, want %d", got, want)
	}
}

func TestPredictDaily_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPredictor(linearModel{}).PredictDaily(ctx, features.Defaults); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestPredictBatch(t *testing.T) {
	rows := []features.Vector{
		{Weather: 1, Temperature: 10, Hour: 1},
		{Weather: 1, Temperature: 30, Hour: 18},
		{Weather: 4, Temperature: 0, Hour: 3},
	}
	res, err := NewPredictor(linearModel{}).PredictBatch(context.Background(), rows)
	if err != nil {
		t.Fatalf("PredictBatch: %v", err)
	}
	wantValues := []int{0, 190, 0}
	for i, w := range wantValues {
		if res.Values[i] != w {
			t.Errorf("Values[%d] = %d, want %d", i, res.Values[i], w)
		}
	}
	if res.Total != 190 {
		t.Errorf("Total = %d, want 190", res.Total)
	}
}
