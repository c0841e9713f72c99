package features

import (
	"encoding/json"
	"errors"
	"testing"
)

func fullPayload() map[string]any {
	return map[string]any{
		"season":      2.0,
		"holiday":     false,
		"workingday":  true,
		"weather":     "1",
		"temperature": 24.5,
		"humidity":    "60",
		"windspeed":   json.Number("12.5"),
		"hour":        17.0,
	}
}

func TestParse_Coercion(t *testing.T) {
	v, err := Parse(fullPayload())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := Vector{Season: 2, Holiday: 0, Workingday: 1, Weather: 1, Temperature: 24.5, Humidity: 60, Windspeed: 12.5, Hour: 17}
	if v != want {
		t.Errorf("Parse = %+v, want %+v", v, want)
	}
}

func TestParse_MissingFieldIsInvalid(t *testing.T) {
	raw := fullPayload()
	delete(raw, "humidity")

	_, err := Parse(raw)
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if invalid.Field != "humidity" {
		t.Errorf("Field = %q, want humidity", invalid.Field)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"non-numeric temperature", "temperature", "warm"},
		{"season out of range", "season", 5},
		{"season zero", "season", 0},
		{"weather out of range", "weather", 9.0},
		{"hour negative", "hour", -1},
		{"hour too large", "hour", 24},
		{"holiday not boolean", "holiday", 3},
		{"nan humidity", "humidity", "NaN"},
		{"unsupported type", "windspeed", []int{1}},
		{"yes as temperature", "temperature", "yes"},
		{"on as humidity", "humidity", "on"},
		{"bool as windspeed", "windspeed", true},
		{"bool as season", "season", true},
		{"fractional hour below zero", "hour", -0.9},
		{"fractional season", "season", 1.9},
		{"fractional hour string", "hour", "7.5"},
		{"word as weather", "weather", "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := fullPayload()
			raw[tt.key] = tt.value
			_, err := Parse(raw)
			var invalid *InvalidInputError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidInputError, got %v", err)
			}
			if invalid.Field != tt.key {
				t.Errorf("Field = %q, want %q", invalid.Field, tt.key)
			}
		})
	}
}

func TestParse_FlagWords(t *testing.T) {
	tests := []struct {
		value any
		want  int
	}{
		{true, 1},
		{false, 0},
		{"yes", 1},
		{" On ", 1},
		{"off", 0},
		{"no", 0},
		{"1", 1},
		{json.Number("0"), 0},
	}
	for _, tt := range tests {
		raw := fullPayload()
		raw["holiday"] = tt.value
		v, err := Parse(raw)
		if err != nil {
			t.Errorf("holiday=%v: %v", tt.value, err)
			continue
		}
		if v.Holiday != tt.want {
			t.Errorf("holiday=%v: got %d, want %d", tt.value, v.Holiday, tt.want)
		}
	}
}

func TestParse_WholeFloatsAccepted(t *testing.T) {
	raw := fullPayload()
	raw["season"] = "3.0"
	raw["hour"] = json.Number("23")
	v, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v.Season != 3 || v.Hour != 23 {
		t.Errorf("got %+v", v)
	}
}

func TestParseWithDefaults_Empty(t *testing.T) {
	v, err := ParseWithDefaults(map[string]any{})
	if err != nil {
		t.Fatalf("ParseWithDefaults: %v", err)
	}
	if v != Defaults {
		t.Errorf("got %+v, want defaults %+v", v, Defaults)
	}
	if v.Temperature != 25 || v.Humidity != 50 || v.Windspeed != 10 || v.Hour != 12 || v.Workingday != 1 {
		t.Errorf("unexpected default values: %+v", v)
	}
}

func TestParseWithDefaults_StillValidatesPresentValues(t *testing.T) {
	_, err := ParseWithDefaults(map[string]any{"temperature": "hot"})
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
}

func TestRowOrderMatchesColumns(t *testing.T) {
	v := Vector{Season: 1, Holiday: 2, Workingday: 3, Weather: 4, Temperature: 5, Humidity: 6, Windspeed: 7, Hour: 8}
	row := v.Row()
	if len(row) != len(Columns) {
		t.Fatalf("len(row) = %d, want %d", len(row), len(Columns))
	}
	for i := range row {
		if row[i] != float64(i+1) {
			t.Errorf("row[%d] (%s) = %v, want %d", i, Columns[i], row[i], i+1)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	v := Vector{Season: 3, Holiday: 1, Workingday: 0, Weather: 2, Temperature: 18.25, Humidity: 71, Windspeed: 4.5, Hour: 6}

	b, err := json.Marshal(v.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	got, err := Parse(decoded)
	if err != nil {
		t.Fatalf("Parse snapshot: %v", err)
	}
	if got != v {
		t.Errorf("round trip = %+v, want %+v", got, v)
	}
}

func TestHour(t *testing.T) {
	tests := []struct {
		snapshot map[string]any
		want     int
		ok       bool
	}{
		{map[string]any{"hour": 3.0}, 3, true},
		{map[string]any{"hour": "22"}, 22, true},
		{map[string]any{"hour": 30.0}, 0, false},
		{map[string]any{"hour": "noon"}, 0, false},
		{map[string]any{"hour": -0.5}, 0, false},
		{map[string]any{}, 0, false},
	}
	for _, tt := range tests {
		got, ok := Hour(tt.snapshot)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Hour(%v) = %d, %v; want %d, %v", tt.snapshot, got, ok, tt.want, tt.ok)
		}
	}
}
