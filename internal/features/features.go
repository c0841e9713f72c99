package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Columns is the canonical feature order. The model artifact must declare
// exactly this list.
var Columns = []string{"season", "holiday", "workingday", "weather", "temperature", "humidity", "windspeed", "hour"}

// Vector is one fully populated row of model input.
type Vector struct {
	Season      int     `json:"season"`
	Holiday     int     `json:"holiday"`
	Workingday  int     `json:"workingday"`
	Weather     int     `json:"weather"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Windspeed   float64 `json:"windspeed"`
	Hour        int     `json:"hour"`
}

// Defaults are applied by ParseWithDefaults for missing keys.
var Defaults = Vector{
	Season:      1,
	Holiday:     0,
	Workingday:  1,
	Weather:     1,
	Temperature: 25,
	Humidity:    50,
	Windspeed:   10,
	Hour:        12,
}

// InvalidInputError reports a feature value that is missing, cannot be
// coerced, or falls outside its domain.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Row returns the vector values in Columns order.
func (v Vector) Row() []float64 {
	return []float64{
		float64(v.Season),
		float64(v.Holiday),
		float64(v.Workingday),
		float64(v.Weather),
		v.Temperature,
		v.Humidity,
		v.Windspeed,
		float64(v.Hour),
	}
}

// Snapshot returns the key-value form persisted alongside a prediction.
func (v Vector) Snapshot() map[string]any {
	return map[string]any{
		"season":      v.Season,
		"holiday":     v.Holiday,
		"workingday":  v.Workingday,
		"weather":     v.Weather,
		"temperature": v.Temperature,
		"humidity":    v.Humidity,
		"windspeed":   v.Windspeed,
		"hour":        v.Hour,
	}
}

// WithHour returns a copy with the hour replaced.
func (v Vector) WithHour(h int) Vector {
	v.Hour = h
	return v
}

// Parse builds a Vector from a loosely typed payload. Every canonical key
// must be present.
func Parse(raw map[string]any) (Vector, error) {
	return parse(raw, nil)
}

// ParseWithDefaults is like Parse but fills missing keys from Defaults.
// Values that are present must still coerce cleanly.
func ParseWithDefaults(raw map[string]any) (Vector, error) {
	d := Defaults
	return parse(raw, &d)
}

// fieldKind selects the coercion rules for a feature.
type fieldKind int

const (
	// kindFlag fields are 0/1 and also accept booleans and yes/no words.
	kindFlag fieldKind = iota
	// kindCategory fields take whole numbers only.
	kindCategory
	// kindContinuous fields take any finite number.
	kindContinuous
)

func parse(raw map[string]any, defaults *Vector) (Vector, error) {
	var v Vector
	if defaults != nil {
		v = *defaults
	}

	ints := []struct {
		key      string
		kind     fieldKind
		dst      *int
		min, max int
	}{
		{"season", kindCategory, &v.Season, 1, 4},
		{"holiday", kindFlag, &v.Holiday, 0, 1},
		{"workingday", kindFlag, &v.Workingday, 0, 1},
		{"weather", kindCategory, &v.Weather, 1, 4},
		{"hour", kindCategory, &v.Hour, 0, 23},
	}
	for _, f := range ints {
		val, ok := raw[f.key]
		if !ok || val == nil {
			if defaults == nil {
				return Vector{}, &InvalidInputError{Field: f.key, Reason: "required"}
			}
			continue
		}
		n, err := coerce(val, f.kind)
		if err != nil {
			return Vector{}, &InvalidInputError{Field: f.key, Value: val, Reason: err.Error()}
		}
		if n < float64(f.min) || n > float64(f.max) {
			return Vector{}, &InvalidInputError{Field: f.key, Value: val, Reason: fmt.Sprintf("must be between %d and %d", f.min, f.max)}
		}
		*f.dst = int(n)
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"temperature", &v.Temperature},
		{"humidity", &v.Humidity},
		{"windspeed", &v.Windspeed},
	}
	for _, f := range floats {
		val, ok := raw[f.key]
		if !ok || val == nil {
			if defaults == nil {
				return Vector{}, &InvalidInputError{Field: f.key, Reason: "required"}
			}
			continue
		}
		n, err := coerce(val, kindContinuous)
		if err != nil {
			return Vector{}, &InvalidInputError{Field: f.key, Value: val, Reason: err.Error()}
		}
		*f.dst = n
	}

	return v, nil
}

// Hour extracts the hour from a stored snapshot. It reports false when the
// key is absent or unusable rather than failing.
func Hour(snapshot map[string]any) (int, bool) {
	val, ok := snapshot["hour"]
	if !ok || val == nil {
		return 0, false
	}
	n, err := coerce(val, kindCategory)
	if err != nil || n < 0 || n > 23 {
		return 0, false
	}
	return int(n), true
}

func coerce(val any, kind fieldKind) (float64, error) {
	if kind == kindFlag {
		switch x := val.(type) {
		case bool:
			if x {
				return 1, nil
			}
			return 0, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true", "yes", "on":
				return 1, nil
			case "false", "no", "off":
				return 0, nil
			}
		}
	}

	f, err := toFloat(val)
	if err != nil {
		return 0, err
	}
	if kind != kindContinuous && f != math.Trunc(f) {
		return 0, fmt.Errorf("must be a whole number")
	}
	return f, nil
}

func toFloat(val any) (float64, error) {
	var f float64
	switch x := val.(type) {
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		f = p
	default:
		return 0, fmt.Errorf("unsupported type %T", val)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return f, nil
}
