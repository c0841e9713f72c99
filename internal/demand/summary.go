package demand

import (
	"fmt"

	"github.com/lox/ridewise/internal/features"
	"github.com/lox/ridewise/internal/models"
)

// BucketCount is the number of two-hour windows in a day.
const BucketCount = 12

// Summary aggregates a prediction history for the dashboard.
type Summary struct {
	Count         int              `json:"count"`
	Average       int              `json:"average"`
	HourlyBuckets [BucketCount]int `json:"hourly_buckets"`
}

// BucketLabels names each window, e.g. "00-02".
var BucketLabels = func() [BucketCount]string {
	var labels [BucketCount]string
	for i := range labels {
		labels[i] = fmt.Sprintf("%02d-%02d", i*2, i*2+2)
	}
	return labels
}()

// Summarize computes count, truncated mean and per-bucket truncated means.
// Empty input and empty buckets yield zero. Records whose snapshot has no
// usable hour contribute to Count and Average only.
func Summarize(records []models.PredictionRecord) Summary {
	var s Summary
	s.Count = len(records)
	if s.Count == 0 {
		return s
	}

	var (
		total   int64
		sums    [BucketCount]int64
		entries [BucketCount]int64
	)
	for _, r := range records {
		total += int64(r.Prediction)
		h, ok := features.Hour(r.Input)
		if !ok {
			continue
		}
		b := h / 2
		sums[b] += int64(r.Prediction)
		entries[b]++
	}

	s.Average = int(total / int64(s.Count))
	for b := range BucketCount {
		if entries[b] > 0 {
			s.HourlyBuckets[b] = int(sums[b] / entries[b])
		}
	}
	return s
}
