package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridewise_predictions_total",
			Help: "Total predictions recorded in the ledger",
		},
		[]string{"mode"},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridewise_prediction_errors_total",
			Help: "Total failed prediction attempts",
		},
		[]string{"reason"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridewise_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	BikesAvailable = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridewise_location_bikes_available",
			Help: "Bikes available per location after the last booking",
		},
		[]string{"location"},
	)

	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridewise_chat_requests_total",
			Help: "Total assistant chat requests",
		},
		[]string{"status"},
	)

	ChatLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ridewise_chat_latency_seconds",
			Help:    "Assistant chat completion latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridewise_http_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
