package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lox/ridewise/internal/metrics"
)

const DefaultTimeout = 30 * time.Second

// NewClient returns an HTTP client for outbound calls such as the chat model.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument counts requests to next under the given route label.
func Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
	}
}
