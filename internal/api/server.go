package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/ridewise/internal/auth"
	"github.com/lox/ridewise/internal/booking"
	"github.com/lox/ridewise/internal/chat"
	"github.com/lox/ridewise/internal/demand"
	"github.com/lox/ridewise/internal/features"
	"github.com/lox/ridewise/internal/httputil"
	"github.com/lox/ridewise/internal/store"
)

type Server struct {
	store     *store.Store
	predictor *demand.Predictor
	bookings  *booking.Manager
	assistant *chat.Assistant
	auth      auth.Authenticator
	validate  *validator.Validate
	port      string
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Port string
	// Auth defaults to the X-User-ID header authenticator.
	Auth auth.Authenticator
	// Assistant may be nil, in which case /api/chat answers 503.
	Assistant *chat.Assistant
}

func NewServer(s *store.Store, p *demand.Predictor, opts Options) *Server {
	if opts.Auth == nil {
		opts.Auth = auth.Header{}
	}
	return &Server{
		store:     s,
		predictor: p,
		bookings:  booking.NewManager(s),
		assistant: opts.Assistant,
		auth:      opts.Auth,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		port:      opts.Port,
	}
}

// Bookings returns the booking manager for use by background jobs.
func (s *Server) Bookings() *booking.Manager {
	return s.bookings
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, httputil.Instrument(name, h))
	}
	route("GET /health", "health", s.handleHealth)
	route("POST /api/predict", "predict", s.handlePredict)
	route("POST /api/predict/daily", "predict_daily", s.handlePredictDaily)
	route("POST /api/predict/batch", "predict_batch", s.handlePredictBatch)
	route("GET /api/history", "history", s.handleHistory)
	route("GET /api/stats", "stats", s.handleStats)
	route("GET /api/stats/chart.png", "stats_chart", s.handleStatsChart)
	route("GET /api/locations", "locations", s.handleLocations)
	route("GET /api/locations/{id}/quote", "quote", s.handleQuote)
	route("POST /api/book", "book", s.handleBook)
	route("GET /api/bookings", "bookings", s.handleBookings)
	route("POST /api/feedback", "feedback_create", s.handleCreateFeedback)
	route("GET /api/feedback", "feedback_list", s.handleListFeedback)
	route("POST /api/chat", "chat", s.handleChat)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type HealthStatus struct {
	Status           string `json:"status"`
	ModelLoaded      bool   `json:"model_loaded"`
	MigrationVersion int    `json:"migration_version"`
	AssistantEnabled bool   `json:"assistant_enabled"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.store.MigrationVersion(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:           "ok",
		ModelLoaded:      s.predictor.Available(),
		MigrationVersion: version,
		AssistantEnabled: s.assistant != nil,
	})
}

// userID resolves the optional caller. An invalid credential is an error;
// no credential is a nil ID.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	id, err := s.auth.UserID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}
	return id, true
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := s.userID(w, r)
	if !ok {
		return 0, false
	}
	if id == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return 0, false
	}
	return *id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// dst is not a struct, nothing to validate.
			return true
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	var invalid *features.InvalidInputError
	var storageErr *store.StorageError
	switch {
	case errors.As(err, &invalid),
		errors.Is(err, booking.ErrInvalidBooking):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, demand.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, booking.ErrLocationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrInventoryExhausted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrBookingFailed):
		log.Printf("api: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "booking failed")
	case errors.Is(err, store.ErrInvalidRecord):
		log.Printf("api: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "invalid prediction record")
	case errors.As(err, &storageErr):
		log.Printf("api: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "storage error")
	default:
		log.Printf("api: %s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
