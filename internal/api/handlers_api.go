package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lox/ridewise/internal/chart"
	"github.com/lox/ridewise/internal/chat"
	"github.com/lox/ridewise/internal/demand"
	"github.com/lox/ridewise/internal/features"
	"github.com/lox/ridewise/internal/metrics"
	"github.com/lox/ridewise/internal/models"
	"github.com/lox/ridewise/internal/store"
)

type PredictResponse struct {
	ID         int64          `json:"id"`
	Prediction int            `json:"prediction"`
	Mode       string         `json:"type"`
	Input      map[string]any `json:"input"`
}

func (s *Server) record(w http.ResponseWriter, r *http.Request, userID *int64, v features.Vector, n int, mode models.PredictionMode) (*models.PredictionRecord, bool) {
	rec, err := s.store.RecordPrediction(r.Context(), userID, v.Snapshot(), n, mode)
	if err != nil {
		writeDomainError(w, "record prediction", err)
		return nil, false
	}
	metrics.PredictionsTotal.WithLabelValues(string(mode)).Inc()
	return rec, true
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var raw map[string]any
	if !s.decode(w, r, &raw) {
		return
	}
	v, err := features.Parse(raw)
	if err != nil {
		writeDomainError(w, "predict", err)
		return
	}
	n, err := s.predictor.Predict(v)
	if err != nil {
		writeDomainError(w, "predict", err)
		return
	}
	rec, ok := s.record(w, r, userID, v, n, models.ModeHourly)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{ID: rec.ID, Prediction: n, Mode: string(rec.Mode), Input: rec.Input})
}

func (s *Server) handlePredictDaily(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var raw map[string]any
	if !s.decode(w, r, &raw) {
		return
	}
	v, err := features.ParseWithDefaults(raw)
	if err != nil {
		writeDomainError(w, "predict daily", err)
		return
	}
	n, err := s.predictor.PredictDaily(r.Context(), v)
	if err != nil {
		writeDomainError(w, "predict daily", err)
		return
	}
	rec, ok := s.record(w, r, userID, v, n, models.ModeDaily)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{ID: rec.ID, Prediction: n, Mode: string(rec.Mode), Input: rec.Input})
}

type BatchRequest struct {
	Rows []map[string]any `json:"rows" validate:"required,min=1,max=500"`
}

type BatchResponse struct {
	Predictions []int `json:"predictions"`
	Total       int   `json:"total"`
}

func (s *Server) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	rows := make([]features.Vector, len(req.Rows))
	for i, raw := range req.Rows {
		v, err := features.ParseWithDefaults(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "row "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		rows[i] = v
	}
	res, err := s.predictor.PredictBatch(r.Context(), rows)
	if err != nil {
		writeDomainError(w, "predict batch", err)
		return
	}
	entries := make([]store.PredictionEntry, len(rows))
	for i, v := range rows {
		entries[i] = store.PredictionEntry{Snapshot: v.Snapshot(), Value: res.Values[i]}
	}
	if _, err := s.store.RecordPredictions(r.Context(), userID, entries, models.ModePDFHourly); err != nil {
		writeDomainError(w, "record batch", err)
		return
	}
	metrics.PredictionsTotal.WithLabelValues(string(models.ModePDFHourly)).Add(float64(len(entries)))
	writeJSON(w, http.StatusOK, BatchResponse{Predictions: res.Values, Total: res.Total})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	history, err := s.store.PredictionHistory(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type StatsResponse struct {
	demand.Summary
	BucketLabels [demand.BucketCount]string `json:"bucket_labels"`
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) (demand.Summary, bool) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return demand.Summary{}, false
	}
	history, err := s.store.PredictionHistory(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "stats", err)
		return demand.Summary{}, false
	}
	return demand.Summarize(history), true
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.summary(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Summary: sum, BucketLabels: demand.BucketLabels})
}

func (s *Server) handleStatsChart(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.summary(w, r)
	if !ok {
		return
	}
	png, err := chart.Render(sum)
	if err != nil {
		writeDomainError(w, "stats chart", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.bookings.Locations(r.Context())
	if err != nil {
		writeDomainError(w, "locations", err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

type QuoteResponse struct {
	LocationID int64 `json:"location_id"`
	Hours      int   `json:"hours"`
	Amount     int   `json:"amount"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid location id")
		return
	}
	hours := 1
	if v := r.URL.Query().Get("hours"); v != "" {
		if hours, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid hours")
			return
		}
	}
	amount, err := s.bookings.Quote(r.Context(), id, hours)
	if err != nil {
		writeDomainError(w, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, QuoteResponse{LocationID: id, Hours: hours, Amount: amount})
}

type BookRequest struct {
	LocationID int64  `json:"location_id" validate:"required,gt=0"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Amount     int    `json:"amount" validate:"gte=0"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	var req BookRequest
	if !s.decode(w, r, &req) {
		return
	}
	b, err := s.bookings.Book(r.Context(), userID, req.LocationID, req.Date, req.Amount)
	if err != nil {
		writeDomainError(w, "book", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	bookings, err := s.bookings.List(r.Context(), userID)
	if err != nil {
		writeDomainError(w, "bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

type FeedbackRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
}

func (s *Server) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req FeedbackRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := s.store.InsertFeedback(r.Context(), userID, req.Message, req.Rating)
	if err != nil {
		writeDomainError(w, "feedback", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 500)
	}
	entries, err := s.store.RecentFeedback(r.Context(), limit)
	if err != nil {
		writeDomainError(w, "feedback", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant disabled")
		return
	}
	var req ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.assistant.Reply(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "assistant unavailable")
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}
