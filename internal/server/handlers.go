package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/raphaelgruber/nextwatch/internal/models"
	"github.com/raphaelgruber/nextwatch/internal/parser"
	"github.com/raphaelgruber/nextwatch/internal/service"
	"github.com/raphaelgruber/nextwatch/internal/store"
)

// maxBodyBytes bounds the POST /api/recommend body.
const maxBodyBytes = 1 << 20

// Error strings returned to API clients.
const (
	errQueryRequired      = "User query is required"
	errInvalidBody        = "Invalid request body"
	errGenerate           = "Failed to generate recommendations"
	errParse              = "Failed to parse movie recommendations"
	errFetchHistory       = "Failed to fetch history"
	errFetchRecs          = "Failed to fetch recommendations"
	errRecommendationGone = "Recommendation not found"
	errFetchRec           = "Failed to fetch recommendation"
	errNotReady           = "Store unavailable"
)

// Handler serves the REST API.
type Handler struct {
	svc     *service.RecommendationService
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(svc *service.RecommendationService, mc *metrics.Collector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, metrics: mc, logger: logger}
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

type recommendResponse struct {
	Success          bool           `json:"success"`
	Query            string         `json:"query"`
	Recommendations  []models.Movie `json:"recommendations"`
	RecommendationID string         `json:"recommendationId"`
}

type historyResponse struct {
	Success bool                        `json:"success"`
	History []models.SearchHistoryEntry `json:"history"`
}

type recommendationsResponse struct {
	Success         bool                          `json:"success"`
	Recommendations []models.RecommendationRecord `json:"recommendations"`
}

type recommendationResponse struct {
	Success        bool                         `json:"success"`
	Recommendation *models.RecommendationRecord `json:"recommendation"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Health always answers OK while the process is serving.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Message:   "Next Watch API is running",
		Timestamp: timestamp(),
	})
}

// Ready answers OK only when the store responds to a ping.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, errNotReady, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "OK", Timestamp: timestamp()})
}

// Recommend handles POST /api/recommend.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	// An empty body is treated as an empty object.
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidBody, err.Error())
		return
	}
	if err := getValidator().Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, errQueryRequired, "")
		return
	}

	res, err := h.svc.Recommend(r.Context(), service.RecommendRequest{
		UserQuery: req.UserQuery,
		UserID:    req.UserID,
	})
	if err != nil {
		h.respondRecommendError(w, err)
		return
	}

	movies := res.Recommendations
	if movies == nil {
		movies = []models.Movie{}
	}
	respondJSON(w, http.StatusOK, recommendResponse{
		Success:          true,
		Query:            res.Query,
		Recommendations:  movies,
		RecommendationID: res.RecommendationID,
	})
}

func (h *Handler) respondRecommendError(w http.ResponseWriter, err error) {
	var upstream *service.UpstreamError
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(w, http.StatusBadRequest, errQueryRequired, "")
	case errors.As(err, &upstream):
		respondError(w, http.StatusInternalServerError, errGenerate, upstream.Err.Error())
	case errors.Is(err, parser.ErrParseFailure):
		respondError(w, http.StatusInternalServerError, errGenerate, errParse)
	default:
		respondError(w, http.StatusInternalServerError, errGenerate, err.Error())
	}
}

// History handles GET /api/history/{userId}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.History(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.logger.Error("fetch history failed", "error", err)
		respondError(w, http.StatusInternalServerError, errFetchHistory, "")
		return
	}
	if entries == nil {
		entries = []models.SearchHistoryEntry{}
	}
	respondJSON(w, http.StatusOK, historyResponse{Success: true, History: entries})
}

// RecommendationsForUser handles GET /api/recommendations/{userId}.
func (h *Handler) RecommendationsForUser(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.RecommendationsForUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.logger.Error("fetch recommendations failed", "error", err)
		respondError(w, http.StatusInternalServerError, errFetchRecs, "")
		return
	}
	if recs == nil {
		recs = []models.RecommendationRecord{}
	}
	respondJSON(w, http.StatusOK, recommendationsResponse{Success: true, Recommendations: recs})
}

// Recommendation handles GET /api/recommendation/{id}.
func (h *Handler) Recommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Recommendation(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, errRecommendationGone, "")
		return
	}
	if err != nil {
		h.logger.Error("fetch recommendation failed", "error", err)
		respondError(w, http.StatusInternalServerError, errFetchRec, "")
		return
	}
	respondJSON(w, http.StatusOK, recommendationResponse{Success: true, Recommendation: rec})
}

// Stats returns the in-memory metrics snapshot.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.metrics.Snapshot())
}
