// Package service implements the recommendation workflow on top of the
// LLM collaborator, the response normalizer, and the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/raphaelgruber/nextwatch/internal/models"
	"github.com/raphaelgruber/nextwatch/internal/parser"
	"github.com/raphaelgruber/nextwatch/internal/store"
)

// Read limits.
const (
	HistoryLimit         = 10
	RecommendationsLimit = 20
)

// rawLogLimit caps how much unparseable LLM output is logged.
const rawLogLimit = 500

// Generator produces raw recommendation text for a user query.
// *llm.Model satisfies it.
type Generator interface {
	RecommendMovies(ctx context.Context, userQuery string) (string, error)
}

// RecommendationService runs the recommend flow and serves read operations.
type RecommendationService struct {
	store   store.Store
	llm     Generator
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(s store.Store, gen Generator, mc *metrics.Collector, logger *slog.Logger) *RecommendationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendationService{
		store:   s,
		llm:     gen,
		metrics: mc,
		logger:  logger,
	}
}

// RecommendRequest is the input of Recommend.
type RecommendRequest struct {
	UserQuery string
	UserID    string
}

// RecommendResult is the outcome of a successful Recommend.
type RecommendResult struct {
	Query            string
	Recommendations  []models.Movie
	RecommendationID string
	Shape            parser.Shape
}

// Recommend validates the query, logs it to the user's history, asks the LLM,
// normalizes the reply, and persists the resulting record.
//
// History logging is best-effort: a failed write is logged and counted but
// does not fail the request. Nothing is persisted when the LLM call or
// normalization fails.
func (s *RecommendationService) Recommend(ctx context.Context, req RecommendRequest) (*RecommendResult, error) {
	if strings.TrimSpace(req.UserQuery) == "" {
		return nil, fmt.Errorf("%w: user query is required", ErrValidation)
	}

	if req.UserID != "" {
		if _, err := s.store.RecordSearch(ctx, req.UserID, req.UserQuery); err != nil {
			s.logger.Warn("failed to record search history", "user_id", req.UserID, "error", err)
			s.metrics.Inc(metrics.EventHistoryWriteFailed)
		}
	}

	raw, err := s.llm.RecommendMovies(ctx, req.UserQuery)
	if err != nil {
		s.metrics.Inc(metrics.EventUpstreamFailure)
		s.logger.Error("llm request failed", "user_id", req.UserID, "error", err)
		return nil, &UpstreamError{Err: err}
	}

	start := time.Now()
	normalized, err := parser.Normalize(raw)
	s.metrics.RecordTiming(metrics.OpNormalize, time.Since(start), err)
	if err != nil {
		s.metrics.Inc(metrics.EventParseFailure)
		s.logger.Warn("failed to parse llm response", "error", err, "raw", truncate(raw, rawLogLimit))
		return nil, err
	}
	s.logger.Debug("normalized llm response", "shape", normalized.Shape.String(), "movies", len(normalized.Movies))

	rec, err := s.store.SaveRecommendation(ctx, req.UserQuery, normalized.Movies, req.UserID)
	if err != nil {
		s.logger.Error("failed to save recommendation", "error", err)
		return nil, fmt.Errorf("%w: save recommendation: %w", ErrStore, err)
	}
	s.metrics.Inc(metrics.EventRecommendation)

	return &RecommendResult{
		Query:            req.UserQuery,
		Recommendations:  normalized.Movies,
		RecommendationID: rec.ID,
		Shape:            normalized.Shape,
	}, nil
}

// History returns the user's 10 most recent searches.
func (s *RecommendationService) History(ctx context.Context, userID string) ([]models.SearchHistoryEntry, error) {
	entries, err := s.store.GetHistory(ctx, userID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: get history: %w", ErrStore, err)
	}
	return entries, nil
}

// RecommendationsForUser returns the user's 20 most recent records.
func (s *RecommendationService) RecommendationsForUser(ctx context.Context, userID string) ([]models.RecommendationRecord, error) {
	recs, err := s.store.GetRecommendationsForUser(ctx, userID, RecommendationsLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: get recommendations: %w", ErrStore, err)
	}
	return recs, nil
}

// Recommendation returns one record, or store.ErrNotFound.
func (s *RecommendationService) Recommendation(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	rec, err := s.store.GetRecommendationByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get recommendation: %w", ErrStore, err)
	}
	return rec, nil
}

// Ready reports whether the store is reachable.
func (s *RecommendationService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
