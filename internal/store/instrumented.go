package store

import (
	"context"
	"errors"
	"time"

	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/raphaelgruber/nextwatch/internal/models"
)

// Instrumented records timing for every store call in a metrics collector.
type Instrumented struct {
	next    Store
	metrics *metrics.Collector
}

var _ Store = (*Instrumented)(nil)

// WithMetrics wraps s so reads count as db_query and writes as db_write.
func WithMetrics(s Store, mc *metrics.Collector) *Instrumented {
	return &Instrumented{next: s, metrics: mc}
}

func (s *Instrumented) observe(op string, start time.Time, err error) {
	// A miss is a normal answer, not a failed query.
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	s.metrics.RecordTiming(op, time.Since(start), err)
}

func (s *Instrumented) RecordSearch(ctx context.Context, userID, query string) (*models.SearchHistoryEntry, error) {
	start := time.Now()
	entry, err := s.next.RecordSearch(ctx, userID, query)
	s.observe(metrics.OpDBWrite, start, err)
	return entry, err
}

func (s *Instrumented) SaveRecommendation(ctx context.Context, userQuery string, movies []models.Movie, userID string) (*models.RecommendationRecord, error) {
	start := time.Now()
	rec, err := s.next.SaveRecommendation(ctx, userQuery, movies, userID)
	s.observe(metrics.OpDBWrite, start, err)
	return rec, err
}

func (s *Instrumented) GetHistory(ctx context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error) {
	start := time.Now()
	entries, err := s.next.GetHistory(ctx, userID, limit)
	s.observe(metrics.OpDBQuery, start, err)
	return entries, err
}

func (s *Instrumented) GetRecommendationsForUser(ctx context.Context, userID string, limit int) ([]models.RecommendationRecord, error) {
	start := time.Now()
	recs, err := s.next.GetRecommendationsForUser(ctx, userID, limit)
	s.observe(metrics.OpDBQuery, start, err)
	return recs, err
}

func (s *Instrumented) GetRecommendationByID(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	start := time.Now()
	rec, err := s.next.GetRecommendationByID(ctx, id)
	s.observe(metrics.OpDBQuery, start, err)
	return rec, err
}

func (s *Instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *Instrumented) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
