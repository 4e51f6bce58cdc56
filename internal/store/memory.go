package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/nextwatch/internal/models"
)

// MemoryStore keeps everything in process memory. Data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	history []models.SearchHistoryEntry
	records []models.RecommendationRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) RecordSearch(_ context.Context, userID, query string) (*models.SearchHistoryEntry, error) {
	entry := models.SearchHistoryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Query:     query,
		Timestamp: s.now().UTC(),
	}

	s.mu.Lock()
	s.history = append(s.history, entry)
	s.mu.Unlock()

	return &entry, nil
}

func (s *MemoryStore) SaveRecommendation(_ context.Context, userQuery string, movies []models.Movie, userID string) (*models.RecommendationRecord, error) {
	rec := models.RecommendationRecord{
		ID:              uuid.NewString(),
		UserQuery:       userQuery,
		Recommendations: cloneMovies(movies),
		UserID:          models.NormalizeUserID(userID),
		CreatedAt:       s.now().UTC(),
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	out := cloneRecord(rec)
	return &out, nil
}

func (s *MemoryStore) GetHistory(_ context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.SearchHistoryEntry{}
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].UserID == userID {
			out = append(out, s.history[i])
		}
	}
	// Stable sort keeps reverse insertion order among equal timestamps.
	slices.SortStableFunc(out, func(a, b models.SearchHistoryEntry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return truncate(out, limit), nil
}

func (s *MemoryStore) GetRecommendationsForUser(_ context.Context, userID string, limit int) ([]models.RecommendationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.RecommendationRecord{}
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			out = append(out, cloneRecord(s.records[i]))
		}
	}
	slices.SortStableFunc(out, func(a, b models.RecommendationRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return truncate(out, limit), nil
}

func (s *MemoryStore) GetRecommendationByID(_ context.Context, id string) (*models.RecommendationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records {
		if rec.ID == id {
			out := cloneRecord(rec)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func cloneMovies(movies []models.Movie) []models.Movie {
	out := make([]models.Movie, len(movies))
	for i, m := range movies {
		m.Cast = slices.Clone(m.Cast)
		out[i] = m
	}
	return out
}

func cloneRecord(rec models.RecommendationRecord) models.RecommendationRecord {
	rec.Recommendations = cloneMovies(rec.Recommendations)
	return rec
}
