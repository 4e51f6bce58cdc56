// Package store defines the persistence gateway for recommendations and search history.
package store

import (
	"context"
	"errors"

	"github.com/raphaelgruber/nextwatch/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists recommendation records and search history entries.
// Listing operations return newest first; ties keep the newest insertion first.
type Store interface {
	// RecordSearch appends a search history entry timestamped now.
	RecordSearch(ctx context.Context, userID, query string) (*models.SearchHistoryEntry, error)

	// SaveRecommendation persists a new immutable recommendation record.
	// An empty userID is stored as models.DefaultUserID.
	SaveRecommendation(ctx context.Context, userQuery string, movies []models.Movie, userID string) (*models.RecommendationRecord, error)

	GetHistory(ctx context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error)
	GetRecommendationsForUser(ctx context.Context, userID string, limit int) ([]models.RecommendationRecord, error)

	// GetRecommendationByID returns ErrNotFound for unknown or malformed IDs.
	GetRecommendationByID(ctx context.Context, id string) (*models.RecommendationRecord, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
