package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/nextwatch/internal/models"
	"github.com/raphaelgruber/nextwatch/internal/store"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

var _ store.Store = (*Client)(nil)

type recommendationRow struct {
	ID              surrealmodels.RecordID `json:"id"`
	UserQuery       string                 `json:"user_query"`
	Recommendations []models.Movie         `json:"recommendations"`
	UserID          string                 `json:"user_id"`
	CreatedAt       time.Time              `json:"created_at"`
}

func (r recommendationRow) toModel() (models.RecommendationRecord, error) {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		return models.RecommendationRecord{}, err
	}
	movies := r.Recommendations
	if movies == nil {
		movies = []models.Movie{}
	}
	return models.RecommendationRecord{
		ID:              id,
		UserQuery:       r.UserQuery,
		Recommendations: movies,
		UserID:          r.UserID,
		CreatedAt:       r.CreatedAt.UTC(),
	}, nil
}

type historyRow struct {
	ID        surrealmodels.RecordID `json:"id"`
	UserID    string                 `json:"user_id"`
	Query     string                 `json:"query"`
	Timestamp time.Time              `json:"timestamp"`
}

func (r historyRow) toModel() (models.SearchHistoryEntry, error) {
	id, err := models.RecordIDString(r.ID)
	if err != nil {
		return models.SearchHistoryEntry{}, err
	}
	return models.SearchHistoryEntry{
		ID:        id,
		UserID:    r.UserID,
		Query:     r.Query,
		Timestamp: r.Timestamp.UTC(),
	}, nil
}

// newRecordID returns a time-ordered key, so "id DESC" breaks timestamp ties
// newest insertion first.
func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	return id.String(), nil
}

// RecordSearch appends a search history entry.
func (c *Client) RecordSearch(ctx context.Context, userID, query string) (*models.SearchHistoryEntry, error) {
	id, err := newRecordID()
	if err != nil {
		return nil, err
	}

	results, err := surrealdb.Query[[]historyRow](ctx, c.db, `
		CREATE type::record("search_history", $id) SET
			user_id = $user_id,
			query = $query
		RETURN AFTER
	`, map[string]any{
		"id":      id,
		"user_id": userID,
		"query":   query,
	})
	if err != nil {
		return nil, fmt.Errorf("record search: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("record search: no result returned")
	}
	entry, err := (*results)[0].Result[0].toModel()
	if err != nil {
		return nil, fmt.Errorf("record search: %w", err)
	}
	return &entry, nil
}

// SaveRecommendation creates an immutable recommendation record.
func (c *Client) SaveRecommendation(ctx context.Context, userQuery string, movies []models.Movie, userID string) (*models.RecommendationRecord, error) {
	if movies == nil {
		movies = []models.Movie{}
	}
	id, err := newRecordID()
	if err != nil {
		return nil, err
	}

	results, err := surrealdb.Query[[]recommendationRow](ctx, c.db, `
		CREATE type::record("recommendation", $id) SET
			user_query = $user_query,
			recommendations = $recommendations,
			user_id = $user_id
		RETURN AFTER
	`, map[string]any{
		"id":              id,
		"user_query":      userQuery,
		"recommendations": movies,
		"user_id":         models.NormalizeUserID(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("save recommendation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("save recommendation: no result returned")
	}
	rec, err := (*results)[0].Result[0].toModel()
	if err != nil {
		return nil, fmt.Errorf("save recommendation: %w", err)
	}
	return &rec, nil
}

// GetHistory returns a user's most recent searches, newest first.
func (c *Client) GetHistory(ctx context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error) {
	results, err := surrealdb.Query[[]historyRow](ctx, c.db, `
		SELECT * FROM search_history
		WHERE user_id = $user_id
		ORDER BY timestamp DESC, id DESC
		LIMIT $limit
	`, map[string]any{
		"user_id": userID,
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	out := []models.SearchHistoryEntry{}
	if results == nil || len(*results) == 0 {
		return out, nil
	}
	for _, row := range (*results)[0].Result {
		entry, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("get history: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// GetRecommendationsForUser returns a user's most recent records, newest first.
func (c *Client) GetRecommendationsForUser(ctx context.Context, userID string, limit int) ([]models.RecommendationRecord, error) {
	results, err := surrealdb.Query[[]recommendationRow](ctx, c.db, `
		SELECT * FROM recommendation
		WHERE user_id = $user_id
		ORDER BY created_at DESC, id DESC
		LIMIT $limit
	`, map[string]any{
		"user_id": userID,
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("get recommendations: %w", err)
	}

	out := []models.RecommendationRecord{}
	if results == nil || len(*results) == 0 {
		return out, nil
	}
	for _, row := range (*results)[0].Result {
		rec, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("get recommendations: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetRecommendationByID retrieves a single record.
// Returns ErrNotFound if no record has that ID.
func (c *Client) GetRecommendationByID(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	results, err := surrealdb.Query[[]recommendationRow](ctx, c.db, `
		SELECT * FROM type::record("recommendation", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	rec, err := (*results)[0].Result[0].toModel()
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	return &rec, nil
}
