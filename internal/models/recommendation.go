package models

import "time"

// RecommendationRecord is a persisted query together with the movies returned for it.
// Records are immutable once created.
type RecommendationRecord struct {
	ID              string    `json:"id"`
	UserQuery       string    `json:"userQuery"`
	Recommendations []Movie   `json:"recommendations"`
	UserID          string    `json:"userId"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SearchHistoryEntry logs a raw query made by a user.
type SearchHistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeUserID returns DefaultUserID for an empty identifier.
func NormalizeUserID(userID string) string {
	if userID == "" {
		return DefaultUserID
	}
	return userID
}
