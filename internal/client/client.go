// Package client provides a REST client for the Next Watch server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/raphaelgruber/nextwatch/internal/models"
)

// DefaultServerURL is used when neither an explicit URL nor NEXTWATCH_SERVER_URL is set.
const DefaultServerURL = "http://localhost:3001"

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found")

// Client talks to the Next Watch HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new REST client.
// If baseURL is empty, uses NEXTWATCH_SERVER_URL or defaults to localhost:3001.
// Timeout can be configured via NEXTWATCH_CLIENT_TIMEOUT (default 2m, enough for a slow LLM call).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("NEXTWATCH_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = DefaultServerURL
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("NEXTWATCH_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the server URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Err        string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s: %s", e.StatusCode, e.Err, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Err)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// do sends a request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Err == "" {
			apiErr.Err = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health is the answer of the health endpoints.
type Health struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Ready checks that the server can reach its store.
func (c *Client) Ready(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/api/health/ready", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Stats fetches the server's in-memory metrics snapshot.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var s metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// =============================================================================
// RECOMMENDATIONS
// =============================================================================

// Recommendation is the answer of a successful recommend call.
type Recommendation struct {
	Query            string         `json:"query"`
	Recommendations  []models.Movie `json:"recommendations"`
	RecommendationID string         `json:"recommendationId"`
}

// Recommend asks the server for movie recommendations.
func (c *Client) Recommend(ctx context.Context, query, userID string) (*Recommendation, error) {
	body := map[string]string{"userQuery": query}
	if userID != "" {
		body["userId"] = userID
	}

	var rec Recommendation
	if err := c.do(ctx, http.MethodPost, "/api/recommend", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// History returns the user's recent searches, newest first.
func (c *Client) History(ctx context.Context, userID string) ([]models.SearchHistoryEntry, error) {
	var resp struct {
		History []models.SearchHistoryEntry `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/history/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// Recommendations returns the user's recent recommendation records, newest first.
func (c *Client) Recommendations(ctx context.Context, userID string) ([]models.RecommendationRecord, error) {
	var resp struct {
		Recommendations []models.RecommendationRecord `json:"recommendations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/recommendations/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

// GetRecommendation fetches a single record. Returns an error matching ErrNotFound on 404.
func (c *Client) GetRecommendation(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	var resp struct {
		Recommendation *models.RecommendationRecord `json:"recommendation"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/recommendation/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Recommendation == nil {
		return nil, ErrNotFound
	}
	return resp.Recommendation, nil
}
