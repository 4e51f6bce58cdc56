package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/raphaelgruber/nextwatch/internal/models"
	"github.com/raphaelgruber/nextwatch/internal/service"
	"github.com/raphaelgruber/nextwatch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	reply string
	err   error
}

func (g *fakeGenerator) RecommendMovies(context.Context, string) (string, error) {
	return g.reply, g.err
}

// brokenStore fails reads and pings.
type brokenStore struct{ store.MemoryStore }

var errDown = errors.New("database is down")

func (*brokenStore) GetHistory(context.Context, string, int) ([]models.SearchHistoryEntry, error) {
	return nil, errDown
}

func (*brokenStore) GetRecommendationsForUser(context.Context, string, int) ([]models.RecommendationRecord, error) {
	return nil, errDown
}

func (*brokenStore) GetRecommendationByID(context.Context, string) (*models.RecommendationRecord, error) {
	return nil, errDown
}

func (*brokenStore) Ping(context.Context) error { return errDown }

const llmReply = `{"movies":[{"title":"Blade Runner","year":1982,"genre":"Sci-Fi","rating":"8.1","cast":["Harrison Ford"]},{"title":"Gattaca","year":1997},{"title":"Ex Machina","year":2014},{"title":"Her","year":2013}]}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T, st store.Store, gen service.Generator) http.Handler {
	t.Helper()
	mc := metrics.NewCollector()
	svc := service.NewRecommendationService(st, gen, mc, testLogger())
	return NewRouter(NewHandler(svc, mc, testLogger()), nil, testLogger())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{})

	rec := do(t, h, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	body := decode[healthResponse](t, rec)
	assert.Equal(t, "OK", body.Status)
	assert.NotEmpty(t, body.Message)
	_, err := time.Parse(time.RFC3339Nano, body.Timestamp)
	assert.NoError(t, err)
}

func TestReady(t *testing.T) {
	ok := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{})
	assert.Equal(t, http.StatusOK, do(t, ok, http.MethodGet, "/api/health/ready", "").Code)

	down := newTestRouter(t, &brokenStore{}, &fakeGenerator{})
	rec := do(t, down, http.MethodGet, "/api/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, decode[errorResponse](t, rec).Success)
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCORSHeaders(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{})

	req := httptest.NewRequest(http.MethodOptions, "/api/recommend", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRecommendFlow(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{reply: llmReply})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"userQuery":"moody sci-fi","userId":"u1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[recommendResponse](t, rec)
	assert.True(t, body.Success)
	assert.Equal(t, "moody sci-fi", body.Query)
	require.Len(t, body.Recommendations, 3)
	assert.Equal(t, "Blade Runner", body.Recommendations[0].Title)
	assert.Equal(t, 1982, body.Recommendations[0].Year)
	require.NotEmpty(t, body.RecommendationID)

	// Fetch by id.
	rec = do(t, h, http.MethodGet, "/api/recommendation/"+body.RecommendationID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	one := decode[recommendationResponse](t, rec)
	assert.True(t, one.Success)
	assert.Equal(t, "moody sci-fi", one.Recommendation.UserQuery)
	assert.Equal(t, "u1", one.Recommendation.UserID)
	assert.Equal(t, body.Recommendations, one.Recommendation.Recommendations)

	// History.
	rec = do(t, h, http.MethodGet, "/api/history/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[historyResponse](t, rec)
	require.Len(t, history.History, 1)
	assert.Equal(t, "moody sci-fi", history.History[0].Query)

	// Recommendations for user.
	rec = do(t, h, http.MethodGet, "/api/recommendations/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[recommendationsResponse](t, rec)
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, body.RecommendationID, recs.Recommendations[0].ID)
}

func TestRecommendMovieJSONOmitsEmptyFields(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{reply: `[{"title":"Gattaca"}]`})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"userQuery":"q"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		Recommendations []map[string]any `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Recommendations, 1)
	assert.Equal(t, map[string]any{"title": "Gattaca"}, raw.Recommendations[0])
}

func TestRecommendBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing query", `{"userId":"u1"}`, errQueryRequired},
		{"empty query", `{"userQuery":""}`, errQueryRequired},
		{"blank query", `{"userQuery":"   "}`, errQueryRequired},
		{"empty body", ``, errQueryRequired},
		{"malformed json", `{"userQuery":`, errInvalidBody},
		{"wrong type", `{"userQuery":42}`, errInvalidBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			h := newTestRouter(t, st, &fakeGenerator{reply: llmReply})

			req := httptest.NewRequest(http.MethodPost, "/api/recommend", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[errorResponse](t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantErr, body.Error)

			history, err := st.GetHistory(context.Background(), "u1", 10)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestRecommendUpstreamFailure(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{err: errors.New("provider exploded")})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"userQuery":"q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, errGenerate, body.Error)
	assert.Equal(t, "provider exploded", body.Message)
}

func TestRecommendParseFailure(t *testing.T) {
	st := store.NewMemoryStore()
	h := newTestRouter(t, st, &fakeGenerator{reply: "I recommend Heat."})

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"userQuery":"q","userId":"u1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Failed to generate recommendations","message":"Failed to parse movie recommendations"}`, rec.Body.String())

	recs, err := st.GetRecommendationsForUser(context.Background(), "u1", 20)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestEmptyListsAreArrays(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{})

	rec := do(t, h, http.MethodGet, "/api/history/nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"history":[]}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/recommendations/nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"recommendations":[]}`, rec.Body.String())
}

func TestRecommendLongUserID(t *testing.T) {
	st := store.NewMemoryStore()
	h := newTestRouter(t, st, &fakeGenerator{reply: llmReply})
	userID := strings.Repeat("u", 300)

	rec := do(t, h, http.MethodPost, "/api/recommend", `{"userQuery":"moody sci-fi","userId":"`+userID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	history, err := st.GetHistory(context.Background(), userID, service.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "moody sci-fi", history[0].Query)
}

func TestHistoryLimitAndOrder(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{reply: llmReply})

	for i := 0; i < 12; i++ {
		body := fmt.Sprintf(`{"userQuery":"q%d","userId":"u1"}`, i)
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/recommend", body).Code)
	}

	rec := do(t, h, http.MethodGet, "/api/history/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[historyResponse](t, rec).History
	require.Len(t, history, service.HistoryLimit)
	for i, entry := range history {
		assert.Equal(t, fmt.Sprintf("q%d", 11-i), entry.Query)
	}
}

func TestRecommendationsLimitAndOrder(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{reply: llmReply})

	for i := 0; i < 22; i++ {
		body := fmt.Sprintf(`{"userQuery":"q%d","userId":"u1"}`, i)
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/recommend", body).Code)
	}

	rec := do(t, h, http.MethodGet, "/api/recommendations/u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[recommendationsResponse](t, rec).Recommendations
	require.Len(t, recs, service.RecommendationsLimit)
	for i, r := range recs {
		assert.Equal(t, fmt.Sprintf("q%d", 21-i), r.UserQuery)
		assert.Equal(t, "u1", r.UserID)
	}
}

func TestRecommendationReadsAreIdempotent(t *testing.T) {
	newCached := func(t *testing.T) store.Store {
		mr := miniredis.RunT(t)
		client, err := store.NewRedisClient(context.Background(), mr.Addr(), "")
		require.NoError(t, err)
		return store.NewCachedStore(store.NewMemoryStore(), client, time.Minute, nil, testLogger())
	}

	tests := []struct {
		name     string
		newStore func(t *testing.T) store.Store
	}{
		{"memory", func(*testing.T) store.Store { return store.NewMemoryStore() }},
		{"redis cache", newCached},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, tt.newStore(t), &fakeGenerator{reply: llmReply})

			rec := do(t, h, http.MethodPost, "/api/recommend", `{"userQuery":"moody sci-fi","userId":"u1"}`)
			require.Equal(t, http.StatusOK, rec.Code)
			id := decode[recommendResponse](t, rec).RecommendationID

			first := do(t, h, http.MethodGet, "/api/recommendation/"+id, "")
			require.Equal(t, http.StatusOK, first.Code)
			second := do(t, h, http.MethodGet, "/api/recommendation/"+id, "")
			require.Equal(t, http.StatusOK, second.Code)
			third := do(t, h, http.MethodGet, "/api/recommendation/"+id, "")
			require.Equal(t, http.StatusOK, third.Code)

			assert.Equal(t, first.Body.String(), second.Body.String())
			assert.Equal(t, first.Body.String(), third.Body.String())
		})
	}
}

func TestRecommendationNotFound(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{})

	rec := do(t, h, http.MethodGet, "/api/recommendation/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errRecommendationGone, decode[errorResponse](t, rec).Error)
}

func TestStoreFailures(t *testing.T) {
	h := newTestRouter(t, &brokenStore{}, &fakeGenerator{})

	tests := []struct {
		path    string
		wantErr string
	}{
		{"/api/history/u1", errFetchHistory},
		{"/api/recommendations/u1", errFetchRecs},
		{"/api/recommendation/abc", errFetchRec},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode[errorResponse](t, rec)
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantErr, body.Error)
		})
	}
}

func TestStatsAndMetrics(t *testing.T) {
	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{reply: llmReply})
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/recommend", `{"userQuery":"q"}`).Code)

	rec := do(t, h, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[metrics.Snapshot](t, rec)
	assert.Equal(t, int64(1), snap.Events[metrics.EventRecommendation])

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nextwatch_http_requests_total")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	h := newTestRouter(t, store.NewMemoryStore(), &fakeGenerator{})
	srv := New(ln.Addr().String(), h, 30*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestWriteTimeoutCoversLLMTimeout(t *testing.T) {
	tests := []struct {
		llm  time.Duration
		want time.Duration
	}{
		{0, 90 * time.Second},
		{30 * time.Second, 90 * time.Second},
		{60 * time.Second, 90 * time.Second},
		{2 * time.Minute, 150 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.llm.String(), func(t *testing.T) {
			srv := New(":0", http.NotFoundHandler(), tt.llm, testLogger())
			assert.Equal(t, tt.want, srv.http.WriteTimeout)
			assert.Greater(t, srv.http.WriteTimeout, tt.llm)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
