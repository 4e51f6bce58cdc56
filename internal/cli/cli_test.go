package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/raphaelgruber/nextwatch/internal/models"
	"github.com/raphaelgruber/nextwatch/internal/server"
	"github.com/raphaelgruber/nextwatch/internal/service"
	"github.com/raphaelgruber/nextwatch/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedGenerator string

func (g cannedGenerator) RecommendMovies(context.Context, string) (string, error) {
	return string(g), nil
}

const cannedMovies = `{"movies":[
	{"title":"Heat","year":1995,"genre":"Crime","director":"Michael Mann","whyRecommended":"the definitive heist"},
	{"title":"Thief","year":1981}
]}`

func startServer(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mc := metrics.NewCollector()
	svc := service.NewRecommendationService(store.NewMemoryStore(), cannedGenerator(cannedMovies), mc, logger)
	ts := httptest.NewServer(server.NewRouter(server.NewHandler(svc, mc, logger), nil, logger))
	t.Cleanup(ts.Close)
	return ts.URL
}

// execute runs the root command with fresh global flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	verbose, jsonOut, serverURL = false, false, ""
	recommendUser, recommendPlain = "", false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestRecommendAndBrowse(t *testing.T) {
	url := startServer(t)

	out, err := execute(t, "--server", url, "recommend", "--plain", "-u", "alice", "tense", "heist", "movies")
	require.NoError(t, err)
	assert.Contains(t, out, "2 picks for \"tense heist movies\"")
	assert.Contains(t, out, "Heat (1995)")
	assert.Contains(t, out, "Crime · dir. Michael Mann")
	assert.Contains(t, out, "Why: the definitive heist")

	out, err = execute(t, "--server", url, "history", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Searches (1)")
	assert.Contains(t, out, "tense heist movies")

	out, err = execute(t, "--server", url, "--json", "list", "alice")
	require.NoError(t, err)
	var records []models.RecommendationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].UserID)

	out, err = execute(t, "--server", url, "show", records[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "tense heist movies")
	assert.Contains(t, out, "Thief (1981)")
}

func TestShowMissing(t *testing.T) {
	url := startServer(t)

	_, err := execute(t, "--server", url, "show", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListEmpty(t *testing.T) {
	url := startServer(t)

	out, err := execute(t, "--server", url, "list", "nobody")
	require.NoError(t, err)
	assert.Contains(t, out, "No recommendations found.")
}

func TestHealthAndStats(t *testing.T) {
	url := startServer(t)

	out, err := execute(t, "--server", url, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "ready")

	_, err = execute(t, "--server", url, "recommend", "--plain", "anything")
	require.NoError(t, err)

	out, err = execute(t, "--server", url, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Normalize:")
	assert.Contains(t, out, metrics.EventRecommendation)
}

func TestRecommendServerDown(t *testing.T) {
	_, err := execute(t, "--server", "http://127.0.0.1:1", "recommend", "--plain", "x")
	require.Error(t, err)
}
