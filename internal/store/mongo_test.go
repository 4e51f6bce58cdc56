package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMongo runs a throwaway MongoDB container and returns its URI.
func startMongo(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start MongoDB container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://%s:%s/next-watch-test", host, port.Port())
}

func TestMongoStore(t *testing.T) {
	uri := startMongo(t)
	ctx := context.Background()

	s, err := NewMongoStore(ctx, uri, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	runStoreContract(t, func(t *testing.T) Store {
		require.NoError(t, s.Drop(ctx))
		return s
	})

	t.Run("malformed object id is not found", func(t *testing.T) {
		_, err := s.GetRecommendationByID(ctx, "not-an-object-id")
		assert.True(t, errors.Is(err, ErrNotFound))

		_, err = s.GetRecommendationByID(ctx, "65a1b2c3d4e5f6a7b8c9d0e1")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestNewMongoStore_BadURI(t *testing.T) {
	_, err := NewMongoStore(context.Background(), "not a uri", nil)
	assert.Error(t, err)
}
