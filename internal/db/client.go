// Package db implements the SurrealDB recommendation store over an
// auto-reconnecting websocket connection.
package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/nextwatch/internal/config"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

func init() {
	// wss upgrades fail if ALPN negotiates HTTP/2.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection configuration.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// ConfigFrom extracts the SurrealDB settings from the application config.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}
}

// Reconnect policy for the websocket connection.
const (
	dialTimeout       = 5 * time.Second
	reconnectInitial  = time.Second
	reconnectMax      = 30 * time.Second
	reconnectAttempts = 10
)

// Client is the SurrealDB-backed store.Store.
type Client struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	logger logger.Logger
}

// NewClient connects, signs in, and selects the namespace and database.
// The websocket reconnects with exponential backoff after a drop.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	sdkLogger := logger.New(log.Handler())
	codec := surrealcbor.New()

	// gorillaws appends /rpc itself.
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")
	conn := rews.New(
		func(context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			}), nil
		},
		dialTimeout,
		codec,
		sdkLogger,
	)
	conn.Retryer = newRetryer()

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL, "namespace", cfg.Namespace, "database", cfg.Database)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err == nil {
		err = signIn(ctx, db, cfg)
	}
	if err == nil {
		err = db.Use(ctx, cfg.Namespace, cfg.Database)
	}
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("open %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}

	return &Client{conn: conn, db: db, logger: sdkLogger}, nil
}

func newRetryer() *rews.ExponentialBackoffRetryer {
	r := rews.NewExponentialBackoffRetryer()
	r.InitialDelay = reconnectInitial
	r.MaxDelay = reconnectMax
	r.Multiplier = 2
	r.MaxRetries = reconnectAttempts
	return r
}

// signIn authenticates as a root user, or as a database user when
// AuthLevel is "database".
func signIn(ctx context.Context, db *surrealdb.DB, cfg Config) error {
	auth := surrealdb.Auth{Username: cfg.Username, Password: cfg.Password}
	if cfg.AuthLevel == "database" {
		auth.Namespace = cfg.Namespace
		auth.Database = cfg.Database
	}
	if _, err := db.SignIn(ctx, auth); err != nil {
		return fmt.Errorf("signin as %s user: %w", authLevel(cfg), err)
	}
	return nil
}

func authLevel(cfg Config) string {
	if cfg.AuthLevel == "database" {
		return "database"
	}
	return "root"
}

// Close closes the SurrealDB connection.
func (c *Client) Close(ctx context.Context) error {
	c.logger.Info("closing SurrealDB connection")
	return c.conn.Close(ctx)
}

// InitSchema initializes the database schema.
func (c *Client) InitSchema(ctx context.Context) error {
	c.logger.Info("initializing database schema")
	_, err := surrealdb.Query[any](ctx, c.db, SchemaSQL, nil)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	c.logger.Info("schema initialization complete")
	return nil
}

// Ping runs a trivial query to verify the connection is usable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, c.db, "RETURN true", nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WipeData deletes all records while preserving schema.
// Use for testing only.
func (c *Client) WipeData(ctx context.Context) error {
	c.logger.Warn("wiping all data from database")

	for _, table := range []string{"search_history", "recommendation"} {
		query := fmt.Sprintf("DELETE %s", table)
		if _, err := surrealdb.Query[any](ctx, c.db, query, nil); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
		c.logger.Info("deleted table data", "table", table)
	}

	c.logger.Info("database wipe complete")
	return nil
}
