// Package main provides the REST server for Next Watch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/raphaelgruber/nextwatch/internal/config"
	"github.com/raphaelgruber/nextwatch/internal/db"
	"github.com/raphaelgruber/nextwatch/internal/llm"
	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/raphaelgruber/nextwatch/internal/server"
	"github.com/raphaelgruber/nextwatch/internal/service"
	"github.com/raphaelgruber/nextwatch/internal/store"
)

const version = "0.1.0"

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all data from the SurrealDB store on startup (testing only)")
	flag.Parse()

	if err := run(*wipeDB || os.Getenv("NEXTWATCH_WIPE_DB") == "true"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wipe bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() { _ = cleanup() }()
	slog.SetDefault(logger)

	logger.Info("nextwatch-server starting",
		"version", version,
		"store", cfg.StoreBackend,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mc := metrics.NewCollector()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	s, err := openStore(startCtx, cfg, wipe, mc, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Close(closeCtx); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	model, err := llm.NewModel(ctx, cfg, mc, logger)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	svc := service.NewRecommendationService(s, model, mc, logger)
	router := server.NewRouter(server.NewHandler(svc, mc, logger), cfg.CORSOrigins, logger)

	logger.Info("API available", "url", fmt.Sprintf("http://%s/api", cfg.Addr()))
	if err := server.New(cfg.Addr(), router, cfg.LLMTimeout, logger).Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore connects the configured backend and layers metrics and the
// optional Redis cache on top.
func openStore(ctx context.Context, cfg config.Config, wipe bool, mc *metrics.Collector, logger *slog.Logger) (store.Store, error) {
	var base store.Store
	switch cfg.StoreBackend {
	case config.BackendSurrealDB:
		client, err := db.NewClient(ctx, db.ConfigFrom(cfg), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to SurrealDB: %w", err)
		}
		if err := client.InitSchema(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("init schema: %w", err)
		}
		if wipe {
			if err := client.WipeData(ctx); err != nil {
				_ = client.Close(ctx)
				return nil, fmt.Errorf("wipe database: %w", err)
			}
		}
		base = client
	case config.BackendMongoDB:
		ms, err := store.NewMongoStore(ctx, cfg.MongoDBURI, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		base = ms
	case config.BackendMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		base = store.NewMemoryStore()
	default:
		return nil, errors.New("unsupported store backend: " + cfg.StoreBackend)
	}
	if wipe && cfg.StoreBackend != config.BackendSurrealDB {
		logger.Warn("--wipe only applies to the SurrealDB store", "store", cfg.StoreBackend)
	}

	var s store.Store = store.WithMetrics(base, mc)
	if cfg.RedisAddr == "" {
		return s, nil
	}

	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		_ = s.Close(ctx)
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}
	logger.Info("recommendation cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	return store.NewCachedStore(s, rdb, cfg.CacheTTL, mc, logger), nil
}
