// Package main implements the HTTP API server for tourstack.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	apihttp "github.com/dsjohal14/tourstack/internal/http"
	"github.com/dsjohal14/tourstack/internal/libs/config"
	"github.com/dsjohal14/tourstack/internal/libs/obs"
	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/content/wal"
	"github.com/dsjohal14/tourstack/internal/scope/search"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init logger
	obs.InitLogger(cfg.LogLevel)
	logger := obs.Logger("api")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, obs.Logger("store"))
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	engine, err := openEngine(cfg)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to initialize search engine: %w", err)
	}

	catalog := content.NewCatalog(store, engine, content.WithLogger(obs.Logger("catalog")))
	defer func() {
		if ws, ok := store.(*content.WALStore); ok {
			if _, err := ws.Compact(context.Background()); err != nil {
				logger.Error().Err(err).Msg("WAL compaction failed")
			}
		}
		if err := catalog.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close catalog")
		}
	}()

	if _, err := catalog.Rebuild(ctx); err != nil {
		return fmt.Errorf("failed to index entities: %w", err)
	}

	handler := apihttp.NewHandler(catalog, apihttp.SearchConfig{
		Limit:      cfg.SearchLimit,
		SuggestMax: cfg.SuggestMax,
		Options:    []search.Option{search.WithScorer(scorer(cfg))},
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           apihttp.NewRouter(handler, obs.Logger("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store).
			Str("engine", cfg.SearchEngine).
			Str("scorer", cfg.SearchScorer).
			Msg("starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (content.Storage, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Info().Msg("using in-memory store")
		return content.NewMemIndex(), nil

	case config.StoreFile:
		logger.Info().Str("data_dir", cfg.DataDir).Msg("using file store")
		return content.NewStore(cfg.DataDir)

	case config.StorePostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		db, err := content.OpenDB(connectCtx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := content.NewPGStore(db)
		if err := store.EnsureSchema(connectCtx); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info().Msg("using Postgres store")
		return store, nil

	default:
		walConfig := content.DefaultWALStoreConfig(cfg.DataDir)
		walConfig.Logger = logger
		// Configure sync policy
		if cfg.WALSyncImmediate {
			walConfig.SyncPolicy = wal.ImmediateSyncPolicy()
			logger.Info().Msg("using immediate WAL sync policy")
		} else {
			walConfig.SyncPolicy = wal.DefaultSyncPolicy()
			logger.Info().Msg("using batched WAL sync policy")
		}
		logger.Info().Str("wal_dir", walConfig.WALDir).Msg("initializing WAL store")
		return content.NewWALStore(ctx, walConfig)
	}
}

func openEngine(cfg *config.Config) (search.Engine, error) {
	if cfg.SearchEngine == config.EngineBleve {
		// the index is rebuilt from the store on every start
		path := filepath.Join(cfg.DataDir, "search.bleve")
		if err := os.RemoveAll(path); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, err
		}
		return search.NewBleveEngine(path)
	}
	return search.NewMemoryEngine(), nil
}

func scorer(cfg *config.Config) search.Scorer {
	if cfg.SearchScorer == config.ScorerEdit {
		return search.EditDistance
	}
	return search.Similarity
}
