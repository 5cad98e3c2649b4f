// Package main implements the background worker that keeps the API in sync
// with the seed directory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dsjohal14/tourstack/internal/libs/config"
	"github.com/dsjohal14/tourstack/internal/libs/obs"
	"github.com/dsjohal14/tourstack/internal/relay"
	"github.com/dsjohal14/tourstack/internal/streamlite"
)

const syncWorkers = 4

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	obs.InitLogger(cfg.LogLevel)
	logger := obs.Logger("worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := streamlite.NewFileConnector(cfg.SeedDir)
	if err := conn.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start connector")
	}
	defer func() { _ = conn.Stop() }()

	client := relay.New(cfg.APIURL, relay.WithLogger(obs.Logger("relay")))

	logger.Info().
		Str("source", conn.Name()).
		Str("api_url", cfg.APIURL).
		Dur("interval", cfg.SyncInterval).
		Msg("worker started")

	runLoop(ctx, cfg.SyncInterval, func(ctx context.Context) {
		syncOnce(ctx, conn, client, logger)
	})

	logger.Info().Msg("worker stopped")
}

// runLoop calls fn immediately and then every interval until ctx is done
func runLoop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func syncOnce(ctx context.Context, conn streamlite.Connector, sink streamlite.Sink, logger zerolog.Logger) {
	start := time.Now()
	batches, err := conn.Read(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read seed files")
		return
	}

	stats, err := streamlite.Sync(ctx, batches, sink, streamlite.DefaultChunkSize, syncWorkers)
	event := logger.Info()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.
		Int("jobs", stats.Jobs).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("rejected", stats.Rejected).
		Int("failed", stats.Failed).
		Dur("took", time.Since(start)).
		Msg("sync finished")
}
