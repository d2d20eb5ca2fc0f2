// Statusphere - AT Protocol Status Indexer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/statusphere

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/statusphere/internal/api"
	"github.com/tomtom215/statusphere/internal/backfill"
	"github.com/tomtom215/statusphere/internal/cache"
	"github.com/tomtom215/statusphere/internal/config"
	"github.com/tomtom215/statusphere/internal/cursor"
	"github.com/tomtom215/statusphere/internal/database"
	"github.com/tomtom215/statusphere/internal/ingest"
	"github.com/tomtom215/statusphere/internal/jetstream"
	"github.com/tomtom215/statusphere/internal/logging"
	"github.com/tomtom215/statusphere/internal/projector"
	"github.com/tomtom215/statusphere/internal/supervisor"
	"github.com/tomtom215/statusphere/internal/supervisor/services"
	"github.com/tomtom215/statusphere/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		// Logging is not configured yet; the default logger writes JSON to stderr.
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("jetstream", cfg.Jetstream.URL).
		Strs("collections", cfg.Jetstream.WantedCollections).
		Msg("Starting Statusphere indexer")

	logging.Info().Msg("Initializing database...")
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	var projOpts []projector.Option
	var hub *websocket.Hub
	if cfg.API.LiveFeed {
		hub = websocket.NewHub()
		projOpts = append(projOpts, projector.WithListener(hub))
	}
	proj := projector.New(db, projector.DefaultConfig(), projOpts...)

	var ingestOpts []ingest.Option
	if cfg.Cursor.Enabled {
		cursors, err := cursor.Open(&cfg.Cursor)
		if err != nil {
			return fmt.Errorf("open cursor store: %w", err)
		}
		// Deferred after the database so it closes first, once the tree has
		// flushed the final cursor.
		defer func() {
			if err := cursors.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing cursor store")
			}
		}()
		ingestOpts = append(ingestOpts, ingest.WithCursorStore(cursors))
	} else {
		logging.Info().Msg("Cursor store disabled, every connection starts live")
	}
	if cfg.Backfill.Enabled {
		ingestOpts = append(ingestOpts, ingest.WithPreloader(backfill.New(backfill.ConfigFrom(&cfg.Backfill), proj, nil)))
		logging.Info().Str("relay", cfg.Backfill.RelayURL).Msg("Backfill enabled, runs before streaming")
	}

	client := jetstream.NewClient(jetstream.Config{
		URL:               cfg.Jetstream.URL,
		WantedCollections: cfg.Jetstream.WantedCollections,
		HandshakeTimeout:  cfg.Jetstream.HandshakeTimeout,
		PingInterval:      cfg.Jetstream.PingInterval,
	})
	ingester := ingest.New(ingest.JetstreamDialer{Client: client}, proj, ingest.ConfigFrom(&cfg.Ingest), ingestOpts...)

	handlerOpts := []api.Option{
		api.WithIngestStatus(ingester),
		api.WithBreakerStatus(proj),
	}
	if cfg.API.PopularCacheTTL > 0 {
		popular := cache.New(cfg.API.PopularCacheTTL)
		defer popular.Close()
		handlerOpts = append(handlerOpts, api.WithPopularCache(popular))
	}
	if hub != nil {
		handlerOpts = append(handlerOpts, api.WithLiveFeed(hub, cfg.Security.CORSOrigins))
	}
	handler := api.NewHandler(db, cfg.API, handlerOpts...)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	logging.Info().Msg("Initializing supervisor tree...")
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewCheckpointService(db, cfg.Database.CheckpointInterval))
	tree.AddIngestService(ingester)
	if hub != nil {
		tree.AddAPIService(hub)
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)
	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree started")

	<-ctx.Done()
	logging.Info().Msg("Shutting down gracefully...")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree stopped with error")
		}
	case <-time.After(cfg.Supervisor.ShutdownTimeout + 5*time.Second):
		logging.Warn().Msg("Supervisor tree did not stop in time")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
