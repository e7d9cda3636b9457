package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericfisherdev/otpdeck/internal/adapter/driven/docstore"
	httphandler "github.com/ericfisherdev/otpdeck/internal/adapter/driving/http"
	"github.com/ericfisherdev/otpdeck/internal/adapter/driving/web"
	"github.com/ericfisherdev/otpdeck/internal/application"
	"github.com/ericfisherdev/otpdeck/internal/config"
	"github.com/ericfisherdev/otpdeck/internal/domain/model"
	"github.com/ericfisherdev/otpdeck/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store,
		"data_dir", cfg.DataDir,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"encrypted", cfg.SecretKey != nil,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the document store.
	backend, err := docstore.Open(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			slog.Error("error closing document store", "error", closeErr)
		}
	}()
	slog.Info("document store opened", "store", cfg.Store, "location", backend.Location)

	configs := application.NewConfigStore(backend.Store, slog.Default())

	// 4. Seed the first-boot document. A corrupt document is left for the
	// operator; the server still starts so an upload can replace it.
	seeded, err := configs.EnsureSeeded(ctx, cfg.SeedDemo)
	switch {
	case errors.Is(err, driven.ErrCorrupt):
		slog.Error("authoritative document is corrupt; upload a configuration or run otpctl reset", "error", err)
	case err != nil:
		return err
	case seeded:
		slog.Info("default configuration written", "demo", cfg.SeedDemo)
	}

	// 5. Start the runtime checkpoint.
	syncSvc := application.NewSyncService(configs, backend.Notifier, cfg.PollInterval, slog.Default())
	syncSvc.OnReload(func(doc model.Document) {
		slog.Info("display configuration updated",
			"accounts", len(doc.Accounts),
			"pages", doc.Pages(),
			"rotation_interval", doc.Settings.RotationInterval,
		)
	})
	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		syncSvc.Start(ctx)
	}()

	// 6. Render the configuration page once.
	page, err := web.RenderIndex(ctx, cfg.Banner)
	if err != nil {
		return err
	}

	// 7. Create the control server.
	handler := httphandler.NewHandler(configs, page, slog.Default())
	srv := httphandler.NewServer(
		httphandler.NewRouter(handler, slog.Default()),
		httphandler.Options{
			MaxRequestBytes: cfg.MaxRequestBytes,
			ReadTimeout:     cfg.ReadTimeout,
		},
		slog.Default(),
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(ctx, cfg.ListenAddr)
	}()

	// 8. Log startup complete.
	slog.Info("otpdeck started",
		"listen_addr", cfg.ListenAddr,
		"page_bytes", len(page),
	)

	// 9. Wait for shutdown signal or a fatal server error.
	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case runErr = <-serveErr:
		slog.Error("control server failed", "error", runErr)
		stop()
	}

	// 10. Let the in-flight request and checkpoint finish, bounded by 10s.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if runErr == nil {
		select {
		case err := <-serveErr:
			if err != nil {
				slog.Error("control server shutdown error", "error", err)
			}
		case <-shutdownCtx.Done():
			slog.Warn("control server did not stop in time")
		}
	}
	select {
	case <-syncDone:
	case <-shutdownCtx.Done():
		slog.Warn("sync service did not stop in time")
	}

	// 11. Log shutdown complete.
	slog.Info("shutdown complete")
	return runErr
}
