// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/gstbackend/internal/api"
	"github.com/ManuGH/gstbackend/internal/backend"
	"github.com/ManuGH/gstbackend/internal/config"
	"github.com/ManuGH/gstbackend/internal/dispatch"
	xglog "github.com/ManuGH/gstbackend/internal/log"
	"github.com/ManuGH/gstbackend/internal/media/metadata"
	"github.com/ManuGH/gstbackend/internal/pipeline/bus"
	"github.com/ManuGH/gstbackend/internal/telemetry"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "gstbackend",
		Version: version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")

	if path != "" {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", path).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(xglog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("engine", string(cfg.Engine)).
		Str("addr", cfg.ListenAddr).
		Msg("starting gstbackend")

	holder := config.NewConfigHolder(cfg, config.NewLoader(path, version), path)
	if err := run(ctx, cfg, holder, logger); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "daemon.failed").
			Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}

// run owns the control loop, the HTTP surface and config hot reload until
// ctx is cancelled.
func run(ctx context.Context, cfg config.AppConfig, holder *config.ConfigHolder, logger zerolog.Logger) error {
	tp, err := telemetry.NewProvider(ctx, telemetryConfig(cfg))
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()
	if tp.Enabled() {
		logger.Info().
			Str(xglog.FieldEvent, "telemetry.enabled").
			Str("exporter", cfg.Telemetry.Exporter).
			Str("endpoint", cfg.Telemetry.Endpoint).
			Float64("sampling_rate", cfg.Telemetry.SamplingRate).
			Msg("exporting traces")
	}

	factory, err := newEngine(cfg.Engine)
	if err != nil {
		return err
	}
	catalog, err := backend.CatalogFromConfig(cfg.Devices)
	if err != nil {
		return fmt.Errorf("device catalog: %w", err)
	}

	loop := dispatch.NewLoop()
	b, err := backend.New(backend.Deps{
		Factory:   factory,
		Runner:    loop,
		Bus:       bus.NewMemoryBus(),
		Catalog:   catalog,
		Installer: backend.InstallerFromConfig(cfg.Plugins),
		Tags:      metadata.NewReader(),
		Settings:  backend.SettingsFromConfig(cfg.Player),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.New(b, api.WithVersion(version), api.WithService(cfg.LogService)).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The loop outlives the HTTP surface so players are torn down on it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := loop.Run(loopCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("http server shutdown")
		}
		if err := b.Close(shutdownCtx); err != nil && !errors.Is(err, dispatch.ErrStopped) {
			logger.Warn().Err(err).Msg("backend close")
		}
		stopLoop()
		return nil
	})

	if err := holder.StartWatcher(gctx); err != nil {
		logger.Warn().Err(err).Msg("config watcher disabled")
	}
	defer holder.Stop()

	updates := make(chan config.AppConfig, 1)
	holder.RegisterListener(updates)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case next := <-updates:
				if err := b.ApplySettings(gctx, backend.SettingsFromConfig(next.Player)); err != nil {
					logger.Warn().Err(err).Str(xglog.FieldEvent, "config.apply_failed").Msg("failed to apply player settings")
				}
			}
		}
	})

	return g.Wait()
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}
