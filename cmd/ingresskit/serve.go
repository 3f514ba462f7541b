package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ingresskit/ingresskit/pkg/api"
	"github.com/ingresskit/ingresskit/pkg/config"
	"github.com/ingresskit/ingresskit/pkg/keystore"
	"github.com/ingresskit/ingresskit/pkg/observability"
	"github.com/ingresskit/ingresskit/pkg/schema"
)

const version = api.Version

func runServer() int {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)
	logger := slog.Default().With("component", "server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := schema.NewRegistry()
	if err := reg.LoadProfiles(cfg.ProfilesDir); err != nil {
		logger.Error("loading schema profiles failed", "error", err)
		return 1
	}

	keys, err := keystore.Open(cfg.KeystoreBackend, cfg.KeystoreDSN)
	if err != nil {
		logger.Error("opening keystore failed", "error", err)
		return 1
	}
	defer func() { _ = keys.Close() }()
	keystore.Seed(ctx, keys, cfg.APIKeysSeed, logger)

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    "ingresskit",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.Telemetry,
	})
	if err != nil {
		logger.Error("observability init failed", "error", err)
		return 1
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(cfg, reg, keys, obs).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port, "metered", cfg.Metered, "schemas", reg.Names())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			return 1
		}
	}
	return 0
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}
