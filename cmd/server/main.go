// CourseCompass - Course Discovery Platform Usage Metrics
// Copyright 2026 CourseCompass Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursecompass/coursecompass

// Command server runs the usage metrics service: anonymous visit and
// assessment tracking, the public metrics payload, and the operator
// surface for aggregation and reconciliation.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursecompass/coursecompass/internal/api"
	"github.com/coursecompass/coursecompass/internal/config"
	"github.com/coursecompass/coursecompass/internal/content"
	"github.com/coursecompass/coursecompass/internal/kv"
	"github.com/coursecompass/coursecompass/internal/logging"
	"github.com/coursecompass/coursecompass/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting usage metrics service")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Service failed")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := kv.OpenBadger(kv.BadgerOptions{
		Path:     cfg.KV.Path,
		InMemory: cfg.KV.InMemory,
	})
	if err != nil {
		return fmt.Errorf("open key-value store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Key-value store close failed")
		}
	}()
	store.StartGC(ctx, cfg.KV.GCInterval)

	var contentStore *content.Store
	var source usage.AssessmentSource
	if cfg.Content.Enabled {
		contentStore, err = content.Open(content.Options{Path: cfg.Content.Path})
		if err != nil {
			return fmt.Errorf("open content database: %w", err)
		}
		defer func() {
			if err := contentStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Content database close failed")
			}
		}()
		source = contentStore
		logging.Info().Str("path", cfg.Content.Path).Msg("Content database attached")
	}

	counters := usage.NewCounterStore(store)
	tracker := usage.NewTracker(store, counters,
		cfg.Metrics.VisitorRateCeiling, cfg.Metrics.AssessmentRateCeiling)
	reader := usage.NewReader(counters, cfg.Metrics.PlatformStats)
	aggregator := usage.NewAggregator(store, counters)
	reconciler := usage.NewReconciler(counters, source)

	handler := api.NewHandler(api.HandlerConfig{
		Tracker:    tracker,
		Reader:     reader,
		Counters:   counters,
		Aggregator: aggregator,
		Reconciler: reconciler,
		Store:      store,
		Content:    contentStore,
	})

	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins: cfg.Security.CORSOrigins,
		CronSecret:  cfg.Security.CronSecret,
		AdminToken:  cfg.Security.AdminToken,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown failed, closing hard")
		if err := server.Close(); err != nil {
			return fmt.Errorf("close http server: %w", err)
		}
	}

	logging.Info().Msg("Service stopped")
	return nil
}
