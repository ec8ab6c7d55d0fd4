// Package main provides the entrypoint for the dieselroute API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/api"
	"github.com/dieselroute/dieselroute/internal/api/middleware"
	"github.com/dieselroute/dieselroute/internal/app"
	"github.com/dieselroute/dieselroute/internal/config"
	"github.com/dieselroute/dieselroute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := app.NewLogger(cfg, Version)
	log.Info().Str("build_time", BuildTime).Msg("starting dieselroute API")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("dieselroute API stopped")
	}
	log.Info().Msg("server stopped")
}

// run serves the API until SIGINT or SIGTERM, then drains in-flight
// estimates for up to shutdownTimeout.
func run(cfg *config.Config, log zerolog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(flushCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("creating http metrics: %w", err)
	}
	metrics, err := telemetry.NewMetrics(tp.Meter)
	if err != nil {
		return fmt.Errorf("creating pipeline metrics: %w", err)
	}

	pipeline, err := app.New(ctx, app.Options{
		Config:           cfg,
		Logger:           log,
		CallRecorder:     metrics,
		EstimateRecorder: metrics,
	})
	if err != nil {
		return fmt.Errorf("building estimate pipeline: %w", err)
	}
	defer pipeline.Close()

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.RouterConfig{
			Version:           Version,
			BuildTime:         BuildTime,
			Logger:            log,
			ServiceName:       cfg.ServiceName,
			Metrics:           httpMetrics,
			Estimates:         pipeline.Estimates,
			Registry:          pipeline.Registry,
			RequireTLS:        cfg.RequireTLS,
			EstimateRateLimit: cfg.EstimateRateLimit,
			ReadinessChecks:   pipeline.ReadinessChecks,
		}),
		ReadTimeout: 15 * time.Second,
		// An estimate chains several provider calls.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
