// Package api provides the HTTP API for dieselroute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/api/handler"
	"github.com/dieselroute/dieselroute/internal/api/middleware"
	"github.com/dieselroute/dieselroute/internal/provider/resilience"
)

// EstimateService runs estimates and exposes the taxonomy they are
// validated against. *estimate.Service implements it.
type EstimateService interface {
	handler.Estimator
	handler.TaxonomySource
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Estimates   EstimateService
	Registry    *resilience.Registry

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// EstimateRateLimit is the per-IP budget for estimate creation per
	// minute. Zero uses middleware.EstimateRateLimit.
	EstimateRateLimit int

	ReadinessChecks map[string]handler.ReadinessCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "dieselroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	estimateLimit := middleware.EstimateRateLimit
	if cfg.EstimateRateLimit > 0 {
		estimateLimit = middleware.PerMinute(cfg.EstimateRateLimit)
	}
	estimateRateLimit := middleware.RateLimitByIP(estimateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.ReadinessChecks)
	estimateHandler := handler.NewEstimateHandler(cfg.Estimates, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler(cfg.Estimates)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.With(standardRateLimit).Get("/metadata/taxonomy", metadataHandler.GetTaxonomy)

		r.Route("/estimates", func(r chi.Router) {
			r.With(estimateRateLimit, middleware.RequireContentType(middleware.MediaTypeJSON)).
				Post("/", estimateHandler.Create)

			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", estimateHandler.List)
				r.Get("/{estimateId}", estimateHandler.Get)
			})
		})
	})

	// Form endpoint kept for the web frontend.
	r.With(estimateRateLimit, middleware.RequireContentType(middleware.MediaTypeForm, middleware.MediaTypeMultipart)).
		Post("/api/diesel/route", estimateHandler.CreateForm)

	return r
}
