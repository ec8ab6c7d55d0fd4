// Package app assembles the estimate pipeline from configuration. Both the
// API server and the worker start from it.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/api/handler"
	"github.com/dieselroute/dieselroute/internal/config"
	"github.com/dieselroute/dieselroute/internal/database"
	"github.com/dieselroute/dieselroute/internal/estimate"
	"github.com/dieselroute/dieselroute/internal/features"
	"github.com/dieselroute/dieselroute/internal/predictor"
	"github.com/dieselroute/dieselroute/internal/predictor/modelserver"
	"github.com/dieselroute/dieselroute/internal/predictor/xgboost"
	"github.com/dieselroute/dieselroute/internal/provider/resilience"
	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/internal/routing/here"
	"github.com/dieselroute/dieselroute/internal/routing/mapbox"
	"github.com/dieselroute/dieselroute/internal/routing/mapsco"
	"github.com/dieselroute/dieselroute/internal/weather"
	"github.com/dieselroute/dieselroute/internal/weather/weatherapi"
)

// Options are the process-wide collaborators the app is built with.
type Options struct {
	Config *config.Config
	Logger zerolog.Logger

	// Registry tracks every provider client (default: a new registry).
	Registry *resilience.Registry

	// CallRecorder receives provider call metrics (optional).
	CallRecorder resilience.CallRecorder

	// EstimateRecorder receives estimate outcomes (optional).
	EstimateRecorder estimate.Recorder
}

// App is the assembled estimate pipeline.
type App struct {
	Estimates *estimate.Service
	Registry  *resilience.Registry

	// ReadinessChecks holds a check per dependency that can be probed.
	ReadinessChecks map[string]handler.ReadinessCheck

	pool *pgxpool.Pool
}

// New builds the provider clients, model, catalog and repository described
// by opts.Config.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	log := opts.Logger

	registry := opts.Registry
	if registry == nil {
		registry = resilience.NewRegistry()
	}
	b := builder{cfg: cfg, registry: registry, recorder: opts.CallRecorder}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	model, err := b.predictor(catalog.Taxonomy, log)
	if err != nil {
		return nil, err
	}

	a := &App{Registry: registry, ReadinessChecks: make(map[string]handler.ReadinessCheck)}

	var repo estimate.Repository = estimate.NewInMemoryRepository()
	if cfg.DBEnabled {
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		pg := estimate.NewPostgresRepository(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensuring estimate schema: %w", err)
		}
		a.pool = pool
		a.ReadinessChecks["database"] = pool.Ping
		repo = pg
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
	}

	hereClient := here.NewClient(here.ClientConfig{
		APIKey:     cfg.HereAPIKey,
		HTTPClient: b.client(here.ProviderName, here.DefaultTimeout),
		Logger:     log,
	})
	mapboxClient := mapbox.NewClient(mapbox.ClientConfig{
		AccessToken: cfg.MapboxToken,
		HTTPClient:  b.client(mapbox.ProviderName, mapbox.DefaultTimeout),
		Logger:      log,
	})
	weatherClient := weatherapi.NewClient(weatherapi.ClientConfig{
		APIKey:     cfg.WeatherAPIKey,
		HTTPClient: b.client(weatherapi.ProviderName, 0),
		Logger:     log,
	})

	var verifier routing.Geocoder
	if cfg.GeocodingAPIKey != "" {
		verifier = mapsco.NewClient(mapsco.ClientConfig{
			APIKey:     cfg.GeocodingAPIKey,
			HTTPClient: b.client(mapsco.ProviderName, mapsco.DefaultTimeout),
			Logger:     log,
		})
	} else {
		log.Warn().Msg("GEOCODING_API_KEY not set - depot verification uses route endpoints")
	}

	routes := routing.NewService(routing.ServiceConfig{
		Geocoder:    hereClient,
		Directions:  hereClient,
		Stations:    routing.NewStationLocator(hereClient, routing.LocatorConfig{Logger: log}),
		CountryHint: cfg.CountryHint,
		Logger:      log,
	})

	a.Estimates = estimate.NewService(estimate.ServiceConfig{
		Routing:     routes,
		Verifier:    verifier,
		Distance:    mapboxClient,
		Traffic:     mapboxClient,
		Weather:     weather.NewService(weather.ServiceConfig{Provider: weatherClient, Logger: log}),
		Reconciler:  features.NewReconciler(catalog.Taxonomy, log),
		Predictor:   model,
		Pricer:      catalog.Pricer,
		Repository:  repo,
		CountryHint: cfg.CountryHint,
		Recorder:    opts.EstimateRecorder,
		Logger:      log,
	})

	log.Info().
		Int("providers", registry.ProviderCount()).
		Bool("database", cfg.DBEnabled).
		Bool("model_server", cfg.UsesModelServer()).
		Msg("estimate pipeline ready")

	return a, nil
}

// Close releases the database pool, if any.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func loadCatalog(cfg *config.Config) (*config.Catalog, error) {
	if cfg.TaxonomyFile == "" {
		return config.DefaultCatalog(cfg.FuelPricePerLitre), nil
	}
	catalog, err := config.LoadCatalog(cfg.TaxonomyFile, cfg.FuelPricePerLitre)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}
	return catalog, nil
}

type builder struct {
	cfg      *config.Config
	registry *resilience.Registry
	recorder resilience.CallRecorder
}

// client returns a resilient client for one provider, registered for
// health tracking. PROVIDER_TIMEOUT, when set, overrides the provider's
// own default; a zero def keeps the resilience default.
func (b builder) client(name string, def time.Duration) *resilience.Client {
	clientCfg := resilience.DefaultClientConfig(name)
	clientCfg.Timeout = providerTimeout(b.cfg.ProviderTimeout, def, clientCfg.Timeout)
	clientCfg.MaxRetries = uint64(b.cfg.ProviderMaxRetries) //nolint:gosec // validated non-negative
	clientCfg.Registry = b.registry
	clientCfg.Recorder = b.recorder
	return resilience.NewClient(clientCfg)
}

// providerTimeout picks the configured timeout, then the provider's
// default, then fallback.
func providerTimeout(configured, def, fallback time.Duration) time.Duration {
	switch {
	case configured > 0:
		return configured
	case def > 0:
		return def
	default:
		return fallback
	}
}

func (b builder) predictor(tax *features.Taxonomy, log zerolog.Logger) (predictor.Predictor, error) {
	if b.cfg.UsesModelServer() {
		return modelserver.NewClient(modelserver.ClientConfig{
			BaseURL:    b.cfg.ModelServerURL,
			HTTPClient: b.client(modelserver.ProviderName, 0),
			Logger:     log,
		}), nil
	}

	model, err := xgboost.Load(b.cfg.ModelPath, tax.Names())
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", b.cfg.ModelPath, err)
	}
	log.Info().
		Str("path", b.cfg.ModelPath).
		Int("trees", model.TreeCount()).
		Msg("model loaded")
	return model, nil
}

// NewLogger returns the process logger: JSON on stdout, or a console
// writer in development.
func NewLogger(cfg *config.Config, version string) zerolog.Logger {
	var log zerolog.Logger
	if cfg.IsDevelopment() {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stdout)
	}
	return log.With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", version).
		Logger()
}
