// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dieselroute/dieselroute/internal/cost"
	"github.com/dieselroute/dieselroute/internal/database"
	"github.com/dieselroute/dieselroute/internal/routing"
)

// DefaultEnvFile is read by Load when present.
const DefaultEnvFile = ".env"

// ErrMissing is returned by Validate for each required key left unset.
var ErrMissing = errors.New("missing required configuration")

// Config holds all process configuration. Build it once with Load and pass
// the parts components need into their constructors.
type Config struct {
	Port        string
	Env         string
	ServiceName string

	// Provider credentials.
	HereAPIKey      string
	MapboxToken     string
	WeatherAPIKey   string
	GeocodingAPIKey string

	// ProviderTimeout overrides every provider client's own default timeout
	// when positive.
	ProviderTimeout    time.Duration
	ProviderMaxRetries int

	// ModelServerURL takes precedence over ModelPath.
	ModelPath      string
	ModelServerURL string

	TaxonomyFile      string
	FuelPricePerLitre float64
	CountryHint       string

	// EstimateRateLimit is the per-IP limit on estimate endpoints, per minute.
	EstimateRateLimit int

	// RequireTLS rejects requests a load balancer forwarded over plain HTTP.
	RequireTLS bool

	DBEnabled bool
	Database  database.Config

	PubSubProjectID      string
	PubSubSubscriptionID string
	WorkerConcurrency    int

	OTelEnabled     bool
	OTLPEndpoint    string
	OTelSampleRatio float64
}

// Load reads DefaultEnvFile if it exists, then the environment.
func Load() (*Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile reads the dotenv file at path if it exists, then the
// environment. Variables already set in the environment win over the file.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() *Config {
	return &Config{
		Port:        getEnv("APP_PORT", "8080"),
		Env:         getEnv("APP_ENV", "development"),
		ServiceName: getEnv("OTEL_SERVICE_NAME", "dieselroute-api"),

		HereAPIKey:      getEnv("HERE_API_KEY", ""),
		MapboxToken:     getEnv("MAPBOX_TOKEN", ""),
		WeatherAPIKey:   getEnv("WEATHER_API_KEY", ""),
		GeocodingAPIKey: getEnv("GEOCODING_API_KEY", ""),

		ProviderTimeout:    getEnvDuration("PROVIDER_TIMEOUT", 0),
		ProviderMaxRetries: getEnvInt("PROVIDER_MAX_RETRIES", 0),

		ModelPath:      getEnv("MODEL_PATH", "models/fuel_efficiency.json"),
		ModelServerURL: getEnv("MODEL_SERVER_URL", ""),

		TaxonomyFile:      getEnv("TAXONOMY_FILE", ""),
		FuelPricePerLitre: getEnvFloat("FUEL_PRICE_PER_LITRE", cost.DefaultPricePerLitre),
		CountryHint:       getEnv("COUNTRY_HINT", routing.DefaultCountryHint),

		EstimateRateLimit: getEnvInt("ESTIMATE_RATE_LIMIT", 30),
		RequireTLS:        getEnvBool("REQUIRE_TLS", false),

		DBEnabled: getEnvBool("DB_ENABLED", false),
		Database: database.Config{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "dieselroute"),
			Password:        getEnv("DB_PASSWORD", "localdev"),
			Database:        getEnv("DB_NAME", "dieselroute"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		PubSubProjectID:      getEnv("PUBSUB_PROJECT_ID", ""),
		PubSubSubscriptionID: getEnv("PUBSUB_SUBSCRIPTION_ID", "estimate-jobs"),
		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 4),

		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
	}
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// UsesModelServer reports whether predictions go to the model sidecar.
func (c *Config) UsesModelServer() bool {
	return c.ModelServerURL != ""
}

// Validate checks that the provider credentials and a model source are set.
func (c *Config) Validate() error {
	var missing []string
	if c.HereAPIKey == "" {
		missing = append(missing, "HERE_API_KEY")
	}
	if c.MapboxToken == "" {
		missing = append(missing, "MAPBOX_TOKEN")
	}
	if c.WeatherAPIKey == "" {
		missing = append(missing, "WEATHER_API_KEY")
	}
	if c.ModelPath == "" && c.ModelServerURL == "" {
		missing = append(missing, "MODEL_PATH or MODEL_SERVER_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	if c.ProviderTimeout < 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must not be negative, got %s", c.ProviderTimeout)
	}
	if c.ProviderMaxRetries < 0 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must not be negative, got %d", c.ProviderMaxRetries)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("10s") or bare seconds ("10").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
