// Package weatherapi provides a weather.Provider backed by the
// weatherapi.com forecast API.
package weatherapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/provider/resilience"
	"github.com/dieselroute/dieselroute/internal/weather"
	"github.com/dieselroute/dieselroute/pkg/geo"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "weatherapi"

	// DefaultBaseURL is the weatherapi.com API base URL.
	DefaultBaseURL = "https://api.weatherapi.com/v1"

	// ForecastDays is how many days of forecast are requested.
	ForecastDays = 4

	// defaultVisibilityKm is assumed when a day carries no visibility.
	defaultVisibilityKm = 10.0

	dateLayout = "2006-01-02"
)

// ClientConfig holds configuration for the weatherapi.com client.
type ClientConfig struct {
	// APIKey is the weatherapi.com key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the JSON client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient resilience.JSONGetter

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Recorder receives call metrics (optional).
	Recorder resilience.CallRecorder

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a weatherapi.com client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient resilience.JSONGetter
	logger     zerolog.Logger
}

// NewClient creates a new weatherapi.com client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		clientCfg.Recorder = cfg.Recorder
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Forecast fetches the multi-day forecast at point and returns the day
// matching date.
func (c *Client) Forecast(ctx context.Context, point geo.Point, date time.Time) (*weather.DayForecast, error) {
	if !point.Valid() {
		return nil, weather.ErrInvalidCoordinates
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", point.LatLon())
	params.Set("days", strconv.Itoa(ForecastDays))
	params.Set("aqi", "no")
	params.Set("alerts", "no")

	var resp forecastResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/forecast.json?"+params.Encode(), &resp); err != nil {
		return nil, resilience.Classify(ProviderName, "forecast", err)
	}

	target := date.Format(dateLayout)
	for _, fd := range resp.Forecast.ForecastDay {
		if fd.Date != target {
			continue
		}
		return toDayForecast(point, date, fd.Day), nil
	}

	c.logger.Debug().
		Str("date", target).
		Int("days", len(resp.Forecast.ForecastDay)).
		Msg("target date outside forecast window")

	return nil, fmt.Errorf("%w: %s at %s", weather.ErrNoForecast, target, point.LatLon())
}

func toDayForecast(point geo.Point, date time.Time, d day) *weather.DayForecast {
	visibility := defaultVisibilityKm
	if d.AvgVisKm != nil {
		visibility = *d.AvgVisKm
	}
	return &weather.DayForecast{
		Point:           point,
		Date:            date,
		AvgTempC:        d.AvgTempC,
		TotalSnowCm:     d.TotalSnowCm,
		TotalPrecipMm:   d.TotalPrecipMm,
		AvgVisibilityKm: visibility,
	}
}

// weatherapi.com forecast response subset.

type forecastResponse struct {
	Location struct {
		Name    string  `json:"name"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	} `json:"location"`
	Forecast struct {
		ForecastDay []forecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type forecastDay struct {
	Date string `json:"date"`
	Day  day    `json:"day"`
}

type day struct {
	AvgTempC      float64  `json:"avgtemp_c"`
	TotalSnowCm   float64  `json:"totalsnow_cm"`
	TotalPrecipMm float64  `json:"totalprecip_mm"`
	AvgVisKm      *float64 `json:"avgvis_km"`
}
