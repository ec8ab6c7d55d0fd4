// Package mapsco provides a geocoder backed by geocode.maps.co.
package mapsco

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/provider/resilience"
	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/pkg/geo"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "mapsco"

	// DefaultBaseURL is the geocode.maps.co API base URL.
	DefaultBaseURL = "https://geocode.maps.co"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// place is one search result. Coordinates are returned as strings.
type place struct {
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Importance  float64 `json:"importance"`
}

// ClientConfig holds configuration for the maps.co client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient resilience.JSONGetter
	Timeout    time.Duration
	Registry   *resilience.Registry
	Recorder   resilience.CallRecorder
	Logger     zerolog.Logger
}

// Client implements routing.Geocoder.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient resilience.JSONGetter
	logger     zerolog.Logger
}

// NewClient creates a new maps.co geocoding client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = DefaultTimeout
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		clientCfg.Recorder = cfg.Recorder
		c.httpClient = resilience.NewClient(clientCfg)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode returns the most important match for "place, countryHint".
// A result at exactly (0,0) is treated as no match.
func (c *Client) Geocode(ctx context.Context, name, countryHint string) (geo.Point, error) {
	query := name
	if countryHint != "" {
		query = name + ", " + countryHint
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.apiKey)

	var places []place
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/search?"+params.Encode(), &places); err != nil {
		return geo.Point{}, resilience.Classify(ProviderName, "search", err)
	}
	if len(places) == 0 {
		return geo.Point{}, fmt.Errorf("%w: geocode %q", routing.ErrNotFound, query)
	}

	sort.SliceStable(places, func(i, j int) bool {
		return places[i].Importance > places[j].Importance
	})
	top := places[0]

	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: latitude %q: %w", routing.ErrInvalidCoordinates, top.Lat, err)
	}
	lon, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: longitude %q: %w", routing.ErrInvalidCoordinates, top.Lon, err)
	}

	p := geo.NewPoint(lat, lon)
	if p.IsZero() {
		c.logger.Warn().Str("query", query).Msg("geocoder returned null island")
		return geo.Point{}, fmt.Errorf("%w: geocode %q returned (0,0)", routing.ErrNotFound, query)
	}

	c.logger.Debug().
		Str("query", query).
		Str("display_name", top.DisplayName).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("geocoded place")

	return p, nil
}
