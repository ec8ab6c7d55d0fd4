// Package here provides clients for the HERE geocoding, routing and discover APIs.
package here

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/provider/resilience"
	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/pkg/geo"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "here"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultTransportMode is the routing profile used for directions.
	DefaultTransportMode = "car"

	defaultGeocodeURL  = "https://geocode.search.hereapi.com/v1/geocode"
	defaultRouterURL   = "https://router.hereapi.com/v8/routes"
	defaultDiscoverURL = "https://discover.search.hereapi.com/v1/discover"

	discoverLimit = 5
)

// ClientConfig holds configuration for the HERE client.
type ClientConfig struct {
	// APIKey is the HERE API key (required).
	APIKey string

	// BaseURL replaces the HERE hosts with one base, mainly for tests.
	// Paths /v1/geocode, /v8/routes and /v1/discover are appended.
	BaseURL string

	// TransportMode is the router transport mode (default: car).
	TransportMode string

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

// Client talks to HERE. It implements routing.Geocoder,
// routing.DirectionsProvider and routing.PointOfInterestSearch.
type Client struct {
	apiKey        string
	geocodeURL    string
	routerURL     string
	discoverURL   string
	transportMode string
	httpClient    resilience.JSONGetter
	logger        zerolog.Logger
}

// NewClient creates a new HERE client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:        cfg.APIKey,
		geocodeURL:    defaultGeocodeURL,
		routerURL:     defaultRouterURL,
		discoverURL:   defaultDiscoverURL,
		transportMode: cfg.TransportMode,
		httpClient:    cfg.HTTPClient,
		logger:        cfg.Logger,
	}

	if cfg.BaseURL != "" {
		c.geocodeURL = cfg.BaseURL + "/v1/geocode"
		c.routerURL = cfg.BaseURL + "/v8/routes"
		c.discoverURL = cfg.BaseURL + "/v1/discover"
	}
	if c.transportMode == "" {
		c.transportMode = DefaultTransportMode
	}

	if c.httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
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

// Geocode resolves "place, countryHint" to the first matching position.
func (c *Client) Geocode(ctx context.Context, place, countryHint string) (geo.Point, error) {
	query := place
	if countryHint != "" {
		query = place + ", " + countryHint
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("apiKey", c.apiKey)

	var resp geocodeResponse
	if err := c.httpClient.GetJSON(ctx, c.geocodeURL+"?"+params.Encode(), &resp); err != nil {
		return geo.Point{}, resilience.Classify(ProviderName, "geocode", err)
	}

	if len(resp.Items) == 0 {
		return geo.Point{}, fmt.Errorf("%w: geocode %q", routing.ErrNotFound, query)
	}

	item := resp.Items[0]
	if item.Position == nil {
		return geo.Point{}, fmt.Errorf("%w: geocode %q has no position", routing.ErrNotFound, query)
	}
	c.logger.Debug().
		Str("query", query).
		Str("title", item.Title).
		Float64("lat", item.Position.Lat).
		Float64("lon", item.Position.Lng).
		Msg("geocoded place")

	return geo.NewPoint(item.Position.Lat, item.Position.Lng), nil
}

// Route returns the flexible polyline of the first section of the first route.
func (c *Client) Route(ctx context.Context, origin, destination geo.Point) (string, error) {
	params := url.Values{}
	params.Set("transportMode", c.transportMode)
	params.Set("origin", origin.LatLon())
	params.Set("destination", destination.LatLon())
	params.Set("return", "polyline")
	params.Set("apiKey", c.apiKey)

	var resp routesResponse
	if err := c.httpClient.GetJSON(ctx, c.routerURL+"?"+params.Encode(), &resp); err != nil {
		return "", resilience.Classify(ProviderName, "routes", err)
	}

	if len(resp.Routes) == 0 || len(resp.Routes[0].Sections) == 0 || resp.Routes[0].Sections[0].Polyline == "" {
		return "", fmt.Errorf("%w: no route from %s to %s", routing.ErrNotFound, origin.LatLon(), destination.LatLon())
	}

	return resp.Routes[0].Sections[0].Polyline, nil
}

// Nearest queries discover around point and returns the closest result.
func (c *Client) Nearest(ctx context.Context, point geo.Point, category string) (geo.Point, error) {
	params := url.Values{}
	params.Set("q", category)
	params.Set("at", point.LatLon())
	params.Set("limit", strconv.Itoa(discoverLimit))
	params.Set("apiKey", c.apiKey)

	var resp discoverResponse
	if err := c.httpClient.GetJSON(ctx, c.discoverURL+"?"+params.Encode(), &resp); err != nil {
		return geo.Point{}, resilience.Classify(ProviderName, "discover", err)
	}

	var nearest *discoverItem
	for i := range resp.Items {
		item := &resp.Items[i]
		if item.Position == nil {
			continue
		}
		if nearest == nil || item.distance() < nearest.distance() {
			nearest = item
		}
	}
	if nearest == nil {
		return geo.Point{}, fmt.Errorf("%w: %s near %s", routing.ErrNotFound, category, point.LatLon())
	}

	return geo.NewPoint(nearest.Position.Lat, nearest.Position.Lng), nil
}
