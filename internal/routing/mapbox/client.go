// Package mapbox provides a client for the Mapbox Directions API, used for
// the city/highway distance split and the traffic delay of a journey.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/provider/resilience"
	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/pkg/geo"
	"github.com/dieselroute/dieselroute/pkg/polyline"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "mapbox"

	// DefaultBaseURL is the Mapbox API base URL.
	DefaultBaseURL = "https://api.mapbox.com"

	// DefaultProfile is the directions profile with live traffic.
	DefaultProfile = "mapbox/driving-traffic"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	trafficSamples = 15
)

// highwayRef matches Nigerian and UK style trunk road references such as
// A1, E1, M4 or FGN123.
var highwayRef = regexp.MustCompile(`(?i)\b([ABME]|FGN)\d+\b`)

// ClientConfig holds configuration for the Mapbox client.
type ClientConfig struct {
	// AccessToken is the Mapbox token (required).
	AccessToken string

	// BaseURL is the API base URL (optional, defaults to the Mapbox API).
	BaseURL string

	// Profile is the directions profile (default: mapbox/driving-traffic).
	Profile string

	// HTTPClient is the JSON client to use (optional).
	HTTPClient resilience.JSONGetter

	// Timeout is the request timeout (optional, defaults to 15s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Recorder receives call metrics (optional).
	Recorder resilience.CallRecorder

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client implements routing.DistanceProvider and routing.TrafficProvider.
type Client struct {
	token      string
	baseURL    string
	profile    string
	httpClient resilience.JSONGetter
	logger     zerolog.Logger
}

// NewClient creates a new Mapbox client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		token:      cfg.AccessToken,
		baseURL:    cfg.BaseURL,
		profile:    cfg.Profile,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.profile == "" {
		c.profile = DefaultProfile
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

// SplitDistance walks every step of the first route and counts its distance
// as highway when the step is tagged motorway or its name or ref looks like
// a trunk road reference, otherwise as city.
func (c *Client) SplitDistance(ctx context.Context, origin, destination geo.Point) (routing.DistanceSplit, error) {
	params := url.Values{}
	params.Set("alternatives", "false")
	params.Set("geometries", "geojson")
	params.Set("language", "en")
	params.Set("overview", "simplified")
	params.Set("steps", "true")
	params.Set("notifications", "none")

	r, err := c.directions(ctx, "distances", origin, destination, params)
	if err != nil {
		return routing.DistanceSplit{}, err
	}

	var cityMeters, highwayMeters float64
	for _, l := range r.Legs {
		for _, s := range l.Steps {
			if isHighway(s) {
				highwayMeters += s.Distance
			} else {
				cityMeters += s.Distance
			}
		}
	}

	split := routing.DistanceSplit{CityKm: cityMeters / 1000, HighwayKm: highwayMeters / 1000}

	c.logger.Debug().
		Float64("city_km", split.CityKm).
		Float64("highway_km", split.HighwayKm).
		Msg("classified route distance")

	return split, nil
}

// Traffic returns up to about fifteen points of the full route geometry and
// the delay over typical traffic in minutes, floored at zero.
func (c *Client) Traffic(ctx context.Context, origin, destination geo.Point) (*routing.Traffic, error) {
	params := url.Values{}
	params.Set("alternatives", "false")
	params.Set("geometries", "polyline")
	params.Set("overview", "full")
	params.Set("annotations", "duration,congestion")

	r, err := c.directions(ctx, "traffic", origin, destination, params)
	if err != nil {
		return nil, err
	}

	var encoded string
	if err := json.Unmarshal(r.Geometry, &encoded); err != nil {
		return nil, resilience.Classify(ProviderName, "traffic", fmt.Errorf("decoding geometry: %w", err))
	}
	points, err := polyline.DecodeGoogle(encoded)
	if err != nil {
		return nil, resilience.Classify(ProviderName, "traffic", err)
	}

	delay := 0.0
	if r.DurationTypical != nil {
		delay = math.Max(0, r.Duration-*r.DurationTypical) / 60
	}

	return &routing.Traffic{
		Points:       sampleEvery(points, trafficSamples),
		DelayMinutes: delay,
	}, nil
}

func (c *Client) directions(ctx context.Context, op string, origin, destination geo.Point, params url.Values) (*route, error) {
	params.Set("access_token", c.token)
	endpoint := fmt.Sprintf("%s/directions/v5/%s/%s;%s?%s",
		c.baseURL, c.profile, origin.LonLat(), destination.LonLat(), params.Encode())

	var resp directionsResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, resilience.Classify(ProviderName, op, err)
	}

	if resp.Code != "" && resp.Code != "Ok" {
		return nil, fmt.Errorf("%w: mapbox %s: %s", routing.ErrNotFound, resp.Code, resp.Message)
	}
	if len(resp.Routes) == 0 {
		return nil, fmt.Errorf("%w: mapbox returned no routes", routing.ErrNotFound)
	}
	return &resp.Routes[0], nil
}

func isHighway(s step) bool {
	if slices.Contains(s.Classes, "motorway") {
		return true
	}
	for _, in := range s.Intersections {
		if slices.Contains(in.Classes, "motorway") {
			return true
		}
	}
	return highwayRef.MatchString(s.Name) || highwayRef.MatchString(s.Ref)
}

// sampleEvery keeps every (n-1)/target-th point and the last one.
func sampleEvery(points []geo.Point, target int) []geo.Point {
	if len(points) == 0 {
		return nil
	}
	step := (len(points) - 1) / target
	if step < 1 {
		step = 1
	}

	sampled := make([]geo.Point, 0, target+2)
	for i := 0; i < len(points); i += step {
		sampled = append(sampled, points[i])
	}
	if last := points[len(points)-1]; sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}
	return sampled
}
