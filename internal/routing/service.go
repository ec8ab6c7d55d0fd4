package routing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/pkg/geo"
	"github.com/dieselroute/dieselroute/pkg/polyline"
)

// DefaultCountryHint is appended to depot names when geocoding.
const DefaultCountryHint = "Nigeria"

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Geocoder resolves depot names (required).
	Geocoder Geocoder

	// Directions returns the route polyline (required).
	Directions DirectionsProvider

	// Stations finds fuel stops along the route (optional).
	Stations *StationLocator

	// CountryHint narrows geocoding (default: Nigeria).
	CountryHint string

	// WeatherSamples bounds the weather sample points (default: 15).
	WeatherSamples int

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service builds the enriched route for a journey between two named places.
type Service struct {
	geocoder       Geocoder
	directions     DirectionsProvider
	stations       *StationLocator
	countryHint    string
	weatherSamples int
	logger         zerolog.Logger
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	countryHint := cfg.CountryHint
	if countryHint == "" {
		countryHint = DefaultCountryHint
	}

	weatherSamples := cfg.WeatherSamples
	if weatherSamples == 0 {
		weatherSamples = DefaultWeatherSamples
	}

	return &Service{
		geocoder:       cfg.Geocoder,
		directions:     cfg.Directions,
		stations:       cfg.Stations,
		countryHint:    countryHint,
		weatherSamples: weatherSamples,
		logger:         cfg.Logger,
	}
}

// Enrich geocodes both places, fetches and decodes the route polyline, then
// derives the weather sample points and the fuel stops.
//
// Geocoding failures match both ErrGeocodingFailed and ErrRoutingUnavailable.
// A missing polyline matches ErrRoutingUnavailable and a malformed one
// matches polyline.ErrDecode.
func (s *Service) Enrich(ctx context.Context, originName, destinationName string) (*Result, error) {
	origin, err := s.geocode(ctx, originName)
	if err != nil {
		return nil, err
	}
	destination, err := s.geocode(ctx, destinationName)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("origin", originName).
		Float64("origin_lat", origin.Lat).
		Float64("origin_lon", origin.Lon).
		Str("destination", destinationName).
		Float64("dest_lat", destination.Lat).
		Float64("dest_lon", destination.Lon).
		Msg("requesting route polyline")

	encoded, err := s.directions.Route(ctx, origin, destination)
	if err != nil {
		return nil, fmt.Errorf("%w: directions: %w", ErrRoutingUnavailable, err)
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: directions returned no polyline", ErrRoutingUnavailable)
	}

	points, err := polyline.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding route polyline: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: route polyline has no points", ErrRoutingUnavailable)
	}

	result := &Result{
		Origin:         origin,
		Destination:    destination,
		Polyline:       points,
		WeatherSamples: SampleWithStart(points, origin, s.weatherSamples),
		DistanceKm:     geo.PathLength(points),
	}
	if s.stations != nil {
		result.FuelStations = s.stations.Locate(ctx, points)
	}

	s.logger.Debug().
		Int("polyline_points", len(result.Polyline)).
		Int("weather_samples", len(result.WeatherSamples)).
		Int("fuel_stations", len(result.FuelStations)).
		Float64("distance_km", result.DistanceKm).
		Msg("route enriched")

	return result, nil
}

func (s *Service) geocode(ctx context.Context, place string) (geo.Point, error) {
	point, err := s.geocoder.Geocode(ctx, place, s.countryHint)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: %w: %q: %w", ErrRoutingUnavailable, ErrGeocodingFailed, place, err)
	}
	if !point.Valid() {
		return geo.Point{}, fmt.Errorf("%w: %w: %q: %w", ErrRoutingUnavailable, ErrGeocodingFailed, place, ErrInvalidCoordinates)
	}
	return point, nil
}
