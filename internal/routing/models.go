// Package routing assembles the route of a journey: depot geocoding, the
// directions polyline, the weather sample points and the fuel stops along it.
package routing

import (
	"context"
	"errors"

	"github.com/dieselroute/dieselroute/pkg/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrNotFound indicates a provider answered but had no result.
	ErrNotFound = errors.New("no result")
	// ErrRoutingUnavailable indicates the journey cannot be routed at all.
	ErrRoutingUnavailable = errors.New("routing unavailable")
	// ErrGeocodingFailed indicates a depot name could not be resolved.
	ErrGeocodingFailed = errors.New("geocoding failed")
	// ErrInvalidCoordinates indicates a point outside the valid lat/lon range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Geocoder resolves a place name to a point. It returns ErrNotFound when the
// provider has no match.
type Geocoder interface {
	Geocode(ctx context.Context, place, countryHint string) (geo.Point, error)
}

// DirectionsProvider returns a flexible polyline between two points.
type DirectionsProvider interface {
	Route(ctx context.Context, origin, destination geo.Point) (string, error)
}

// PointOfInterestSearch returns the nearest point of interest of a category.
type PointOfInterestSearch interface {
	Nearest(ctx context.Context, point geo.Point, category string) (geo.Point, error)
}

// TrafficProvider reports the sampled geometry and the delay over typical
// conditions between two points.
type TrafficProvider interface {
	Traffic(ctx context.Context, origin, destination geo.Point) (*Traffic, error)
}

// DistanceProvider classifies the driven distance into city and highway parts.
type DistanceProvider interface {
	SplitDistance(ctx context.Context, origin, destination geo.Point) (DistanceSplit, error)
}

// DistanceSplit classifies route distance by road class. Both parts are in
// kilometers and non-negative.
type DistanceSplit struct {
	CityKm    float64
	HighwayKm float64
}

// TotalKm returns the full driven distance.
func (d DistanceSplit) TotalKm() float64 {
	return d.CityKm + d.HighwayKm
}

// Traffic is the traffic picture between two points.
type Traffic struct {
	Points       []geo.Point
	DelayMinutes float64
}

// Severity is an ordinal traffic bucket.
type Severity string

// Traffic severity buckets.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ClassifyDelay buckets a delay over typical traffic.
func ClassifyDelay(delayMinutes float64) Severity {
	switch {
	case delayMinutes > 30:
		return SeverityHigh
	case delayMinutes > 7:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Result is the enriched route of one journey. Polyline keeps the order
// returned by the directions provider; WeatherSamples is derived from it and
// only used for weather lookups.
type Result struct {
	Origin         geo.Point
	Destination    geo.Point
	Polyline       []geo.Point
	WeatherSamples []geo.Point
	FuelStations   []geo.Point
	DistanceKm     float64
}
