package routing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/pkg/geo"
)

// FuelStationCategory is the point-of-interest query used for fuel stops.
const FuelStationCategory = "fuel station"

// LocatorConfig holds configuration for the fuel station locator.
type LocatorConfig struct {
	// MinRouteKm is the route length at or below which no search is made (default: 10).
	MinRouteKm float64

	// IntervalFraction is the share of the route length between searches (default: 0.25).
	IntervalFraction float64

	// MinSeparationKm drops a station this close to the previous one (default: 5).
	MinSeparationKm float64

	// Category is the point-of-interest category queried (default: FuelStationCategory).
	Category string

	// Logger for locator operations.
	Logger zerolog.Logger
}

// StationLocator finds fuel stops spread along a route.
type StationLocator struct {
	search           PointOfInterestSearch
	minRouteKm       float64
	intervalFraction float64
	minSeparationKm  float64
	category         string
	logger           zerolog.Logger
}

// NewStationLocator creates a locator querying search.
func NewStationLocator(search PointOfInterestSearch, cfg LocatorConfig) *StationLocator {
	l := &StationLocator{
		search:           search,
		minRouteKm:       cfg.MinRouteKm,
		intervalFraction: cfg.IntervalFraction,
		minSeparationKm:  cfg.MinSeparationKm,
		category:         cfg.Category,
		logger:           cfg.Logger,
	}
	if l.minRouteKm == 0 {
		l.minRouteKm = 10
	}
	if l.intervalFraction <= 0 {
		l.intervalFraction = 0.25
	}
	if l.minSeparationKm == 0 {
		l.minSeparationKm = 5
	}
	if l.category == "" {
		l.category = FuelStationCategory
	}
	return l
}

// Locate walks the route once and queries for a station each time an
// interval of distance has been covered since the last accepted station,
// unless the walk is within half an interval of the end. A failed query is
// skipped, never retried. A station closer than the minimum separation to
// the previously accepted one is dropped and the interval keeps running.
func (l *StationLocator) Locate(ctx context.Context, points []geo.Point) []geo.Point {
	if l.search == nil || len(points) < 2 {
		return nil
	}

	total := geo.PathLength(points)
	if total <= l.minRouteKm {
		l.logger.Debug().
			Float64("route_km", total).
			Msg("route too short for fuel station search")
		return nil
	}

	interval := l.intervalFraction * total
	stopBefore := total - interval/2

	var (
		stations   []geo.Point
		cumulative float64
		sinceLast  float64
	)

	for i := 1; i < len(points); i++ {
		if ctx.Err() != nil {
			break
		}

		segment := geo.Distance(points[i-1], points[i])
		cumulative += segment
		sinceLast += segment

		if sinceLast < interval || cumulative >= stopBefore {
			continue
		}

		at := points[i]
		station, err := l.search.Nearest(ctx, at, l.category)
		if err != nil {
			event := l.logger.Warn()
			if errors.Is(err, ErrNotFound) {
				event = l.logger.Debug()
			}
			event.Err(err).
				Float64("lat", at.Lat).
				Float64("lon", at.Lon).
				Msg("fuel station search failed")
			continue
		}

		if n := len(stations); n > 0 && geo.Distance(station, stations[n-1]) < l.minSeparationKm {
			l.logger.Debug().
				Float64("lat", station.Lat).
				Float64("lon", station.Lon).
				Msg("dropping fuel station close to previous stop")
			continue
		}

		stations = append(stations, station)
		sinceLast = 0
	}

	return stations
}
