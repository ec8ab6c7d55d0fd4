package estimate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/cost"
	"github.com/dieselroute/dieselroute/internal/features"
	"github.com/dieselroute/dieselroute/internal/predictor"
	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/internal/weather"
	"github.com/dieselroute/dieselroute/pkg/geo"
	"github.com/dieselroute/dieselroute/pkg/polyline"
)

// Degraded markers besides the feature names reported by the reconciler.
const (
	DegradedTraffic = "traffic"
	DegradedWeather = "weather"
)

// RouteEnricher builds the enriched route between two depots.
type RouteEnricher interface {
	Enrich(ctx context.Context, originName, destinationName string) (*routing.Result, error)
}

// WeatherSummarizer averages the weather along a route.
type WeatherSummarizer interface {
	Summarize(ctx context.Context, points []geo.Point, date time.Time) weather.Summary
}

// Recorder receives the outcome of every estimate: "success", "invalid" or
// "failure".
type Recorder interface {
	RecordEstimate(ctx context.Context, outcome string, degraded []string, finalCost float64)
}

// ServiceConfig holds configuration for the estimate service.
type ServiceConfig struct {
	// Routing builds the route, weather samples and fuel stops (required).
	Routing RouteEnricher

	// Verifier geocodes the depots a second time for the traffic and
	// distance calls (optional). When nil the route's endpoints are used.
	Verifier routing.Geocoder

	// Distance splits the journey into city and highway km (required).
	Distance routing.DistanceProvider

	// Traffic estimates the delay (optional).
	Traffic routing.TrafficProvider

	// Weather summarizes the sampled points (required).
	Weather WeatherSummarizer

	// Reconciler builds the model input (default: default taxonomy).
	Reconciler *features.Reconciler

	// Predictor is the efficiency model (required).
	Predictor predictor.Predictor

	// Pricer gives the fuel price at the origin depot (default: 280 NGN/L).
	Pricer cost.Pricer

	// Repository stores estimates (default: in memory).
	Repository Repository

	// CountryHint narrows depot verification (default: Nigeria).
	CountryHint string

	// TopImportances is the number of importances reported (default: 8).
	TopImportances int

	// Recorder receives estimate outcomes (optional).
	Recorder Recorder

	// Logger for service operations.
	Logger zerolog.Logger

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service estimates journeys.
type Service struct {
	routing        RouteEnricher
	verifier       routing.Geocoder
	distance       routing.DistanceProvider
	traffic        routing.TrafficProvider
	weather        WeatherSummarizer
	reconciler     *features.Reconciler
	predictor      predictor.Predictor
	pricer         cost.Pricer
	repo           Repository
	countryHint    string
	topImportances int
	recorder       Recorder
	logger         zerolog.Logger
	now            func() time.Time
	newID          func() string
}

// NewService creates a new estimate service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		routing:        cfg.Routing,
		verifier:       cfg.Verifier,
		distance:       cfg.Distance,
		traffic:        cfg.Traffic,
		weather:        cfg.Weather,
		reconciler:     cfg.Reconciler,
		predictor:      cfg.Predictor,
		pricer:         cfg.Pricer,
		repo:           cfg.Repository,
		countryHint:    cfg.CountryHint,
		topImportances: cfg.TopImportances,
		recorder:       cfg.Recorder,
		logger:         cfg.Logger,
		now:            cfg.Now,
		newID:          cfg.NewID,
	}
	if s.reconciler == nil {
		s.reconciler = features.NewReconciler(nil, cfg.Logger)
	}
	if s.pricer == nil {
		s.pricer = cost.NewStaticPricer(cost.DefaultPricePerLitre, nil)
	}
	if s.repo == nil {
		s.repo = NewInMemoryRepository()
	}
	if s.countryHint == "" {
		s.countryHint = routing.DefaultCountryHint
	}
	if s.topImportances == 0 {
		s.topImportances = predictor.DefaultTopImportances
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return "est_" + uuid.NewString() }
	}
	return s
}

// Taxonomy returns the taxonomy requests are validated against.
func (s *Service) Taxonomy() *features.Taxonomy {
	return s.reconciler.Taxonomy()
}

// Estimate validates req and runs the pipeline. Validation failures match
// ErrInvalidRequest. Route, geocoding and distance failures match
// routing.ErrRoutingUnavailable, a malformed polyline polyline.ErrDecode,
// and model failures predictor.ErrUnavailable. Everything else degrades
// and is listed in Analytics.Degraded.
func (s *Service) Estimate(ctx context.Context, req Request) (*Estimate, error) {
	e, err := s.estimate(ctx, req)
	if s.recorder != nil {
		switch {
		case err == nil:
			s.recorder.RecordEstimate(ctx, "success", e.Analytics.Degraded, e.Analytics.FinalCost)
		case errors.Is(err, ErrInvalidRequest):
			s.recorder.RecordEstimate(ctx, "invalid", nil, 0)
		default:
			s.recorder.RecordEstimate(ctx, "failure", nil, 0)
		}
	}
	return e, err
}

func (s *Service) estimate(ctx context.Context, req Request) (*Estimate, error) {
	if err := req.Validate(s.Taxonomy()); err != nil {
		return nil, err
	}
	date, _ := time.Parse(DateLayout, req.JourneyDate)

	log := s.logger.With().
		Str("origin", req.OriginDepot).
		Str("destination", req.DestinationDepot).
		Str("vehicle", req.VehicleModel).
		Str("journey_date", req.JourneyDate).
		Logger()

	var degraded []string

	window, ok := features.DispatchWindow(req.DispatchTime)
	if !ok {
		log.Warn().Str("field", "dispatchTime").Str("value", req.DispatchTime).Msg("unparsable dispatch time, using noon")
		degraded = append(degraded, features.FeatureDispatchTime)
	}
	payloadKg := req.Pallets * features.PalletKg

	route, err := s.routing.Enrich(ctx, req.OriginDepot, req.DestinationDepot)
	if err != nil {
		log.Error().Err(err).Msg("route enrichment failed")
		return nil, err
	}

	origin, destination, err := s.verifyDepots(ctx, req, route)
	if err != nil {
		log.Error().Err(err).Msg("depot verification failed")
		return nil, err
	}

	split, err := s.distance.SplitDistance(ctx, origin, destination)
	if err != nil {
		log.Error().Err(err).Msg("distance split failed")
		return nil, fmt.Errorf("%w: distance split: %w", routing.ErrRoutingUnavailable, err)
	}
	totalKm := split.TotalKm()
	if totalKm <= 0 {
		log.Error().Float64("total_km", totalKm).Msg("route distance is not positive")
		return nil, fmt.Errorf("%w: route distance %.2f km", routing.ErrRoutingUnavailable, totalKm)
	}

	severity, delay := routing.SeverityLow, 0.0
	if s.traffic != nil {
		t, err := s.traffic.Traffic(ctx, origin, destination)
		if err != nil {
			log.Warn().Err(err).Msg("traffic unavailable, assuming no delay")
			degraded = append(degraded, DegradedTraffic)
		} else {
			delay = t.DelayMinutes
			severity = routing.ClassifyDelay(delay)
		}
	}

	summary := s.weather.Summarize(ctx, route.WeatherSamples, date)
	if summary.Points == 0 {
		degraded = append(degraded, DegradedWeather)
	}

	vector := s.reconciler.Build(features.Input{
		VehicleModel:     req.VehicleModel,
		VehicleAge:       req.VehicleAge,
		PayloadKg:        payloadKg,
		OriginDepot:      req.OriginDepot,
		DestinationDepot: req.DestinationDepot,
		DispatchWindow:   window,
		Distance:         split,
		Traffic:          severity,
		Weather:          summary,
	})
	degraded = append(degraded, vector.Degraded()...)

	if s.predictor == nil {
		return nil, fmt.Errorf("%w: no model configured", predictor.ErrUnavailable)
	}
	mpg, err := s.predictor.Predict(ctx, vector)
	if err != nil {
		log.Error().Err(err).Msg("prediction failed")
		return nil, predictor.Unavailable(err)
	}
	efficiency := mpg * predictor.MPGToKmPerLitre
	price := s.pricer.PricePerLitre(req.OriginDepot)
	breakdown := cost.Compute(totalKm, efficiency, price)
	if breakdown.FallbackUsed {
		log.Warn().Float64("efficiency_km_l", efficiency).Msg("non-positive efficiency, using fallback")
	}

	e := &Estimate{
		ID:        s.newID(),
		CreatedAt: s.now().UTC(),
		Request:   req,
		Route:     buildRoute(req, route, totalKm),
		Analytics: Analytics{
			EfficiencyPrediction: round2(breakdown.EfficiencyKmPerLitre),
			RequiredFuel:         round2(breakdown.RequiredFuelLitres),
			FuelPrice:            round2(breakdown.PricePerLitre),
			TotalCost:            round2(breakdown.TotalCost),
			Overhead:             round2(breakdown.Overhead),
			FinalCost:            round2(breakdown.FinalCost),
			CostPerKm:            round2(breakdown.CostPerKm),
			DistanceCity:         round2(split.CityKm),
			DistanceHighway:      round2(split.HighwayKm),
			TrafficSeverity:      string(severity),
			TrafficDelayMinutes:  round2(delay),
			AvgTemperature:       round2(summary.AvgTempC),
			RainClassification:   string(summary.Rain),
			SnowClassification:   string(summary.Snow),
			DispatchWindow:       window,
			PayloadKg:            round2(payloadKg),
			WeatherPoints:        summary.Points,
			FeatureImportance:    s.importances(ctx, log),
			ModelFeatures:        vector.Features(),
			Degraded:             degraded,
		},
	}
	if e.Analytics.Degraded == nil {
		e.Analytics.Degraded = []string{}
	}

	if err := s.repo.Save(ctx, e); err != nil {
		log.Warn().Err(err).Str("estimate_id", e.ID).Msg("failed to save estimate")
	}

	log.Info().
		Str("estimate_id", e.ID).
		Float64("total_km", e.Route.TotalDistance).
		Float64("efficiency_km_l", e.Analytics.EfficiencyPrediction).
		Float64("final_cost", e.Analytics.FinalCost).
		Strs("degraded", degraded).
		Msg("journey estimated")

	return e, nil
}

// Get returns a stored estimate.
func (s *Service) Get(ctx context.Context, id string) (*Estimate, error) {
	return s.repo.Get(ctx, id)
}

// List returns the most recent estimates.
func (s *Service) List(ctx context.Context, limit int) ([]*Estimate, error) {
	return s.repo.List(ctx, limit)
}

// verifyDepots returns the endpoints for the traffic and distance calls.
func (s *Service) verifyDepots(ctx context.Context, req Request, route *routing.Result) (geo.Point, geo.Point, error) {
	if s.verifier == nil {
		return route.Origin, route.Destination, nil
	}

	origin, err := s.verifier.Geocode(ctx, req.OriginDepot, s.countryHint)
	if err != nil {
		return geo.Point{}, geo.Point{}, verifyError(req.OriginDepot, err)
	}
	destination, err := s.verifier.Geocode(ctx, req.DestinationDepot, s.countryHint)
	if err != nil {
		return geo.Point{}, geo.Point{}, verifyError(req.DestinationDepot, err)
	}
	return origin, destination, nil
}

func verifyError(depot string, err error) error {
	return fmt.Errorf("%w: %w: verifying %q: %w", routing.ErrRoutingUnavailable, routing.ErrGeocodingFailed, depot, err)
}

func (s *Service) importances(ctx context.Context, log zerolog.Logger) []predictor.Importance {
	reporter, ok := s.predictor.(predictor.ImportanceReporter)
	if !ok {
		return []predictor.Importance{}
	}
	all, err := reporter.FeatureImportances(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("feature importances unavailable")
		return []predictor.Importance{}
	}
	return predictor.Top(all, s.topImportances)
}

func buildRoute(req Request, r *routing.Result, totalKm float64) Route {
	coords := make([]Coordinate, len(r.Polyline))
	for i, p := range r.Polyline {
		coords[i] = toCoordinate(p)
	}
	stations := make([]Station, len(r.FuelStations))
	for i, p := range r.FuelStations {
		stations[i] = Station{Name: fmt.Sprintf("Fuel Station %d", i+1), Coordinates: toCoordinate(p)}
	}
	return Route{
		Origin:           req.OriginDepot,
		Destination:      req.DestinationDepot,
		Coordinates:      coords,
		Stations:         stations,
		TotalDistance:    round2(totalKm),
		GeometryPolyline: polyline.EncodeGoogle(r.Polyline),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

