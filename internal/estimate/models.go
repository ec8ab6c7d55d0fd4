// Package estimate runs the journey estimation pipeline: route enrichment,
// traffic and weather, feature reconciliation, prediction and costing.
package estimate

import (
	"errors"
	"strings"
	"time"

	"github.com/dieselroute/dieselroute/internal/features"
	"github.com/dieselroute/dieselroute/internal/predictor"
	"github.com/dieselroute/dieselroute/pkg/geo"
)

// Estimate errors.
var (
	ErrNotFound       = errors.New("estimate not found")
	ErrInvalidRequest = errors.New("invalid request")
)

// DateLayout is the journey date format.
const DateLayout = "2006-01-02"

// Request is a journey to estimate.
type Request struct {
	OriginDepot      string  `json:"originDepot"`
	DestinationDepot string  `json:"destinationDepot"`
	VehicleModel     string  `json:"vehicleModel"`
	Pallets          float64 `json:"pallets"`
	VehicleAge       float64 `json:"vehicleAge"`
	DispatchTime     string  `json:"dispatchTime"`
	JourneyDate      string  `json:"journeyDate"`
}

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Request.Validate. It matches
// ErrInvalidRequest.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// Is reports whether target is ErrInvalidRequest.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Validate checks r against the depots and vehicles of tax.
func (r Request) Validate(tax *features.Taxonomy) error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	switch {
	case r.OriginDepot == "":
		add("originDepot", "is required")
	case !tax.HasDepot(r.OriginDepot):
		add("originDepot", "unknown depot")
	}
	switch {
	case r.DestinationDepot == "":
		add("destinationDepot", "is required")
	case !tax.HasDepot(r.DestinationDepot):
		add("destinationDepot", "unknown depot")
	}
	if r.OriginDepot != "" && r.OriginDepot == r.DestinationDepot {
		add("destinationDepot", "must differ from originDepot")
	}

	switch {
	case r.VehicleModel == "":
		add("vehicleModel", "is required")
	case !tax.HasLiveVehicle(r.VehicleModel):
		add("vehicleModel", "unknown vehicle model")
	}

	if r.Pallets <= 0 {
		add("pallets", "must be greater than zero")
	}
	if r.VehicleAge < 0 {
		add("vehicleAge", "must not be negative")
	}
	if r.DispatchTime == "" {
		add("dispatchTime", "is required")
	}

	if r.JourneyDate == "" {
		add("journeyDate", "is required")
	} else if _, err := time.Parse(DateLayout, r.JourneyDate); err != nil {
		add("journeyDate", "must be YYYY-MM-DD")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Estimate is a priced journey.
type Estimate struct {
	ID        string    `json:"estimateId"`
	CreatedAt time.Time `json:"createdAt"`
	Request   Request   `json:"request"`
	Route     Route     `json:"route"`
	Analytics Analytics `json:"analytics"`
}

// Coordinate is a [lat, lon] pair.
type Coordinate [2]float64

func toCoordinate(p geo.Point) Coordinate {
	return Coordinate{p.Lat, p.Lon}
}

// Station is a fuel stop along the route.
type Station struct {
	Name        string     `json:"name"`
	Coordinates Coordinate `json:"coordinates"`
}

// Route is the drawn route. Coordinates keep the polyline order.
type Route struct {
	Origin           string       `json:"origin"`
	Destination      string       `json:"destination"`
	Coordinates      []Coordinate `json:"coordinates"`
	Stations         []Station    `json:"stations"`
	TotalDistance    float64      `json:"total_distance"`
	GeometryPolyline string       `json:"geometry_polyline"`
}

// Analytics holds the derived metrics. Monetary values are NGN, distances
// km and efficiency km per litre.
type Analytics struct {
	EfficiencyPrediction float64                `json:"efficiency_prediction"`
	RequiredFuel         float64                `json:"total_required_fuel"`
	FuelPrice            float64                `json:"fuel_price"`
	TotalCost            float64                `json:"total_fuel_cost"`
	Overhead             float64                `json:"overhead_cost"`
	FinalCost            float64                `json:"total_final_cost"`
	CostPerKm            float64                `json:"cost_per_km"`
	DistanceCity         float64                `json:"city_distance"`
	DistanceHighway      float64                `json:"highway_distance"`
	TrafficSeverity      string                 `json:"traffic_severity"`
	TrafficDelayMinutes  float64                `json:"traffic_delay_minutes"`
	AvgTemperature       float64                `json:"average_temperature"`
	RainClassification   string                 `json:"rain_classification"`
	SnowClassification   string                 `json:"snow_classification"`
	DispatchWindow       string                 `json:"dispatch_window"`
	PayloadKg            float64                `json:"payload_kg"`
	WeatherPoints        int                    `json:"weather_points"`
	FeatureImportance    []predictor.Importance `json:"featureImportance"`
	ModelFeatures        []features.Feature     `json:"model_features"`
	Degraded             []string               `json:"degraded"`
}
