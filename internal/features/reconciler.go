package features

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/internal/weather"
)

// Degraded marker for an unmapped vehicle.
const DegradedVehicle = "vehicle"

// Input is everything the model needs to know about one journey.
type Input struct {
	VehicleModel     string
	VehicleAge       float64
	PayloadKg        float64
	OriginDepot      string
	DestinationDepot string
	DispatchWindow   string
	Distance         routing.DistanceSplit
	Traffic          routing.Severity
	Weather          weather.Summary
}

// Reconciler builds model feature vectors against a Taxonomy.
type Reconciler struct {
	taxonomy *Taxonomy
	logger   zerolog.Logger
}

// NewReconciler creates a reconciler. A nil taxonomy uses DefaultTaxonomy.
func NewReconciler(taxonomy *Taxonomy, logger zerolog.Logger) *Reconciler {
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &Reconciler{taxonomy: taxonomy, logger: logger}
}

// Taxonomy returns the taxonomy the reconciler encodes against.
func (r *Reconciler) Taxonomy() *Taxonomy {
	return r.taxonomy
}

// Build encodes in into a vector with exactly SchemaWidth entries in
// schema order. It never fails: unknown categories take their sentinel
// code and are reported by Vector.Degraded.
func (r *Reconciler) Build(in Input) Vector {
	var degraded []string
	code := func(feature string, table map[string]int, key string, missing int) float64 {
		if c, ok := table[key]; ok {
			return float64(c)
		}
		degraded = append(degraded, feature)
		r.logger.Warn().
			Str("field", feature).
			Str("value", key).
			Int("code", missing).
			Msg("categorical value not in taxonomy")
		return float64(missing)
	}

	t := r.taxonomy
	values := map[string]float64{
		FeatureVehicleAge:       in.VehicleAge,
		FeatureGoodsWeight:      in.PayloadKg,
		FeatureTotalDistance:    in.Distance.TotalKm() * KmToMiles,
		FeatureTraffic:          code(FeatureTraffic, t.traffic, string(in.Traffic), MissingCode),
		FeatureTemperature:      code(FeatureTemperature, t.temperature, string(in.Weather.Temperature()), MissingCode),
		FeaturePrecipitation:    code(FeaturePrecipitation, t.precipitation, strings.ToLower(string(in.Weather.Rain)), MissingCode),
		FeatureSnow:             code(FeatureSnow, t.snow, strings.ToLower(string(in.Weather.Snow)), MissingSnowCode),
		FeatureOriginDepot:      code(FeatureOriginDepot, t.depots, in.OriginDepot, MissingCode),
		FeatureDestinationDepot: code(FeatureDestinationDepot, t.depots, in.DestinationDepot, MissingCode),
		FeatureAvgSpeed:         AvgSpeedMph,
		FeatureHighwayDistance:  in.Distance.HighwayKm * KmToMiles,
		FeatureCityDistance:     in.Distance.CityKm * KmToMiles,
		FeatureDispatchTime:     code(FeatureDispatchTime, t.dispatch, in.DispatchWindow, MissingCode),
		FeatureTotalPayload:     in.PayloadKg,
	}

	if target, ok := t.MapVehicle(in.VehicleModel); ok {
		values[target] = 1
		r.logger.Debug().Str("vehicle", in.VehicleModel).Str("indicator", target).Msg("mapped vehicle")
	} else {
		degraded = append(degraded, DegradedVehicle)
		r.logger.Warn().
			Str("field", DegradedVehicle).
			Str("value", in.VehicleModel).
			Msg("no vehicle indicator for model, all indicators zero")
	}

	return newVector(t.names, values, degraded)
}
