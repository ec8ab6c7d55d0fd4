// Package features turns a journey into the fixed-width numeric feature
// vector the fuel efficiency model was trained on.
//
// The model was fit on a different vehicle and depot taxonomy from the one
// users pick from, so every categorical input goes through a lookup table
// and misses degrade to a sentinel code instead of failing.
package features

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Schema constants.
const (
	// SchemaWidth is the number of features the model expects.
	SchemaWidth = 24

	// ModelVehicleCount is the number of vehicle indicator features.
	ModelVehicleCount = 10

	// KmToMiles converts kilometres to miles.
	KmToMiles = 0.621371

	// AvgSpeedMph is always fed to the model in place of a measured speed.
	AvgSpeedMph = 65.0

	// PalletKg is the assumed weight of one pallet.
	PalletKg = 880.0

	// MissingCode is the code of a categorical value absent from its table.
	MissingCode = -1

	// MissingSnowCode is the code of a snow bucket absent from its table.
	// It differs from MissingCode.
	MissingSnowCode = 0
)

// Scalar feature names, in schema order.
const (
	FeatureVehicleAge       = "Vehicle_age"
	FeatureGoodsWeight      = "Goods_weight"
	FeatureTotalDistance    = "Total_distance_miles"
	FeatureTraffic          = "Avg_traffic_congestion"
	FeatureTemperature      = "Avg_temp"
	FeaturePrecipitation    = "Avg_Precipitation"
	FeatureSnow             = "Avg_snow"
	FeatureOriginDepot      = "Origin_depot"
	FeatureDestinationDepot = "Destination_depot"
	FeatureAvgSpeed         = "Avg_Speed_mph"
	FeatureHighwayDistance  = "Distance_highway"
	FeatureCityDistance     = "Distance_city"
	FeatureDispatchTime     = "dispatch_time"
	FeatureTotalPayload     = "total_payload"
)

var scalarFeatures = []string{
	FeatureVehicleAge,
	FeatureGoodsWeight,
	FeatureTotalDistance,
	FeatureTraffic,
	FeatureTemperature,
	FeaturePrecipitation,
	FeatureSnow,
	FeatureOriginDepot,
	FeatureDestinationDepot,
	FeatureAvgSpeed,
	FeatureHighwayDistance,
	FeatureCityDistance,
	FeatureDispatchTime,
	FeatureTotalPayload,
}

// ErrInvalidTaxonomy is returned when a Definition cannot produce a usable
// Taxonomy.
var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

// VehicleRule maps any live vehicle whose name contains Keyword to the
// model vehicle Target. Matching is case-sensitive.
type VehicleRule struct {
	Keyword string `toml:"keyword" json:"keyword"`
	Target  string `toml:"target" json:"target"`
}

// Definition is the editable form of a Taxonomy, as read from a
// configuration file.
type Definition struct {
	// Depots lists the depot names; a depot's code is its index.
	Depots []string `toml:"depots"`

	// LiveVehicles lists the vehicle models a request may name.
	LiveVehicles []string `toml:"live_vehicles"`

	// ModelVehicles lists the vehicle indicator features in schema order.
	ModelVehicles []string `toml:"model_vehicles"`

	// VehicleRules are tried in order; the first match wins.
	VehicleRules []VehicleRule `toml:"vehicle_rules"`

	Dispatch      map[string]int `toml:"dispatch"`
	Traffic       map[string]int `toml:"traffic"`
	Temperature   map[string]int `toml:"temperature"`
	Precipitation map[string]int `toml:"precipitation"`
	Snow          map[string]int `toml:"snow"`
}

// DefaultDefinition returns the taxonomy the bundled model was trained
// against, with the Nigerian depots and fleet.
func DefaultDefinition() Definition {
	ordinal := func() map[string]int {
		return map[string]int{"low": 0, "medium": 1, "high": 2}
	}
	return Definition{
		Depots: []string{
			"Lagos", "Abuja", "Kano", "Ibadan",
			"Port Harcourt", "Benin City", "Kaduna", "Enugu",
		},
		LiveVehicles: []string{
			"Mercedes-Benz Actros 2645", "SINOTRUK HOWO A7", "IVECO Stralis",
			"DAF XF 530", "MAN TGS 26.440", "TATA Prima 4928.S",
			"SCANIA R 450", "Volvo FH 520", "MACK Granite",
		},
		ModelVehicles: []string{
			"DAF XF 105.510", "DAF XG 530", "IVECO EuroCargo ml180e28",
			"IVECO NP 460", "MAN TGM 18.250", "MAN TGX 18.400", "SCANIA G 460",
			"SCANIA R 450", "VOLVO FH 520", "VOLVO FL 420",
		},
		VehicleRules: []VehicleRule{
			{Keyword: "DAF", Target: "DAF XG 530"},
			{Keyword: "SCANIA", Target: "SCANIA R 450"},
			{Keyword: "Volvo", Target: "VOLVO FH 520"},
			{Keyword: "MAN", Target: "MAN TGX 18.400"},
			{Keyword: "IVECO", Target: "IVECO NP 460"},
		},
		Dispatch:      map[string]int{"morning": 0, "night": 1, "noon": 2},
		Traffic:       ordinal(),
		Temperature:   ordinal(),
		Precipitation: ordinal(),
		Snow:          ordinal(),
	}
}

// Taxonomy is the immutable set of lookup tables used by the Reconciler.
// Build one with NewTaxonomy or DefaultTaxonomy.
type Taxonomy struct {
	depots        map[string]int
	depotNames    []string
	liveVehicles  []string
	modelVehicles []string
	rules         []VehicleRule
	dispatch      map[string]int
	traffic       map[string]int
	temperature   map[string]int
	precipitation map[string]int
	snow          map[string]int
	names         []string
}

// NewTaxonomy validates def and builds a Taxonomy from a copy of it.
func NewTaxonomy(def Definition) (*Taxonomy, error) {
	if len(scalarFeatures)+len(def.ModelVehicles) != SchemaWidth {
		return nil, fmt.Errorf("%w: %d model vehicles, want %d",
			ErrInvalidTaxonomy, len(def.ModelVehicles), SchemaWidth-len(scalarFeatures))
	}
	if len(def.Depots) == 0 {
		return nil, fmt.Errorf("%w: no depots", ErrInvalidTaxonomy)
	}
	if len(def.LiveVehicles) == 0 {
		return nil, fmt.Errorf("%w: no live vehicles", ErrInvalidTaxonomy)
	}
	for _, r := range def.VehicleRules {
		if r.Keyword == "" {
			return nil, fmt.Errorf("%w: vehicle rule for %q has no keyword", ErrInvalidTaxonomy, r.Target)
		}
		if !slices.Contains(def.ModelVehicles, r.Target) {
			return nil, fmt.Errorf("%w: vehicle rule target %q is not a model vehicle", ErrInvalidTaxonomy, r.Target)
		}
	}

	t := &Taxonomy{
		depots:        make(map[string]int, len(def.Depots)),
		depotNames:    slices.Clone(def.Depots),
		liveVehicles:  slices.Clone(def.LiveVehicles),
		modelVehicles: slices.Clone(def.ModelVehicles),
		rules:         slices.Clone(def.VehicleRules),
		dispatch:      maps.Clone(def.Dispatch),
		traffic:       maps.Clone(def.Traffic),
		temperature:   maps.Clone(def.Temperature),
		precipitation: maps.Clone(def.Precipitation),
		snow:          maps.Clone(def.Snow),
	}
	for i, d := range def.Depots {
		if _, dup := t.depots[d]; dup {
			return nil, fmt.Errorf("%w: duplicate depot %q", ErrInvalidTaxonomy, d)
		}
		t.depots[d] = i
	}

	t.names = make([]string, 0, SchemaWidth)
	t.names = append(t.names, scalarFeatures...)
	t.names = append(t.names, def.ModelVehicles...)
	return t, nil
}

// DefaultTaxonomy returns the taxonomy built from DefaultDefinition.
func DefaultTaxonomy() *Taxonomy {
	t, err := NewTaxonomy(DefaultDefinition())
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns the feature schema in order.
func (t *Taxonomy) Names() []string {
	return slices.Clone(t.names)
}

// Depots returns the depot names in code order.
func (t *Taxonomy) Depots() []string {
	return slices.Clone(t.depotNames)
}

// LiveVehicles returns the vehicle models a request may name.
func (t *Taxonomy) LiveVehicles() []string {
	return slices.Clone(t.liveVehicles)
}

// ModelVehicles returns the vehicle indicator names in schema order.
func (t *Taxonomy) ModelVehicles() []string {
	return slices.Clone(t.modelVehicles)
}

// DispatchWindows returns the known dispatch windows sorted by code.
func (t *Taxonomy) DispatchWindows() []string {
	windows := make([]string, 0, len(t.dispatch))
	for w := range t.dispatch {
		windows = append(windows, w)
	}
	slices.SortFunc(windows, func(a, b string) int {
		if c := t.dispatch[a] - t.dispatch[b]; c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return windows
}

// HasDepot reports whether name is a known depot.
func (t *Taxonomy) HasDepot(name string) bool {
	_, ok := t.depots[name]
	return ok
}

// HasLiveVehicle reports whether name is a vehicle a request may name.
func (t *Taxonomy) HasLiveVehicle(name string) bool {
	return slices.Contains(t.liveVehicles, name)
}

// MapVehicle returns the model vehicle the first matching rule assigns to
// a live vehicle name.
func (t *Taxonomy) MapVehicle(name string) (string, bool) {
	for _, r := range t.rules {
		if strings.Contains(name, r.Keyword) {
			return r.Target, true
		}
	}
	return "", false
}
