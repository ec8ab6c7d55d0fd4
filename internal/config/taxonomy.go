package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/dieselroute/dieselroute/internal/cost"
	"github.com/dieselroute/dieselroute/internal/features"
)

// TaxonomyFile is the layout of the TOML override file. Sections left out
// keep the built-in defaults.
type TaxonomyFile struct {
	Taxonomy features.Definition `toml:"taxonomy"`
	Prices   PriceTable          `toml:"prices"`
}

// PriceTable is the diesel price per litre, optionally per origin depot.
type PriceTable struct {
	Default float64            `toml:"default"`
	ByDepot map[string]float64 `toml:"by_depot"`
}

// Catalog is the loaded taxonomy and price table.
type Catalog struct {
	Taxonomy *features.Taxonomy
	Pricer   *cost.StaticPricer
}

// DefaultCatalog returns the built-in taxonomy priced at defaultPrice.
func DefaultCatalog(defaultPrice float64) *Catalog {
	return &Catalog{
		Taxonomy: features.DefaultTaxonomy(),
		Pricer:   cost.NewStaticPricer(defaultPrice, nil),
	}
}

// LoadCatalog reads the TOML file at path over the defaults. An empty path
// returns DefaultCatalog. Unknown keys are rejected.
func LoadCatalog(path string, defaultPrice float64) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(defaultPrice), nil
	}

	var file TaxonomyFile
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("decoding taxonomy file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("taxonomy file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	tax, err := features.NewTaxonomy(mergeDefinition(features.DefaultDefinition(), file.Taxonomy))
	if err != nil {
		return nil, fmt.Errorf("taxonomy file %s: %w", path, err)
	}

	price := defaultPrice
	if file.Prices.Default > 0 {
		price = file.Prices.Default
	}
	for depot := range file.Prices.ByDepot {
		if !tax.HasDepot(depot) {
			return nil, fmt.Errorf("taxonomy file %s: price for unknown depot %q", path, depot)
		}
	}

	return &Catalog{
		Taxonomy: tax,
		Pricer:   cost.NewStaticPricer(price, file.Prices.ByDepot),
	}, nil
}

// mergeDefinition replaces every list or table of base that override sets.
func mergeDefinition(base, override features.Definition) features.Definition {
	if override.Depots != nil {
		base.Depots = slices.Clone(override.Depots)
	}
	if override.LiveVehicles != nil {
		base.LiveVehicles = slices.Clone(override.LiveVehicles)
	}
	if override.ModelVehicles != nil {
		base.ModelVehicles = slices.Clone(override.ModelVehicles)
	}
	if override.VehicleRules != nil {
		base.VehicleRules = slices.Clone(override.VehicleRules)
	}
	if override.Dispatch != nil {
		base.Dispatch = override.Dispatch
	}
	if override.Traffic != nil {
		base.Traffic = override.Traffic
	}
	if override.Temperature != nil {
		base.Temperature = override.Temperature
	}
	if override.Precipitation != nil {
		base.Precipitation = override.Precipitation
	}
	if override.Snow != nil {
		base.Snow = override.Snow
	}
	return base
}
