// Package cost turns a distance and a fuel efficiency into a fuel cost.
package cost

import "maps"

const (
	// FallbackEfficiency replaces a non-positive efficiency prediction,
	// in km per litre.
	FallbackEfficiency = 2.0

	// OverheadRate is the share of fuel cost added as overhead.
	OverheadRate = 0.10

	// DefaultPricePerLitre is the diesel price in NGN per litre.
	DefaultPricePerLitre = 280.0
)

// Breakdown is the cost of one journey.
type Breakdown struct {
	DistanceKm           float64 `json:"distanceKm"`
	EfficiencyKmPerLitre float64 `json:"efficiencyKmPerLitre"`
	FallbackUsed         bool    `json:"fallbackUsed"`
	RequiredFuelLitres   float64 `json:"requiredFuelLitres"`
	PricePerLitre        float64 `json:"pricePerLitre"`
	TotalCost            float64 `json:"totalCost"`
	Overhead             float64 `json:"overhead"`
	FinalCost            float64 `json:"finalCost"`
	CostPerKm            float64 `json:"costPerKm"`
}

// Compute prices a journey. An efficiency at or below zero is replaced by
// FallbackEfficiency before anything is divided. CostPerKm is zero when
// distanceKm is zero.
func Compute(distanceKm, efficiencyKmPerLitre, pricePerLitre float64) Breakdown {
	b := Breakdown{
		DistanceKm:           distanceKm,
		EfficiencyKmPerLitre: efficiencyKmPerLitre,
		PricePerLitre:        pricePerLitre,
	}
	if b.EfficiencyKmPerLitre <= 0 {
		b.EfficiencyKmPerLitre = FallbackEfficiency
		b.FallbackUsed = true
	}

	b.RequiredFuelLitres = distanceKm / b.EfficiencyKmPerLitre
	b.TotalCost = b.RequiredFuelLitres * pricePerLitre
	b.Overhead = b.TotalCost * OverheadRate
	b.FinalCost = b.TotalCost + b.Overhead
	if distanceKm != 0 {
		b.CostPerKm = b.TotalCost / distanceKm
	}
	return b
}

// Pricer returns the diesel price per litre at a depot.
type Pricer interface {
	PricePerLitre(depot string) float64
}

// StaticPricer is a fixed price table with a default for unlisted depots.
type StaticPricer struct {
	def     float64
	byDepot map[string]float64
}

// NewStaticPricer creates a price table. A non-positive def becomes
// DefaultPricePerLitre.
func NewStaticPricer(def float64, byDepot map[string]float64) *StaticPricer {
	if def <= 0 {
		def = DefaultPricePerLitre
	}
	return &StaticPricer{def: def, byDepot: maps.Clone(byDepot)}
}

// PricePerLitre implements Pricer.
func (p *StaticPricer) PricePerLitre(depot string) float64 {
	if price, ok := p.byDepot[depot]; ok && price > 0 {
		return price
	}
	return p.def
}
