// Package predictor defines the fuel efficiency model boundary.
package predictor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dieselroute/dieselroute/internal/features"
)

// ErrUnavailable is returned when no prediction can be made. It is fatal
// to an estimate; there is no fallback prediction.
var ErrUnavailable = errors.New("prediction unavailable")

// DefaultTopImportances is how many importances an estimate reports.
const DefaultTopImportances = 8

// MPGToKmPerLitre converts miles per gallon to kilometres per litre.
const MPGToKmPerLitre = 0.425144

// Predictor returns the model's efficiency estimate in miles per gallon.
type Predictor interface {
	Predict(ctx context.Context, v features.Vector) (float64, error)
}

// Importance is the weight a model gives one feature.
type Importance struct {
	Feature string  `json:"name"`
	Weight  float64 `json:"value"`
}

// ImportanceReporter is implemented by predictors that can explain
// themselves.
type ImportanceReporter interface {
	FeatureImportances(ctx context.Context) ([]Importance, error)
}

// Unavailable wraps err so that it matches ErrUnavailable.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Top returns the n heaviest importances, heaviest first. Ties keep their
// original order.
func Top(importances []Importance, n int) []Importance {
	sorted := slices.Clone(importances)
	slices.SortStableFunc(sorted, func(a, b Importance) int {
		return cmp.Compare(b.Weight, a.Weight)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
