package features

import "slices"

// Feature is one named model input.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Vector is an ordered, fixed-width model input. The zero value is empty;
// vectors come from Reconciler.Build.
type Vector struct {
	names    []string
	values   []float64
	index    map[string]int
	degraded []string
}

// Len returns the number of features.
func (v Vector) Len() int {
	return len(v.values)
}

// Names returns the feature names in order.
func (v Vector) Names() []string {
	return slices.Clone(v.names)
}

// Values returns the feature values in order.
func (v Vector) Values() []float64 {
	return slices.Clone(v.values)
}

// Get returns the value of the named feature.
func (v Vector) Get(name string) (float64, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// Features returns the vector as name/value pairs in order.
func (v Vector) Features() []Feature {
	out := make([]Feature, len(v.values))
	for i := range v.values {
		out[i] = Feature{Name: v.names[i], Value: v.values[i]}
	}
	return out
}

// Degraded lists the features whose categorical input was missing from
// its lookup table, plus "vehicle" when no vehicle rule matched.
func (v Vector) Degraded() []string {
	return slices.Clone(v.degraded)
}

func newVector(names []string, values map[string]float64, degraded []string) Vector {
	v := Vector{
		names:    names,
		values:   make([]float64, len(names)),
		index:    make(map[string]int, len(names)),
		degraded: degraded,
	}
	for i, n := range names {
		v.values[i] = values[n]
		v.index[n] = i
	}
	return v
}
