package routing

import (
	"math"
	"sort"

	"github.com/dieselroute/dieselroute/pkg/geo"
)

// DefaultWeatherSamples bounds the number of weather lookups per route.
const DefaultWeatherSamples = 15

// SampleIndices picks up to target evenly spaced indices into a sequence of
// n points. The result is strictly increasing and always holds 0 and n-1.
// Targets below two degrade to the first and last index.
func SampleIndices(n, target int) []int {
	if n <= 0 {
		return nil
	}
	if n <= target {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	last := n - 1
	picked := []int{0}

	if target > 2 {
		step := float64(last) / float64(target-1)
		acc := 0.0
		for i := 0; i < target-2; i++ {
			acc += step
			idx := int(math.RoundToEven(acc))
			if idx > last {
				idx = last
			}
			picked = append(picked, idx)
		}
	}
	picked = append(picked, last)

	return uniqueSorted(picked)
}

// Sample returns the points at SampleIndices(len(points), target), in route order.
func Sample(points []geo.Point, target int) []geo.Point {
	indices := SampleIndices(len(points), target)
	sampled := make([]geo.Point, len(indices))
	for i, idx := range indices {
		sampled[i] = points[idx]
	}
	return sampled
}

// SampleWithStart samples points and makes sure the geocoded start appears
// first. Short routes always get the start prepended; sampled routes only
// when the start is not already one of the samples.
func SampleWithStart(points []geo.Point, start geo.Point, target int) []geo.Point {
	if len(points) <= target {
		out := make([]geo.Point, 0, len(points)+1)
		out = append(out, start)
		return append(out, points...)
	}

	sampled := Sample(points, target)
	for _, p := range sampled {
		if p == start {
			return sampled
		}
	}
	return append([]geo.Point{start}, sampled...)
}

func uniqueSorted(values []int) []int {
	sort.Ints(values)
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}
