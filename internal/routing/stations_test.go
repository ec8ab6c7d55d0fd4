package routing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dieselroute/dieselroute/pkg/geo"
)

// mockPOISearch answers with respond and records every query point.
type mockPOISearch struct {
	mu       sync.Mutex
	queries  []geo.Point
	category string
	respond  func(call int, at geo.Point) (geo.Point, error)
}

func (m *mockPOISearch) Nearest(_ context.Context, at geo.Point, category string) (geo.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, at)
	m.category = category
	return m.respond(len(m.queries), at)
}

func (m *mockPOISearch) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// equatorRoute returns n points 0.01 degrees of longitude apart (about 1.11 km).
func equatorRoute(n int) []geo.Point {
	points := make([]geo.Point, n)
	for i := range points {
		points[i] = geo.NewPoint(0, float64(i)*0.01)
	}
	return points
}

func echoStation(_ int, at geo.Point) (geo.Point, error) {
	return geo.NewPoint(at.Lat+0.001, at.Lon), nil
}

func TestStationLocator_ShortRouteSkipsSearch(t *testing.T) {
	search := &mockPOISearch{respond: echoStation}
	locator := NewStationLocator(search, LocatorConfig{Logger: zerolog.Nop()})

	stations := locator.Locate(context.Background(), equatorRoute(9))

	assert.Empty(t, stations)
	assert.Equal(t, 0, search.calls())
}

func TestStationLocator_QuarterIntervals(t *testing.T) {
	search := &mockPOISearch{respond: echoStation}
	locator := NewStationLocator(search, LocatorConfig{Logger: zerolog.Nop()})

	route := equatorRoute(101)
	stations := locator.Locate(context.Background(), route)

	require.Len(t, stations, 3)
	assert.Equal(t, 3, search.calls())
	assert.Equal(t, FuelStationCategory, search.category)

	total := geo.PathLength(route)
	for i := 1; i < len(stations); i++ {
		gap := geo.Distance(stations[i-1], stations[i])
		assert.InDelta(t, total/4, gap, 2.5, "stations should be about a quarter route apart")
	}

	last := stations[len(stations)-1]
	assert.Greater(t, geo.Distance(last, route[len(route)-1]), total/8,
		"no search within half an interval of the end")
}

func TestStationLocator_DropsCloseDuplicates(t *testing.T) {
	fixed := geo.NewPoint(0.01, 0.3)
	search := &mockPOISearch{respond: func(int, geo.Point) (geo.Point, error) { return fixed, nil }}
	locator := NewStationLocator(search, LocatorConfig{Logger: zerolog.Nop()})

	stations := locator.Locate(context.Background(), equatorRoute(101))

	require.Len(t, stations, 1)
	assert.Equal(t, fixed, stations[0])
	assert.Greater(t, search.calls(), 2, "a dropped duplicate must not reset the search interval")
}

func TestStationLocator_FailedQueryIsNotRetried(t *testing.T) {
	search := &mockPOISearch{respond: func(call int, at geo.Point) (geo.Point, error) {
		if call == 1 {
			return geo.Point{}, errors.New("timeout")
		}
		return echoStation(call, at)
	}}
	locator := NewStationLocator(search, LocatorConfig{Logger: zerolog.Nop()})

	stations := locator.Locate(context.Background(), equatorRoute(101))

	assert.Len(t, stations, 3)
	require.Equal(t, 4, search.calls())
	assert.NotEqual(t, search.queries[0], search.queries[1], "the walk moves on after a failure")
}

func TestStationLocator_NotFoundKeepsWalking(t *testing.T) {
	search := &mockPOISearch{respond: func(int, geo.Point) (geo.Point, error) {
		return geo.Point{}, ErrNotFound
	}}
	locator := NewStationLocator(search, LocatorConfig{Logger: zerolog.Nop()})

	stations := locator.Locate(context.Background(), equatorRoute(101))

	assert.Empty(t, stations)
	assert.Greater(t, search.calls(), 1)
}

func TestStationLocator_CustomSettings(t *testing.T) {
	search := &mockPOISearch{respond: echoStation}
	locator := NewStationLocator(search, LocatorConfig{
		MinRouteKm:       200,
		IntervalFraction: 0.5,
		Logger:           zerolog.Nop(),
	})

	assert.Empty(t, locator.Locate(context.Background(), equatorRoute(101)))
	assert.Equal(t, 0, search.calls())
}

func TestClassifyDelay(t *testing.T) {
	tests := []struct {
		delay    float64
		expected Severity
	}{
		{0, SeverityLow},
		{7, SeverityLow},
		{7.5, SeverityMedium},
		{30, SeverityMedium},
		{31, SeverityHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClassifyDelay(tt.delay), "delay %v", tt.delay)
	}
}

func TestDistanceSplit_Total(t *testing.T) {
	split := DistanceSplit{CityKm: 12.5, HighwayKm: 500.25}
	assert.InDelta(t, 512.75, split.TotalKm(), 1e-9)
}
