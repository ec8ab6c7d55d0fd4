package here

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dieselroute/dieselroute/internal/provider/resilience"
	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/pkg/geo"
)

func fixtureServer(t *testing.T, path, fixture string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile(fixture)
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("expected path %s, got %s", path, r.URL.Path)
		}
		if got := r.URL.Query().Get("apiKey"); got != "mock123" {
			t.Errorf("expected apiKey mock123, got %q", got)
		}
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		APIKey:  "mock123",
		BaseURL: baseURL,
		Logger:  zerolog.Nop(),
	})
}

func TestClient_Geocode_Success(t *testing.T) {
	server := fixtureServer(t, "/v1/geocode", "testdata/geocode_response.json", func(r *http.Request) {
		assert.Equal(t, "Lagos, Nigeria", r.URL.Query().Get("q"))
	})
	defer server.Close()

	point, err := newTestClient(server.URL).Geocode(context.Background(), "Lagos", "Nigeria")
	require.NoError(t, err)

	assert.Equal(t, geo.NewPoint(6.45407, 3.39467), point)
}

func TestClient_Geocode_NoHint(t *testing.T) {
	server := fixtureServer(t, "/v1/geocode", "testdata/geocode_response.json", func(r *http.Request) {
		assert.Equal(t, "Lagos", r.URL.Query().Get("q"))
	})
	defer server.Close()

	_, err := newTestClient(server.URL).Geocode(context.Background(), "Lagos", "")
	require.NoError(t, err)
}

func TestClient_Geocode_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Geocode(context.Background(), "Atlantis", "Nigeria")
	assert.ErrorIs(t, err, routing.ErrNotFound)
}

func TestClient_Route_Success(t *testing.T) {
	server := fixtureServer(t, "/v8/routes", "testdata/routes_response.json", func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "car", q.Get("transportMode"))
		assert.Equal(t, "6.45407,3.39467", q.Get("origin"))
		assert.Equal(t, "9.05785,7.49508", q.Get("destination"))
		assert.Equal(t, "polyline", q.Get("return"))
	})
	defer server.Close()

	encoded, err := newTestClient(server.URL).Route(context.Background(),
		geo.NewPoint(6.45407, 3.39467), geo.NewPoint(9.05785, 7.49508))
	require.NoError(t, err)

	assert.Equal(t, "BFoz5xJ67i1B1B7PzIhaxL7Y", encoded)
}

func TestClient_Route_NoRoutes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[],"notices":[{"title":"Route calculation failed","code":"couldNotMatchOrigin"}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Route(context.Background(), geo.NewPoint(0, 0), geo.NewPoint(1, 1))
	assert.ErrorIs(t, err, routing.ErrNotFound)
}

func TestClient_Nearest_PicksSmallestDistance(t *testing.T) {
	server := fixtureServer(t, "/v1/discover", "testdata/discover_response.json", func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "fuel station", q.Get("q"))
		assert.Equal(t, "6.57,3.37", q.Get("at"))
		assert.Equal(t, "5", q.Get("limit"))
	})
	defer server.Close()

	station, err := newTestClient(server.URL).Nearest(context.Background(), geo.NewPoint(6.57, 3.37), routing.FuelStationCategory)
	require.NoError(t, err)

	assert.Equal(t, geo.NewPoint(6.5671, 3.3669), station)
}

func TestClient_Nearest_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Nearest(context.Background(), geo.NewPoint(6.57, 3.37), routing.FuelStationCategory)
	assert.ErrorIs(t, err, routing.ErrNotFound)
}

func jsonServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestClient_Geocode_MissingPosition(t *testing.T) {
	server := jsonServer(`{"items":[{"title":"Lagos, Nigeria","resultType":"locality"}]}`)
	defer server.Close()

	_, err := newTestClient(server.URL).Geocode(context.Background(), "Lagos", "Nigeria")
	assert.ErrorIs(t, err, routing.ErrNotFound)
}

func TestClient_Nearest_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want geo.Point
	}{
		{
			name: "missing distance ranks last",
			body: `{"items":[
				{"title":"A","position":{"lat":6.1,"lng":3.1}},
				{"title":"B","position":{"lat":6.2,"lng":3.2},"distance":900},
				{"title":"C","position":{"lat":6.3,"lng":3.3},"distance":1400}]}`,
			want: geo.NewPoint(6.2, 3.2),
		},
		{
			name: "no distances keeps the first",
			body: `{"items":[
				{"title":"A","position":{"lat":6.1,"lng":3.1}},
				{"title":"B","position":{"lat":6.2,"lng":3.2}}]}`,
			want: geo.NewPoint(6.1, 3.1),
		},
		{
			name: "missing position skipped",
			body: `{"items":[
				{"title":"A","distance":10},
				{"title":"B","position":{"lat":6.2,"lng":3.2},"distance":700}]}`,
			want: geo.NewPoint(6.2, 3.2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(tt.body)
			defer server.Close()

			got, err := newTestClient(server.URL).Nearest(context.Background(), geo.NewPoint(6.57, 3.37), routing.FuelStationCategory)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Nearest_NoPositions(t *testing.T) {
	server := jsonServer(`{"items":[{"title":"A","distance":10}]}`)
	defer server.Close()

	_, err := newTestClient(server.URL).Nearest(context.Background(), geo.NewPoint(6.57, 3.37), routing.FuelStationCategory)
	assert.ErrorIs(t, err, routing.ErrNotFound)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
	}{
		{"unauthorized", http.StatusUnauthorized, resilience.ErrRejected},
		{"rate limited", http.StatusTooManyRequests, resilience.ErrUnavailable},
		{"server error", http.StatusServiceUnavailable, resilience.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"Forbidden","error_description":"apiKey invalid"}`))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Geocode(context.Background(), "Lagos", "Nigeria")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)

			var callErr *resilience.CallError
			require.True(t, errors.As(err, &callErr))
			assert.Equal(t, ProviderName, callErr.Provider)
			assert.Equal(t, "geocode", callErr.Operation)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		APIKey:  "mock123",
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
		Logger:  zerolog.Nop(),
	})

	_, err := client.Nearest(context.Background(), geo.NewPoint(6.57, 3.37), routing.FuelStationCategory)
	assert.ErrorIs(t, err, resilience.ErrTimeout)
}

func TestClient_RegistersWithRegistry(t *testing.T) {
	registry := resilience.NewRegistry()
	client := NewClient(ClientConfig{APIKey: "mock123", Registry: registry, Logger: zerolog.Nop()})

	assert.Equal(t, ProviderName, client.Name())
	assert.NotNil(t, registry.GetHealth(ProviderName))
}
