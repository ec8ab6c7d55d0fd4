package weatherapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dieselroute/dieselroute/internal/provider/resilience"
	"github.com/dieselroute/dieselroute/internal/weather"
	"github.com/dieselroute/dieselroute/pkg/geo"
)

var lagos = geo.NewPoint(6.45, 3.4)

func journeyDay(d int) time.Time {
	return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
}

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile("testdata/forecast_response.json")
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "6.45,3.4", q.Get("q"))
		assert.Equal(t, "4", q.Get("days"))
		assert.Equal(t, "no", q.Get("aqi"))
		assert.Equal(t, "no", q.Get("alerts"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{APIKey: "test-key", BaseURL: baseURL, Logger: zerolog.Nop()})
}

func TestClient_Forecast(t *testing.T) {
	server := newFixtureServer(t)
	defer server.Close()

	f, err := newTestClient(server.URL).Forecast(context.Background(), lagos, journeyDay(15))
	require.NoError(t, err)

	assert.Equal(t, lagos, f.Point)
	assert.InDelta(t, 28.4, f.AvgTempC, 1e-9)
	assert.InDelta(t, 12.7, f.TotalPrecipMm, 1e-9)
	assert.Zero(t, f.TotalSnowCm)
	assert.InDelta(t, 7.5, f.AvgVisibilityKm, 1e-9)
}

func TestClient_ForecastDefaultsVisibility(t *testing.T) {
	server := newFixtureServer(t)
	defer server.Close()

	f, err := newTestClient(server.URL).Forecast(context.Background(), lagos, journeyDay(16))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, f.AvgVisibilityKm, 1e-9)
}

func TestClient_ForecastDateOutsideWindow(t *testing.T) {
	server := newFixtureServer(t)
	defer server.Close()

	_, err := newTestClient(server.URL).Forecast(context.Background(), lagos, journeyDay(25))
	assert.ErrorIs(t, err, weather.ErrNoForecast)
}

func TestClient_ForecastInvalidPoint(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	_, err := c.Forecast(context.Background(), geo.NewPoint(-91, 0), journeyDay(15))
	assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
}

func TestClient_ForecastProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":2008,"message":"API key has been disabled."}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Forecast(context.Background(), lagos, journeyDay(15))
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrRejected)
	assert.NotErrorIs(t, err, weather.ErrNoForecast)
}
