package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dieselroute/dieselroute/internal/api/handler"
	"github.com/dieselroute/dieselroute/internal/api/models"
	"github.com/dieselroute/dieselroute/internal/estimate"
	"github.com/dieselroute/dieselroute/internal/features"
	"github.com/dieselroute/dieselroute/internal/predictor"
	"github.com/dieselroute/dieselroute/internal/routing"
)

type mockEstimator struct {
	mu       sync.Mutex
	requests []estimate.Request
	err      error
	stored   map[string]*estimate.Estimate
	limit    int
}

func newMockEstimator() *mockEstimator {
	return &mockEstimator{stored: make(map[string]*estimate.Estimate)}
}

func (m *mockEstimator) Estimate(_ context.Context, req estimate.Request) (*estimate.Estimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if err := req.Validate(features.DefaultTaxonomy()); err != nil {
		return nil, err
	}
	e := &estimate.Estimate{
		ID:        fmt.Sprintf("est_%d", len(m.requests)),
		CreatedAt: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC),
		Request:   req,
		Analytics: estimate.Analytics{
			FinalCost: 86935.25,
			FeatureImportance: []predictor.Importance{
				{Feature: "Total_distance_miles", Weight: 0.31},
			},
		},
	}
	m.stored[e.ID] = e
	return e, nil
}

func (m *mockEstimator) Get(_ context.Context, id string) (*estimate.Estimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.stored[id]
	if !ok {
		return nil, estimate.ErrNotFound
	}
	return e, nil
}

func (m *mockEstimator) List(_ context.Context, limit int) ([]*estimate.Estimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = limit
	list := make([]*estimate.Estimate, 0, len(m.stored))
	for _, e := range m.stored {
		list = append(list, e)
	}
	return list, nil
}

func (m *mockEstimator) lastRequest(t *testing.T) estimate.Request {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.requests)
	return m.requests[len(m.requests)-1]
}

func estimateRouter(est handler.Estimator) http.Handler {
	h := handler.NewEstimateHandler(est, zerolog.Nop())
	r := chi.NewRouter()
	r.Post("/v1/estimates", h.Create)
	r.Get("/v1/estimates", h.List)
	r.Get("/v1/estimates/{estimateId}", h.Get)
	r.Post("/api/diesel/route", h.CreateForm)
	return r
}

const validJSON = `{
	"originDepot": "Lagos",
	"destinationDepot": "Abuja",
	"vehicleModel": "SCANIA R 450",
	"pallets": 10,
	"vehicleAge": 3,
	"dispatchTime": "14:00",
	"journeyDate": "2026-10-20"
}`

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var p models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestEstimateHandler_Create(t *testing.T) {
	est := newMockEstimator()
	router := estimateRouter(est)

	req := httptest.NewRequest(http.MethodPost, "/v1/estimates", strings.NewReader(validJSON))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/estimates/est_1", rec.Header().Get("Location"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "est_1", body["estimateId"])

	got := est.lastRequest(t)
	assert.Equal(t, "SCANIA R 450", got.VehicleModel)
	assert.InDelta(t, 10, got.Pallets, 0)
}

func TestEstimateHandler_CreateRejectsBadJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"originDepot":`},
		{"unknown field", `{"originDepot":"Lagos","cargo":"cement"}`},
		{"wrong type", `{"pallets":"ten"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := newMockEstimator()
			rec := httptest.NewRecorder()
			estimateRouter(est).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/estimates", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, models.CodeInvalidRequest, decodeProblem(t, rec).Code)
			assert.Empty(t, est.requests)
		})
	}
}

func TestEstimateHandler_CreateValidationErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	body := `{"originDepot":"Lagos","destinationDepot":"Lagos","vehicleModel":"SCANIA R 450","pallets":0,"dispatchTime":"14:00","journeyDate":"2026-10-20"}`
	estimateRouter(newMockEstimator()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/estimates", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeProblem(t, rec)
	assert.False(t, p.Success)

	fields := make([]string, len(p.Errors))
	for i, e := range p.Errors {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{"destinationDepot", "pallets"}, fields)
}

func TestEstimateHandler_CreateFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"geocoding", fmt.Errorf("%w: %w", routing.ErrGeocodingFailed, routing.ErrRoutingUnavailable), http.StatusBadGateway, models.CodeGeocodingFailed},
		{"route", routing.ErrRoutingUnavailable, http.StatusBadGateway, models.CodeRouteUnavailable},
		{"prediction", fmt.Errorf("predict: %w", predictor.ErrUnavailable), http.StatusServiceUnavailable, models.CodePredictionUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, models.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := newMockEstimator()
			est.err = tt.err

			rec := httptest.NewRecorder()
			estimateRouter(est).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/estimates", strings.NewReader(validJSON)))

			assert.Equal(t, tt.status, rec.Code)
			p := decodeProblem(t, rec)
			assert.Equal(t, tt.code, p.Code)
			assert.NotContains(t, p.Detail, "boom")
		})
	}
}

func TestEstimateHandler_CreateForm(t *testing.T) {
	est := newMockEstimator()

	form := url.Values{
		"originDepot":      {"Lagos"},
		"destinationDepot": {"Abuja"},
		"vehicleModel":     {"SCANIA R 450"},
		"pallets":          {"10"},
		"vehicleAge":       {"2.5"},
		"dispatchTime":     {"06:30"},
		"journeyDate":      {"2026-10-20"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/diesel/route", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	estimateRouter(est).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))

	got := est.lastRequest(t)
	assert.Equal(t, "Abuja", got.DestinationDepot)
	assert.InDelta(t, 10, got.Pallets, 0)
	assert.InDelta(t, 2.5, got.VehicleAge, 0)
	assert.Equal(t, "06:30", got.DispatchTime)
}

// multipartBody encodes fields the way a browser posts FormData.
func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestEstimateHandler_CreateFormMultipart(t *testing.T) {
	est := newMockEstimator()

	body, contentType := multipartBody(t, map[string]string{
		"originDepot":      "Kano",
		"destinationDepot": "Lagos",
		"vehicleModel":     "Volvo FH 520",
		"pallets":          "14",
		"vehicleAge":       "6",
		"dispatchTime":     "21:15",
		"journeyDate":      "2026-10-22",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/diesel/route", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	estimateRouter(est).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := est.lastRequest(t)
	assert.Equal(t, "Kano", got.OriginDepot)
	assert.Equal(t, "Volvo FH 520", got.VehicleModel)
	assert.InDelta(t, 14, got.Pallets, 0)
	assert.InDelta(t, 6, got.VehicleAge, 0)
	assert.Equal(t, "2026-10-22", got.JourneyDate)
}

func TestEstimateHandler_CreateFormAnalyticsKeys(t *testing.T) {
	form := url.Values{
		"originDepot":      {"Lagos"},
		"destinationDepot": {"Abuja"},
		"vehicleModel":     {"SCANIA R 450"},
		"pallets":          {"10"},
		"dispatchTime":     {"14:00"},
		"journeyDate":      {"2026-10-20"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/diesel/route", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	estimateRouter(newMockEstimator()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success   bool                       `json:"success"`
		Route     map[string]json.RawMessage `json:"route"`
		Analytics map[string]json.RawMessage `json:"analytics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)

	for _, key := range []string{
		"efficiency_prediction", "total_required_fuel", "total_fuel_cost",
		"overhead_cost", "total_final_cost", "cost_per_km", "fuel_price",
		"highway_distance", "city_distance", "average_temperature",
		"rain_classification", "snow_classification", "featureImportance",
	} {
		assert.Contains(t, body.Analytics, key)
	}
	for _, key := range []string{"origin", "destination", "coordinates", "stations", "total_distance"} {
		assert.Contains(t, body.Route, key)
	}
	assert.JSONEq(t, `86935.25`, string(body.Analytics["total_final_cost"]))

	var importances []map[string]any
	require.NoError(t, json.Unmarshal(body.Analytics["featureImportance"], &importances))
	require.Len(t, importances, 1)
	assert.Equal(t, map[string]any{"name": "Total_distance_miles", "value": 0.31}, importances[0])
}

func TestEstimateHandler_CreateFormRejectsNonNumbers(t *testing.T) {
	est := newMockEstimator()

	form := url.Values{"pallets": {"ten"}, "vehicleAge": {"old"}}
	req := httptest.NewRequest(http.MethodPost, "/api/diesel/route", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	estimateRouter(est).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	p := decodeProblem(t, rec)
	require.Len(t, p.Errors, 2)
	assert.Equal(t, "pallets", p.Errors[0].Field)
	assert.Equal(t, "vehicleAge", p.Errors[1].Field)
	assert.Empty(t, est.requests)
}

func TestEstimateHandler_Get(t *testing.T) {
	est := newMockEstimator()
	router := estimateRouter(est)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/estimates", strings.NewReader(validJSON)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/estimates/est_1", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success    bool   `json:"success"`
		EstimateID string `json:"estimateId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "est_1", body.EstimateID)
}

func TestEstimateHandler_GetUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	estimateRouter(newMockEstimator()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/estimates/est_missing", http.NoBody))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.CodeNotFound, decodeProblem(t, rec).Code)
}

func TestEstimateHandler_List(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
		limit  int
	}{
		{"default", "", http.StatusOK, handler.DefaultListLimit},
		{"explicit", "?limit=5", http.StatusOK, 5},
		{"max", "?limit=100", http.StatusOK, 100},
		{"too large", "?limit=101", http.StatusBadRequest, 0},
		{"zero", "?limit=0", http.StatusBadRequest, 0},
		{"not a number", "?limit=all", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := newMockEstimator()
			rec := httptest.NewRecorder()
			estimateRouter(est).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/estimates"+tt.query, http.NoBody))

			require.Equal(t, tt.status, rec.Code)
			if tt.status != http.StatusOK {
				return
			}
			assert.Equal(t, tt.limit, est.limit)

			var list models.EstimateList
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
			assert.True(t, list.Success)
			assert.NotNil(t, list.Estimates)
			assert.Equal(t, tt.limit, list.Limit)
		})
	}
}
