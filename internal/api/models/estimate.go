// Package models provides request and response models for the dieselroute API.
package models

import (
	"time"

	"github.com/dieselroute/dieselroute/internal/estimate"
	"github.com/dieselroute/dieselroute/internal/provider/resilience"
)

// EstimateResponse wraps an estimate with the success flag.
type EstimateResponse struct {
	Success bool `json:"success"`
	*estimate.Estimate
}

// NewEstimateResponse wraps e.
func NewEstimateResponse(e *estimate.Estimate) EstimateResponse {
	return EstimateResponse{Success: true, Estimate: e}
}

// EstimateList is a page of recent estimates, newest first.
type EstimateList struct {
	Success   bool                 `json:"success"`
	Estimates []*estimate.Estimate `json:"estimates"`
	Limit     int                  `json:"limit"`
}

// Depot is a depot and the code the model knows it by.
type Depot struct {
	Name string `json:"name"`
	Code int    `json:"code"`
}

// Taxonomy lists the values accepted in estimate requests.
type Taxonomy struct {
	Depots          []Depot  `json:"depots"`
	Vehicles        []string `json:"vehicles"`
	ModelVehicles   []string `json:"modelVehicles"`
	DispatchWindows []string `json:"dispatchWindows"`
	Features        []string `json:"features"`
}

// HealthStatus represents the health status of the service.
type HealthStatus string

// Health statuses.
const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Health is the liveness and readiness payload.
type Health struct {
	Status  HealthStatus      `json:"status"`
	Time    time.Time         `json:"time"`
	Details map[string]string `json:"details,omitempty"`
}

// SystemStatus is the overall status plus every provider client's.
type SystemStatus struct {
	Status    HealthStatus     `json:"status"`
	Time      time.Time        `json:"time"`
	Providers []ProviderStatus `json:"providers"`
}

// ProviderStatus represents the status of an external provider.
type ProviderStatus struct {
	Provider      string       `json:"provider"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	Requests      uint32       `json:"requests"`
	Failures      uint32       `json:"consecutiveFailures"`
	LastSuccessAt *time.Time   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *time.Time   `json:"lastFailureAt,omitempty"`
}

// NewProviderStatus converts a registry snapshot entry.
func NewProviderStatus(h *resilience.ProviderHealth) ProviderStatus {
	status := HealthStatusOK
	switch {
	case h.IsUnhealthy():
		status = HealthStatusFail
	case h.IsDegraded():
		status = HealthStatusDegraded
	}
	return ProviderStatus{
		Provider:      h.Name,
		Status:        status,
		CircuitState:  h.CircuitState.String(),
		Requests:      h.Counts.Requests,
		Failures:      h.Counts.ConsecutiveFailures,
		LastSuccessAt: h.LastSuccessAt,
		LastFailureAt: h.LastFailureAt,
	}
}
