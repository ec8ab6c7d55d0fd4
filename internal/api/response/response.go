// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dieselroute/dieselroute/internal/api/middleware"
	"github.com/dieselroute/dieselroute/internal/api/models"
	"github.com/dieselroute/dieselroute/internal/estimate"
	"github.com/dieselroute/dieselroute/internal/predictor"
	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/pkg/polyline"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 Created response with a Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// EstimateError writes the problem for an error returned by the estimate
// service and returns its code. Geocoding failures are checked before the
// wider route class they also belong to.
func EstimateError(w http.ResponseWriter, r *http.Request, err error) string {
	traceID := middleware.GetRequestID(r.Context())

	var problem *models.Problem
	var invalid estimate.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		fields := make([]models.FieldError, len(invalid))
		for i, v := range invalid {
			fields[i] = models.FieldError{Field: v.Field, Message: v.Message}
		}
		problem = models.NewBadRequest(traceID, "The request has invalid fields.", fields)
	case errors.Is(err, estimate.ErrInvalidRequest):
		problem = models.NewBadRequest(traceID, "The request is invalid.", nil)
	case errors.Is(err, estimate.ErrNotFound):
		problem = models.NewNotFound(traceID, "Estimate not found.")
	case errors.Is(err, polyline.ErrDecode):
		problem = models.NewRouteDecodeFailed(traceID)
	case errors.Is(err, routing.ErrGeocodingFailed):
		problem = models.NewGeocodingFailed(traceID)
	case errors.Is(err, routing.ErrRoutingUnavailable):
		problem = models.NewRouteUnavailable(traceID)
	case errors.Is(err, predictor.ErrUnavailable):
		problem = models.NewPredictionUnavailable(traceID)
	default:
		problem = models.NewInternalError(traceID, "An unexpected error occurred.")
	}

	Error(w, r, problem)
	return problem.Code
}
