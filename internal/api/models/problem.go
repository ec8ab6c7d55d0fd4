package models

import (
	"encoding/json"
	"net/http"
)

// ProblemTypeBase prefixes every problem type URI.
const ProblemTypeBase = "https://dieselroute.dev/problems/"

// Problem codes. Each failure class has one code and one stable detail
// message; provider payloads and internal causes are never exposed.
const (
	CodeInvalidRequest        = "invalid_request"
	CodeNotFound              = "not_found"
	CodeUnsupportedMediaType  = "unsupported_media_type"
	CodeRateLimited           = "rate_limited"
	CodeTLSRequired           = "tls_required"
	CodeRouteUnavailable      = "route_unavailable"
	CodeGeocodingFailed       = "geocoding_failed"
	CodeRouteDecodeFailed     = "route_decode_failed"
	CodePredictionUnavailable = "prediction_unavailable"
	CodeInternal              = "internal_error"
)

// Problem represents an RFC 7807 error response, served with
// Content-Type application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Code     string       `json:"code"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`

	// Success is always false; clients of the form endpoint branch on it.
	Success bool `json:"success"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewProblem creates a Problem whose type URI is derived from code.
func NewProblem(code, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    ProblemTypeBase + code,
		Title:   title,
		Status:  status,
		Code:    code,
		TraceID: traceID,
	}
}

// WithDetail adds a detail message to the Problem.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance adds the request instance URI to the Problem.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors adds field errors to the Problem.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 problem listing the invalid fields.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return NewProblem(CodeInvalidRequest, "Invalid request", http.StatusBadRequest, traceID).
		WithDetail(detail).
		WithErrors(errors)
}

// NewNotFound creates a 404 Not Found problem.
func NewNotFound(traceID, detail string) *Problem {
	return NewProblem(CodeNotFound, "Not found", http.StatusNotFound, traceID).WithDetail(detail)
}

// NewUnsupportedMediaType creates a 415 problem.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return NewProblem(CodeUnsupportedMediaType, "Unsupported media type", http.StatusUnsupportedMediaType, traceID).
		WithDetail(detail)
}

// NewTooManyRequests creates a 429 Too Many Requests problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(CodeRateLimited, "Too many requests", http.StatusTooManyRequests, traceID).WithDetail(detail)
}

// NewTLSRequired creates a 403 problem for plain HTTP requests.
func NewTLSRequired(traceID string) *Problem {
	return NewProblem(CodeTLSRequired, "TLS required", http.StatusForbidden, traceID).
		WithDetail("This endpoint requires HTTPS")
}

// NewRouteUnavailable creates a 502 problem for a journey with no route.
func NewRouteUnavailable(traceID string) *Problem {
	return NewProblem(CodeRouteUnavailable, "Route unavailable", http.StatusBadGateway, traceID).
		WithDetail("Failed to calculate a route between the depots.")
}

// NewGeocodingFailed creates a 502 problem for an unresolved depot.
func NewGeocodingFailed(traceID string) *Problem {
	return NewProblem(CodeGeocodingFailed, "Geocoding failed", http.StatusBadGateway, traceID).
		WithDetail("Could not resolve the depot locations.")
}

// NewRouteDecodeFailed creates a 502 problem for an unreadable route.
func NewRouteDecodeFailed(traceID string) *Problem {
	return NewProblem(CodeRouteDecodeFailed, "Route decode failed", http.StatusBadGateway, traceID).
		WithDetail("The route returned by the routing provider could not be read.")
}

// NewPredictionUnavailable creates a 503 problem for a missing or failing model.
func NewPredictionUnavailable(traceID string) *Problem {
	return NewProblem(CodePredictionUnavailable, "Prediction unavailable", http.StatusServiceUnavailable, traceID).
		WithDetail("Fuel efficiency prediction is currently unavailable.")
}

// NewInternalError creates a 500 Internal Server Error problem.
func NewInternalError(traceID, detail string) *Problem {
	return NewProblem(CodeInternal, "Internal server error", http.StatusInternalServerError, traceID).WithDetail(detail)
}
