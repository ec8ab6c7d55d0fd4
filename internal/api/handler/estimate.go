// Package handler provides HTTP handlers for the dieselroute API.
package handler

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/api/middleware"
	"github.com/dieselroute/dieselroute/internal/api/models"
	"github.com/dieselroute/dieselroute/internal/api/response"
	"github.com/dieselroute/dieselroute/internal/estimate"
)

// List paging bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// maxFormBytes bounds form bodies, multipart ones included.
const maxFormBytes = 1 << 20

// Estimator runs and reads back journey estimates.
type Estimator interface {
	Estimate(ctx context.Context, req estimate.Request) (*estimate.Estimate, error)
	Get(ctx context.Context, id string) (*estimate.Estimate, error)
	List(ctx context.Context, limit int) ([]*estimate.Estimate, error)
}

// EstimateHandler handles estimate endpoints.
type EstimateHandler struct {
	estimates Estimator
	logger    zerolog.Logger
}

// NewEstimateHandler creates a new EstimateHandler.
func NewEstimateHandler(estimates Estimator, logger zerolog.Logger) *EstimateHandler {
	return &EstimateHandler{estimates: estimates, logger: logger}
}

// Create handles POST /v1/estimates.
func (h *EstimateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req estimate.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	e, ok := h.run(w, r, req)
	if !ok {
		return
	}
	response.Created(w, r, "/v1/estimates/"+e.ID, models.NewEstimateResponse(e))
}

// CreateForm handles POST /api/diesel/route, the form variant used by the
// web frontend. Browsers post FormData as multipart/form-data, so both
// encodings are read.
func (h *EstimateHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		response.BadRequest(w, r, "invalid form body", nil)
		return
	}

	req := estimate.Request{
		OriginDepot:      r.PostForm.Get("originDepot"),
		DestinationDepot: r.PostForm.Get("destinationDepot"),
		VehicleModel:     r.PostForm.Get("vehicleModel"),
		DispatchTime:     r.PostForm.Get("dispatchTime"),
		JourneyDate:      r.PostForm.Get("journeyDate"),
	}

	var fieldErrs []models.FieldError
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"pallets", &req.Pallets},
		{"vehicleAge", &req.VehicleAge},
	} {
		raw := r.PostForm.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: f.name, Message: "must be a number"})
			continue
		}
		*f.dst = v
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "The request has invalid fields.", fieldErrs)
		return
	}

	e, ok := h.run(w, r, req)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewEstimateResponse(e))
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == middleware.MediaTypeMultipart {
		return r.ParseMultipartForm(maxFormBytes)
	}
	return r.ParseForm()
}

// Get handles GET /v1/estimates/{estimateId}.
func (h *EstimateHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.estimates.Get(r.Context(), chi.URLParam(r, "estimateId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewEstimateResponse(e))
}

// List handles GET /v1/estimates.
func (h *EstimateHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxListLimit {
			response.BadRequest(w, r, "invalid limit", []models.FieldError{
				{Field: "limit", Message: "must be an integer between 1 and " + strconv.Itoa(MaxListLimit)},
			})
			return
		}
		limit = n
	}

	list, err := h.estimates.List(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*estimate.Estimate{}
	}
	response.JSON(w, r, http.StatusOK, models.EstimateList{Success: true, Estimates: list, Limit: limit})
}

func (h *EstimateHandler) run(w http.ResponseWriter, r *http.Request, req estimate.Request) (*estimate.Estimate, bool) {
	e, err := h.estimates.Estimate(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return e, true
}

// fail writes the problem for err. Causes behind a 5xx are logged here
// since the response only carries a generic message.
func (h *EstimateHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := response.EstimateError(w, r, err)
	switch code {
	case models.CodeInvalidRequest, models.CodeNotFound:
		return
	}
	h.logger.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("code", code).
		Msg("estimate failed")
}
