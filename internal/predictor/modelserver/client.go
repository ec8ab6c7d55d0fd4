// Package modelserver predicts fuel efficiency through a model serving
// sidecar over HTTP.
package modelserver

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/features"
	"github.com/dieselroute/dieselroute/internal/predictor"
	"github.com/dieselroute/dieselroute/internal/provider/resilience"
)

// ProviderName identifies the sidecar in health and metrics.
const ProviderName = "modelserver"

// Doer is the JSON transport the client needs.
type Doer interface {
	resilience.JSONGetter
	resilience.JSONPoster
}

// ClientConfig holds configuration for the model server client.
type ClientConfig struct {
	// BaseURL is the sidecar base URL (required).
	BaseURL string

	// HTTPClient is the JSON client to use (optional).
	HTTPClient Doer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	Registry *resilience.Registry
	Recorder resilience.CallRecorder
	Logger   zerolog.Logger
}

// Client implements predictor.Predictor and predictor.ImportanceReporter.
type Client struct {
	baseURL    string
	httpClient Doer
	logger     zerolog.Logger
}

// NewClient creates a model server client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		clientCfg.Recorder = cfg.Recorder
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

type predictRequest struct {
	Features []features.Feature `json:"features"`
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

type importance struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Predict posts the vector and returns the predicted miles per gallon.
func (c *Client) Predict(ctx context.Context, v features.Vector) (float64, error) {
	var resp predictResponse
	if err := c.httpClient.PostJSON(ctx, c.baseURL+"/predict", predictRequest{Features: v.Features()}, &resp); err != nil {
		return 0, predictor.Unavailable(resilience.Classify(ProviderName, "predict", err))
	}
	if resp.Prediction == nil {
		return 0, predictor.Unavailable(fmt.Errorf("model server returned no prediction"))
	}
	if p := *resp.Prediction; math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, predictor.Unavailable(fmt.Errorf("model server returned %v", p))
	}

	c.logger.Debug().Float64("prediction", *resp.Prediction).Msg("model server prediction")
	return *resp.Prediction, nil
}

// FeatureImportances fetches the sidecar's importances.
func (c *Client) FeatureImportances(ctx context.Context) ([]predictor.Importance, error) {
	var resp []importance
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/importances", &resp); err != nil {
		return nil, resilience.Classify(ProviderName, "importances", err)
	}

	out := make([]predictor.Importance, len(resp))
	for i, imp := range resp {
		out[i] = predictor.Importance{Feature: imp.Name, Weight: imp.Weight}
	}
	return out, nil
}
