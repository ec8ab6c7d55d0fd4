package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dieselroute/dieselroute/internal/provider/resilience"
)

// Estimate outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeFailure = "failure"
)

// Metrics records provider calls and estimate outcomes. It satisfies
// resilience.CallRecorder.
type Metrics struct {
	providerDuration metric.Float64Histogram
	providerCalls    metric.Int64Counter
	estimates        metric.Int64Counter
	degraded         metric.Int64Counter
	finalCost        metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	providerDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	providerCalls, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	estimates, err := meter.Int64Counter(
		"estimate.total",
		metric.WithDescription("Total number of journey estimates by outcome"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return nil, err
	}

	degraded, err := meter.Int64Counter(
		"estimate.degraded.total",
		metric.WithDescription("Estimates completed with a degraded input"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return nil, err
	}

	finalCost, err := meter.Float64Histogram(
		"estimate.final_cost",
		metric.WithDescription("Final journey cost of successful estimates"),
		metric.WithUnit("{NGN}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		providerDuration: providerDuration,
		providerCalls:    providerCalls,
		estimates:        estimates,
		degraded:         degraded,
		finalCost:        finalCost,
	}, nil
}

// RecordProviderCall implements resilience.CallRecorder.
func (m *Metrics) RecordProviderCall(ctx context.Context, provider, operation string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.String("provider.result", callResult(err)),
	)

	// The request context may already be cancelled.
	ctx = context.WithoutCancel(ctx)
	m.providerDuration.Record(ctx, duration.Seconds(), attrs)
	m.providerCalls.Add(ctx, 1, attrs)
}

// RecordEstimate counts one estimate and, on success, each degraded input
// and the final cost.
func (m *Metrics) RecordEstimate(ctx context.Context, outcome string, degraded []string, finalCost float64) {
	ctx = context.WithoutCancel(ctx)
	m.estimates.Add(ctx, 1, metric.WithAttributes(attribute.String("estimate.outcome", outcome)))
	if outcome != OutcomeSuccess {
		return
	}
	for _, d := range degraded {
		m.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("estimate.degraded", d)))
	}
	m.finalCost.Record(ctx, finalCost)
}

func callResult(err error) string {
	if err == nil {
		return "ok"
	}
	err = resilience.Classify("", "", err)
	switch {
	case errors.Is(err, resilience.ErrTimeout):
		return "timeout"
	case errors.Is(err, resilience.ErrRejected):
		return "rejected"
	default:
		return "unavailable"
	}
}
