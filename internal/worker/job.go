package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dieselroute/dieselroute/internal/estimate"
	"github.com/dieselroute/dieselroute/internal/predictor"
	"github.com/dieselroute/dieselroute/internal/routing"
	"github.com/dieselroute/dieselroute/pkg/polyline"
)

// ErrMalformedJob is returned for a message that is not an EstimateJob.
var ErrMalformedJob = errors.New("malformed estimate job")

// EstimateJob is the payload of an estimate job message.
type EstimateJob struct {
	JobID   string           `json:"jobId"`
	Request estimate.Request `json:"request"`
}

// Estimator runs the estimate pipeline and stores its result.
type Estimator interface {
	Estimate(ctx context.Context, req estimate.Request) (*estimate.Estimate, error)
}

// Decision tells the subscriber what to do with a message.
type Decision int

const (
	// Ack removes the message from the subscription.
	Ack Decision = iota
	// Nack asks for redelivery.
	Nack
)

func (d Decision) String() string {
	if d == Nack {
		return "nack"
	}
	return "ack"
}

// Stats counts processed jobs.
type Stats struct {
	Succeeded int64
	Rejected  int64
	Failed    int64
}

// Processor runs jobs against an Estimator. It is safe for concurrent use.
type Processor struct {
	estimates Estimator
	timeout   time.Duration
	logger    zerolog.Logger

	succeeded atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// NewProcessor creates a processor. A non-positive timeout uses the default.
func NewProcessor(estimates Estimator, timeout time.Duration, logger zerolog.Logger) *Processor {
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Processor{estimates: estimates, timeout: timeout, logger: logger}
}

// Process decodes and runs one job. A malformed payload or an invalid
// request is acked and counted as rejected. A pipeline that fails fatally
// (geocoding, directions, polyline decoding, prediction) is acked and
// counted as failed, so the provider calls are never repeated by
// redelivery. Only a job cut short by its context, or an error outside the
// pipeline taxonomy, is nacked.
func (p *Processor) Process(ctx context.Context, data []byte) (Decision, error) {
	job, err := decodeJob(data)
	if err != nil {
		p.rejected.Add(1)
		return Ack, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	e, err := p.estimates.Estimate(ctx, job.Request)
	switch {
	case errors.Is(err, estimate.ErrInvalidRequest):
		p.rejected.Add(1)
		return Ack, fmt.Errorf("job %s: %w", job.JobID, err)
	case err == nil:
	case ctx.Err() != nil:
		p.failed.Add(1)
		return Nack, fmt.Errorf("job %s interrupted: %w", job.JobID, errors.Join(ctx.Err(), err))
	case isPipelineFailure(err):
		p.failed.Add(1)
		return Ack, fmt.Errorf("job %s: %w", job.JobID, err)
	default:
		p.failed.Add(1)
		return Nack, fmt.Errorf("job %s: %w", job.JobID, err)
	}

	p.succeeded.Add(1)
	p.logger.Info().
		Str("job_id", job.JobID).
		Str("estimate_id", e.ID).
		Float64("final_cost", e.Analytics.FinalCost).
		Strs("degraded", e.Analytics.Degraded).
		Msg("estimate job completed")
	return Ack, nil
}

// isPipelineFailure reports whether err is one of the estimate pipeline's
// fatal outcomes. Running the job again would bill the same provider calls.
func isPipelineFailure(err error) bool {
	return errors.Is(err, routing.ErrRoutingUnavailable) ||
		errors.Is(err, polyline.ErrDecode) ||
		errors.Is(err, predictor.ErrUnavailable)
}

// Stats returns the job counters.
func (p *Processor) Stats() Stats {
	return Stats{
		Succeeded: p.succeeded.Load(),
		Rejected:  p.rejected.Load(),
		Failed:    p.failed.Load(),
	}
}

func decodeJob(data []byte) (EstimateJob, error) {
	var job EstimateJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	if job.JobID == "" {
		return job, fmt.Errorf("%w: missing jobId", ErrMalformedJob)
	}
	return job, nil
}
