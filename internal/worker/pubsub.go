package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Worker           Config
	Logger           zerolog.Logger
}

// PubSubHandler feeds estimate jobs from a subscription into a Processor.
type PubSubHandler struct {
	client    *pubsub.Client
	sub       *pubsub.Subscriber
	name      string
	processor *Processor
	logger    zerolog.Logger
}

// NewPubSubHandler connects to Pub/Sub. At most Worker.Concurrency jobs
// are outstanding at once.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	wc := cfg.Worker.withDefaults()
	sub := client.Subscriber(cfg.SubscriptionName)
	sub.ReceiveSettings.MaxOutstandingMessages = wc.Concurrency
	sub.ReceiveSettings.MaxExtension = wc.MaxExtension

	return &PubSubHandler{
		client:    client,
		sub:       sub,
		name:      cfg.SubscriptionName,
		processor: cfg.Processor,
		logger:    cfg.Logger.With().Str("subscription", cfg.SubscriptionName).Logger(),
	}, nil
}

// Start blocks receiving jobs until ctx is cancelled, then logs the
// processor's totals.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Msg("receiving estimate jobs")

	err := h.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().Str("message_id", msg.ID).Logger()
		if msg.DeliveryAttempt != nil {
			logger = logger.With().Int("delivery_attempt", *msg.DeliveryAttempt).Logger()
		}
		settle(ctx, h.processor, msg, msg.Data, logger)
	})

	s := h.processor.Stats()
	h.logger.Info().
		Int64("succeeded", s.Succeeded).
		Int64("rejected", s.Rejected).
		Int64("failed", s.Failed).
		Msg("stopped receiving estimate jobs")
	return err
}

// Close releases the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// message is the part of *pubsub.Message that settle needs.
type message interface {
	Ack()
	Nack()
}

// settle processes one payload and acks or nacks msg per the decision.
func settle(ctx context.Context, p *Processor, msg message, data []byte, logger zerolog.Logger) {
	start := time.Now()

	decision, err := p.Process(ctx, data)
	if err != nil {
		logger.Error().
			Err(err).
			Stringer("decision", decision).
			Dur("duration", time.Since(start)).
			Msg("estimate job failed")
	}

	switch decision {
	case Nack:
		msg.Nack()
	default:
		msg.Ack()
	}
}
