package conversation

import (
	"context"
	"fmt"

	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// Publisher enqueues inbound messages for asynchronous processing.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueMessage publishes an inbound message job. The chat provider's message
// id, when present, doubles as the queue de-duplication id.
func (p *Publisher) EnqueueMessage(ctx context.Context, jobID string, msg InboundMessage, opts ...PublishOption) error {
	payload := queuePayload{
		ID:          jobID,
		Kind:        jobTypeInbound,
		Message:     msg,
		TrackStatus: true,
	}
	for _, opt := range opts {
		opt(&payload)
	}

	payload, body, err := encodePayload(payload)
	if err != nil {
		return err
	}
	dedupID := payload.ID
	if msg.MessageID != "" {
		dedupID = msg.TenantID + ":" + msg.MessageID
	}
	if err := p.queue.Send(ctx, groupKey(msg), dedupID, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue job: %w", err)
	}

	p.logger.Debug("conversation job enqueued", "job_id", payload.ID, "kind", payload.Kind, "tenant_id", msg.TenantID)
	return nil
}
