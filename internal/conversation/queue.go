package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-platform/internal/tenancy"
)

// Queue is the transport between the API and the worker. Messages that
// share a group key are delivered one at a time, in send order.
type Queue interface {
	Send(ctx context.Context, groupKey, dedupID, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type jobType string

const jobTypeInbound jobType = "inbound_message"

type queuePayload struct {
	ID          string         `json:"id"`
	Kind        jobType        `json:"kind"`
	Message     InboundMessage `json:"message"`
	TrackStatus bool           `json:"track_status"`
}

// PublishOption customizes an enqueued job.
type PublishOption func(*queuePayload)

// WithoutJobTracking disables job status persistence for fire-and-forget work.
func WithoutJobTracking() PublishOption {
	return func(p *queuePayload) {
		p.TrackStatus = false
	}
}

func encodePayload(payload queuePayload) (queuePayload, string, error) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("conversation: failed to encode payload: %w", err)
	}
	return payload, string(body), nil
}

// groupKey keeps one phone's messages in order.
func groupKey(msg InboundMessage) string {
	return tenancy.SessionKey(msg.TenantID, msg.PhoneNumber)
}
