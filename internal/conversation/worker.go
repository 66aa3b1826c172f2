package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// InboundHandler runs one conversation turn.
type InboundHandler interface {
	Handle(ctx context.Context, msg InboundMessage) (Reply, error)
}

var _ InboundHandler = (*Engine)(nil)

// Worker consumes inbound message jobs from the queue, runs them through the
// engine and pushes the reply back to the customer.
type Worker struct {
	handler   InboundHandler
	queue     Queue
	jobs      JobUpdater
	messenger ReplyMessenger
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	sendTimeoutSeconds   = 10
	genericFailureReply  = "Sorry, something went wrong on our side. Please send your message again in a moment."
)

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// NewWorker wires a queue consumer. jobs and messenger may be nil.
func NewWorker(handler InboundHandler, queue Queue, jobs JobUpdater, messenger ReplyMessenger, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if handler == nil {
		panic("conversation: handler cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		handler:   handler,
		queue:     queue,
		jobs:      jobs,
		messenger: messenger,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches the configured number of goroutines.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive conversation jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg queueMessage) {
	defer w.deleteMessage(context.WithoutCancel(ctx), msg.ReceiptHandle)

	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode conversation job", "error", err, "message_id", msg.ID)
		return
	}
	if payload.Kind != jobTypeInbound {
		w.logger.Warn("unknown conversation job kind", "job_id", payload.ID, "kind", payload.Kind)
		w.markFailed(ctx, payload, "unknown job kind")
		return
	}

	in := payload.Message
	reply, err := w.handler.Handle(ctx, in)
	if err != nil && KindOf(err) == "" {
		w.logger.Error("conversation turn failed",
			"error", err,
			"job_id", payload.ID,
			"tenant_id", in.TenantID,
			"phone", logging.MaskPhone(in.PhoneNumber),
		)
		if !errors.Is(err, ErrInvalidInbound) {
			w.send(ctx, in, genericFailureReply)
		}
		w.markFailed(ctx, payload, err.Error())
		return
	}
	if err != nil {
		w.logger.Warn("conversation turn degraded", "error", err, "job_id", payload.ID, "kind", KindOf(err))
	}

	w.send(ctx, in, reply.ReplyText)
	if payload.TrackStatus && w.jobs != nil {
		if markErr := w.jobs.MarkCompleted(ctx, payload.ID, &reply); markErr != nil {
			w.logger.Error("failed to mark job completed", "error", markErr, "job_id", payload.ID)
		}
	}
}

func (w *Worker) send(ctx context.Context, in InboundMessage, body string) {
	if w.messenger == nil || body == "" {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeoutSeconds*time.Second)
	defer cancel()

	err := w.messenger.SendReply(sendCtx, OutboundReply{
		TenantID: in.TenantID,
		To:       in.PhoneNumber,
		Body:     body,
		Metadata: map[string]string{"kind": "reply", "message_id": in.MessageID},
	})
	if err != nil {
		w.logger.Error("failed to send reply", "error", err, "tenant_id", in.TenantID, "phone", logging.MaskPhone(in.PhoneNumber))
	}
}

func (w *Worker) markFailed(ctx context.Context, payload queuePayload, reason string) {
	if !payload.TrackStatus || w.jobs == nil || payload.ID == "" {
		return
	}
	if err := w.jobs.MarkFailed(ctx, payload.ID, reason); err != nil {
		w.logger.Error("failed to mark job failed", "error", err, "job_id", payload.ID)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete conversation job", "error", err)
	}
}
