package conversation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/salon-booking-platform/internal/tenancy"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

const maxInboundBody = 16 << 10

// Handler wires HTTP requests to the booking conversation.
type Handler struct {
	engine    InboundHandler
	publisher *Publisher
	jobs      JobRecorder
	metrics   *metrics.InboundMetrics
	logger    *logging.Logger
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithAsync enables POST /messages:async and job polling.
func WithAsync(publisher *Publisher, jobs JobRecorder) HandlerOption {
	return func(h *Handler) {
		h.publisher = publisher
		h.jobs = jobs
	}
}

// WithInboundMetrics records request outcomes.
func WithInboundMetrics(m *metrics.InboundMetrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler creates a conversation handler.
func NewHandler(engine InboundHandler, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if engine == nil {
		panic("conversation: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{engine: engine, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (InboundMessage, bool) {
	var msg InboundMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxInboundBody)).Decode(&msg); err != nil {
		h.logger.Warn("failed to decode inbound message", "error", err)
		h.metrics.ObserveInbound("bad_request")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return msg, false
	}
	if tenantID, ok := tenancy.TenantIDFromContext(r.Context()); ok {
		if msg.TenantID != "" && !strings.EqualFold(strings.TrimSpace(msg.TenantID), tenantID) {
			h.metrics.ObserveInbound("bad_request")
			http.Error(w, "tenant mismatch", http.StatusBadRequest)
			return msg, false
		}
		msg.TenantID = tenantID
	}
	if strings.TrimSpace(msg.TenantID) == "" || strings.TrimSpace(msg.PhoneNumber) == "" {
		h.metrics.ObserveInbound("bad_request")
		http.Error(w, ErrInvalidInbound.Error(), http.StatusBadRequest)
		return msg, false
	}
	return msg, true
}

// Message handles POST /v1/conversations/messages and answers in line.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.decode(w, r)
	if !ok {
		return
	}

	reply, err := h.engine.Handle(r.Context(), msg)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInbound):
			h.metrics.ObserveInbound("bad_request")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case KindOf(err) == KindPersistenceFailure && reply.ReplyText != "":
			h.metrics.ObserveInbound("degraded")
			h.writeJSON(w, http.StatusOK, reply)
			return
		}
		h.logger.Error("failed to process message", "error", err,
			"tenant_id", msg.TenantID, "phone", logging.MaskPhone(msg.PhoneNumber))
		h.metrics.ObserveInbound("error")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"replyText": genericFailureReply})
		return
	}

	h.metrics.ObserveInbound("ok")
	h.writeJSON(w, http.StatusOK, reply)
}

// MessageAsync handles POST /v1/conversations/messages:async. The reply is
// delivered through the messenger; the job can be polled.
func (h *Handler) MessageAsync(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		http.Error(w, "async processing disabled", http.StatusNotImplemented)
		return
	}
	msg, ok := h.decode(w, r)
	if !ok {
		return
	}

	jobID := uuid.NewString()
	if h.jobs != nil {
		if err := h.jobs.PutPending(r.Context(), &JobRecord{
			JobID:       jobID,
			RequestType: jobTypeInbound,
			TenantID:    msg.TenantID,
			Request:     &msg,
		}); err != nil {
			h.logger.Error("failed to record job", "error", err, "job_id", jobID)
			h.metrics.ObserveInbound("error")
			http.Error(w, "Failed to accept message", http.StatusInternalServerError)
			return
		}
	}

	var opts []PublishOption
	if h.jobs == nil {
		opts = append(opts, WithoutJobTracking())
	}
	if err := h.publisher.EnqueueMessage(r.Context(), jobID, msg, opts...); err != nil {
		h.logger.Error("failed to enqueue message", "error", err, "job_id", jobID)
		h.metrics.ObserveInbound("error")
		http.Error(w, "Failed to accept message", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveInbound("accepted")
	h.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// JobStatus handles GET /v1/conversations/jobs/{jobID}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "job tracking disabled", http.StatusNotImplemented)
		return
	}
	jobID := chi.URLParam(r, "jobID")
	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}
	if tenantID, ok := tenancy.TenantIDFromContext(r.Context()); ok && job.TenantID != "" && job.TenantID != tenantID {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
