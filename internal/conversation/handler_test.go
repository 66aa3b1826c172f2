package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/salon-booking-platform/internal/tenancy"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

func postJSON(t *testing.T, path string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
}

func TestHandler_MessageRepliesInline(t *testing.T) {
	engine := &stubHandler{reply: Reply{ReplyText: "Welcome!", CurrentStep: StepAwaitingService}}
	handler := NewHandler(engine, logging.Default())

	req := postJSON(t, "/v1/conversations/messages", map[string]string{
		"phoneNumber": "+919812345678", "message": "hi", "tenantId": "salon-1",
	})
	w := httptest.NewRecorder()
	handler.Message(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, w.Code)
	}
	var resp struct {
		ReplyText   string `json:"replyText"`
		CurrentStep string `json:"currentStep"`
		BookingID   string `json:"bookingId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ReplyText != "Welcome!" || resp.CurrentStep != "AWAITING_SERVICE" || resp.BookingID != "" {
		t.Fatalf("unexpected response %#v", resp)
	}
	if engine.seen[0].TenantID != "salon-1" || engine.seen[0].Message != "hi" {
		t.Fatalf("unexpected inbound %#v", engine.seen[0])
	}
}

func TestHandler_MessageUsesTenantFromContext(t *testing.T) {
	engine := &stubHandler{reply: Reply{ReplyText: "ok", CurrentStep: StepAwaitingService}}
	handler := NewHandler(engine, nil)

	req := postJSON(t, "/v1/conversations/messages", map[string]string{"phoneNumber": "+919812345678", "message": "hi"})
	req = req.WithContext(tenancy.WithTenantID(req.Context(), "salon-9"))
	w := httptest.NewRecorder()
	handler.Message(w, req)

	if w.Code != http.StatusOK || engine.seen[0].TenantID != "salon-9" {
		t.Fatalf("expected tenant from context, got %d %#v", w.Code, engine.seen)
	}

	req = postJSON(t, "/v1/conversations/messages", map[string]string{"phoneNumber": "+919812345678", "message": "hi", "tenantId": "salon-2"})
	req = req.WithContext(tenancy.WithTenantID(req.Context(), "salon-9"))
	w = httptest.NewRecorder()
	handler.Message(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected tenant mismatch to be rejected, got %d", w.Code)
	}
}

func TestHandler_MessageValidation(t *testing.T) {
	handler := NewHandler(&stubHandler{}, nil)

	w := httptest.NewRecorder()
	handler.Message(w, httptest.NewRequest(http.MethodPost, "/v1/conversations/messages", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed body, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.Message(w, postJSON(t, "/v1/conversations/messages", map[string]string{"message": "hi", "tenantId": "salon-1"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request without phone, got %d", w.Code)
	}
}

func TestHandler_MessageErrors(t *testing.T) {
	engine := &stubHandler{err: errors.New("redis down")}
	handler := NewHandler(engine, nil)

	w := httptest.NewRecorder()
	handler.Message(w, postJSON(t, "/v1/conversations/messages", map[string]string{"phoneNumber": "+911", "message": "yes", "tenantId": "salon-1"}))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "something went wrong") {
		t.Fatalf("expected apology reply text, got %s", w.Body.String())
	}

	engine.reply = Reply{ReplyText: persistenceFailureReply(), CurrentStep: StepAwaitingConfirmation}
	engine.err = &FlowError{Kind: KindPersistenceFailure, Err: errors.New("insert failed")}
	w = httptest.NewRecorder()
	handler.Message(w, postJSON(t, "/v1/conversations/messages", map[string]string{"phoneNumber": "+911", "message": "yes", "tenantId": "salon-1"}))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "AWAITING_CONFIRMATION") {
		t.Fatalf("expected degraded reply, got %d %s", w.Code, w.Body.String())
	}
}

func TestHandler_MessageAsyncAcceptsJob(t *testing.T) {
	queue := &stubQueue{}
	jobs := NewMemoryJobStore()
	handler := NewHandler(&stubHandler{}, logging.Default(), WithAsync(NewPublisher(queue, nil), jobs))

	w := httptest.NewRecorder()
	handler.MessageAsync(w, postJSON(t, "/v1/conversations/messages:async", map[string]string{
		"phoneNumber": "+919812345678", "message": "hi", "tenantId": "salon-1", "messageId": "wamid-7",
	}))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected %d, got %d", http.StatusAccepted, w.Code)
	}
	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	job, err := jobs.GetJob(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("expected pending job, got %v", err)
	}
	if job.Status != JobStatusPending || job.Request == nil || job.Request.MessageID != "wamid-7" {
		t.Fatalf("unexpected job %#v", job)
	}
	if len(queue.sent) != 1 || queue.sent[0].dedupID != "salon-1:wamid-7" {
		t.Fatalf("unexpected queue sends %#v", queue.sent)
	}
}

func TestHandler_MessageAsyncDisabled(t *testing.T) {
	handler := NewHandler(&stubHandler{}, nil)
	w := httptest.NewRecorder()
	handler.MessageAsync(w, postJSON(t, "/v1/conversations/messages:async", map[string]string{"phoneNumber": "+911", "tenantId": "salon-1"}))
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected %d, got %d", http.StatusNotImplemented, w.Code)
	}
}

func TestHandler_JobStatus(t *testing.T) {
	jobs := NewMemoryJobStore()
	_ = jobs.PutPending(context.Background(), &JobRecord{JobID: "job-1", TenantID: "salon-1"})
	_ = jobs.MarkCompleted(context.Background(), "job-1", &Reply{ReplyText: "done", CurrentStep: StepAwaitingDate})
	handler := NewHandler(&stubHandler{}, nil, WithAsync(NewPublisher(&stubQueue{}, nil), jobs))

	r := chi.NewRouter()
	r.Get("/v1/conversations/jobs/{jobID}", handler.JobStatus)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/conversations/jobs/job-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var job JobRecord
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Status != JobStatusCompleted || job.Reply == nil || job.Reply.ReplyText != "done" {
		t.Fatalf("unexpected job %#v", job)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/conversations/jobs/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/jobs/job-1", nil)
	req = req.WithContext(tenancy.WithTenantID(req.Context(), "salon-2"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected other tenants to get 404, got %d", w.Code)
	}
}
