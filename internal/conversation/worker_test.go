package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

type stubHandler struct {
	mu    sync.Mutex
	seen  []InboundMessage
	reply Reply
	err   error
}

func (s *stubHandler) Handle(_ context.Context, msg InboundMessage) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, msg)
	return s.reply, s.err
}

type captureMessenger struct {
	mu      sync.Mutex
	replies []OutboundReply
}

func (c *captureMessenger) SendReply(_ context.Context, reply OutboundReply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, reply)
	return nil
}

func (c *captureMessenger) sent() []OutboundReply {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]OutboundReply(nil), c.replies...)
}

func enqueue(t *testing.T, queue Queue, jobs JobRecorder, jobID string, msg InboundMessage) {
	t.Helper()
	if jobs != nil {
		if err := jobs.PutPending(context.Background(), &JobRecord{JobID: jobID, RequestType: jobTypeInbound, TenantID: msg.TenantID, Request: &msg}); err != nil {
			t.Fatalf("put pending: %v", err)
		}
	}
	if err := NewPublisher(queue, logging.Default()).EnqueueMessage(context.Background(), jobID, msg); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestWorker_HandlesMessageSendsReplyAndCompletesJob(t *testing.T) {
	queue := NewMemoryQueue(10)
	jobs := NewMemoryJobStore()
	handler := &stubHandler{reply: Reply{ReplyText: "Welcome!", CurrentStep: StepAwaitingService}}
	messenger := &captureMessenger{}
	worker := NewWorker(handler, queue, jobs, messenger, logging.Default(), WithWorkerCount(1), WithReceiveWaitSeconds(0))

	enqueue(t, queue, jobs, "job-1", InboundMessage{TenantID: "salon-1", PhoneNumber: "+919812345678", Message: "hi"})

	msgs, err := queue.Receive(context.Background(), 1, 1)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("expected one queued message, got %d (%v)", len(msgs), err)
	}
	worker.handleMessage(context.Background(), msgs[0])

	sent := messenger.sent()
	if len(sent) != 1 || sent[0].Body != "Welcome!" || sent[0].To != "+919812345678" || sent[0].TenantID != "salon-1" {
		t.Fatalf("unexpected outbound replies %#v", sent)
	}
	job, err := jobs.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != JobStatusCompleted || job.Reply == nil || job.Reply.CurrentStep != StepAwaitingService {
		t.Fatalf("unexpected job %#v", job)
	}
	if queue.Len() != 0 {
		t.Fatalf("expected queue drained")
	}
}

func TestWorker_InfraFailureSendsApologyAndFailsJob(t *testing.T) {
	queue := NewMemoryQueue(10)
	jobs := NewMemoryJobStore()
	handler := &stubHandler{err: errors.New("redis down")}
	messenger := &captureMessenger{}
	worker := NewWorker(handler, queue, jobs, messenger, nil)

	enqueue(t, queue, jobs, "job-2", InboundMessage{TenantID: "salon-1", PhoneNumber: "+919812345678", Message: "hi"})
	msgs, _ := queue.Receive(context.Background(), 1, 1)
	worker.handleMessage(context.Background(), msgs[0])

	sent := messenger.sent()
	if len(sent) != 1 || sent[0].Body != genericFailureReply {
		t.Fatalf("expected generic apology, got %#v", sent)
	}
	job, _ := jobs.GetJob(context.Background(), "job-2")
	if job.Status != JobStatusFailed || job.ErrorMessage != "redis down" {
		t.Fatalf("unexpected job %#v", job)
	}
}

func TestWorker_PersistenceFailureStillRepliesAndCompletes(t *testing.T) {
	queue := NewMemoryQueue(10)
	jobs := NewMemoryJobStore()
	handler := &stubHandler{
		reply: Reply{ReplyText: persistenceFailureReply(), CurrentStep: StepAwaitingConfirmation},
		err:   &FlowError{Kind: KindPersistenceFailure, Err: errors.New("insert failed")},
	}
	messenger := &captureMessenger{}
	worker := NewWorker(handler, queue, jobs, messenger, nil)

	enqueue(t, queue, jobs, "job-3", InboundMessage{TenantID: "salon-1", PhoneNumber: "+919812345678", Message: "yes"})
	msgs, _ := queue.Receive(context.Background(), 1, 1)
	worker.handleMessage(context.Background(), msgs[0])

	sent := messenger.sent()
	if len(sent) != 1 || sent[0].Body != persistenceFailureReply() {
		t.Fatalf("expected persistence apology, got %#v", sent)
	}
	job, _ := jobs.GetJob(context.Background(), "job-3")
	if job.Status != JobStatusCompleted {
		t.Fatalf("expected completed job, got %s", job.Status)
	}
}

func TestWorker_DropsUndecodableMessages(t *testing.T) {
	queue := NewMemoryQueue(10)
	handler := &stubHandler{}
	worker := NewWorker(handler, queue, nil, nil, nil)

	_ = queue.Send(context.Background(), "g", "", "not json")
	msgs, _ := queue.Receive(context.Background(), 1, 1)
	worker.handleMessage(context.Background(), msgs[0])

	if len(handler.seen) != 0 {
		t.Fatal("handler must not run for a bad payload")
	}
	_ = queue.Send(context.Background(), "g", "", "next")
	if got, _ := queue.Receive(context.Background(), 1, 1); len(got) != 1 {
		t.Fatal("expected the group to be released after a bad payload")
	}
}

func TestWorker_StartProcessesUntilCancelled(t *testing.T) {
	queue := NewMemoryQueue(10)
	handler := &stubHandler{reply: Reply{ReplyText: "ok", CurrentStep: StepAwaitingService}}
	messenger := &captureMessenger{}
	worker := NewWorker(handler, queue, nil, messenger, nil, WithWorkerCount(2), WithReceiveWaitSeconds(1), WithReceiveBatchSize(50))
	if worker.cfg.receiveBatchSize != maxReceiveBatchSize {
		t.Fatalf("expected batch size clamped to %d, got %d", maxReceiveBatchSize, worker.cfg.receiveBatchSize)
	}

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	publisher := NewPublisher(queue, nil)
	for _, phone := range []string{"+911", "+912", "+911"} {
		if err := publisher.EnqueueMessage(ctx, "", InboundMessage{TenantID: "salon-1", PhoneNumber: phone, Message: "hi"}, WithoutJobTracking()); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(messenger.sent()) < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	worker.Wait()

	if got := len(messenger.sent()); got != 3 {
		t.Fatalf("expected 3 replies, got %d", got)
	}
}
