package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is an in-process Queue with FIFO message groups: while a
// message of a group is in flight, later messages of that group are held back.
type MemoryQueue struct {
	mu       sync.Mutex
	pending  []memoryEntry
	inFlight map[string]string // receipt handle -> group
	busy     map[string]bool
	seen     map[string]bool
	capacity int
	notify   chan struct{}
}

type memoryEntry struct {
	msg   queueMessage
	group string
}

// NewMemoryQueue creates a MemoryQueue holding at most buffer pending messages.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 128
	}
	return &MemoryQueue{
		inFlight: make(map[string]string),
		busy:     make(map[string]bool),
		seen:     make(map[string]bool),
		capacity: buffer,
		notify:   make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Send enqueues a payload or blocks until there is room or ctx is done.
// A repeated dedupID is accepted and dropped.
func (q *MemoryQueue) Send(ctx context.Context, group, dedupID, body string) error {
	for {
		q.mu.Lock()
		if dedupID != "" && q.seen[dedupID] {
			q.mu.Unlock()
			return nil
		}
		if len(q.pending) < q.capacity {
			if dedupID != "" {
				q.seen[dedupID] = true
			}
			q.pending = append(q.pending, memoryEntry{
				msg: queueMessage{
					ID:            uuid.NewString(),
					Body:          body,
					ReceiptHandle: uuid.NewString(),
				},
				group: group,
			})
			q.mu.Unlock()
			q.signal()
			return nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Receive blocks until a message is available, ctx is done, or waitSeconds elapses.
func (q *MemoryQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	if maxMessages <= 0 {
		maxMessages = 1
	}
	var timeout <-chan time.Time
	if waitSeconds > 0 {
		timer := time.NewTimer(time.Duration(waitSeconds) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		if out := q.take(maxMessages); len(out) > 0 {
			return out, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, nil
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) take(max int) []queueMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []queueMessage
	blocked := make(map[string]bool)
	kept := q.pending[:0]
	for _, entry := range q.pending {
		if len(out) >= max || q.busy[entry.group] || blocked[entry.group] {
			blocked[entry.group] = true
			kept = append(kept, entry)
			continue
		}
		q.busy[entry.group] = true
		q.inFlight[entry.msg.ReceiptHandle] = entry.group
		out = append(out, entry.msg)
	}
	q.pending = kept
	if len(out) > 0 && len(kept) > 0 {
		q.signal()
	}
	return out
}

// Delete acknowledges a message and releases its group.
func (q *MemoryQueue) Delete(_ context.Context, receiptHandle string) error {
	q.mu.Lock()
	if group, ok := q.inFlight[receiptHandle]; ok {
		delete(q.inFlight, receiptHandle)
		delete(q.busy, group)
	}
	q.mu.Unlock()
	q.signal()
	return nil
}

// Len reports how many messages wait for delivery.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
