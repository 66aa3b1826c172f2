package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// LogMessenger stands in for the chat provider. It logs each outbound message
// and keeps the most recent ones for inspection.
type LogMessenger struct {
	logger *logging.Logger
	limit  int

	mu   sync.Mutex
	sent []conversation.OutboundReply
}

func NewLogMessenger(logger *logging.Logger) *LogMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogMessenger{logger: logger, limit: 200}
}

func (m *LogMessenger) SendReply(ctx context.Context, reply conversation.OutboundReply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(reply.To) == "" {
		return fmt.Errorf("notify: outbound reply has no recipient")
	}

	m.mu.Lock()
	m.sent = append(m.sent, reply)
	if len(m.sent) > m.limit {
		m.sent = m.sent[len(m.sent)-m.limit:]
	}
	m.mu.Unlock()

	m.logger.Info("outbound chat message",
		"tenant_id", reply.TenantID,
		"conversation_ref", reply.ConversationRef,
		"to", logging.MaskPhone(reply.To),
		"kind", reply.Metadata["kind"],
		"chars", len(reply.Body),
	)
	return nil
}

// Sent returns the retained messages, oldest first.
func (m *LogMessenger) Sent() []conversation.OutboundReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]conversation.OutboundReply(nil), m.sent...)
}

var _ conversation.ReplyMessenger = (*LogMessenger)(nil)
