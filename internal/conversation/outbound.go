package conversation

import "context"

// ReplyMessenger delivers replies and reminders back to the customer's chat
// channel. The chat provider integration lives behind it.
type ReplyMessenger interface {
	SendReply(ctx context.Context, reply OutboundReply) error
}

// OutboundReply carries the data required to push a message to the customer.
type OutboundReply struct {
	TenantID        string
	ConversationRef string
	To              string
	Body            string
	Metadata        map[string]string
}
