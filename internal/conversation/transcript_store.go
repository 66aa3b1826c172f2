package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Transcript roles.
const (
	RoleCustomer = "customer"
	RoleSalon    = "salon"
)

// TranscriptMessage is one side of a turn. MessageKey makes appends idempotent
// when a queued message is retried.
type TranscriptMessage struct {
	ID              uuid.UUID `json:"id"`
	ConversationRef string    `json:"conversationRef"`
	TenantID        string    `json:"tenantId"`
	Phone           string    `json:"phone"`
	Role            string    `json:"role"`
	Body            string    `json:"body"`
	Step            Step      `json:"step"`
	MessageKey      string    `json:"messageKey"`
	CreatedAt       time.Time `json:"createdAt"`
}

// TranscriptStore persists the dialogue to conversation_messages.
type TranscriptStore struct {
	db *sql.DB
}

// NewTranscriptStore returns nil when db is nil so callers can skip transcripts.
func NewTranscriptStore(db *sql.DB) *TranscriptStore {
	if db == nil {
		return nil
	}
	return &TranscriptStore{db: db}
}

func (s *TranscriptStore) Append(ctx context.Context, msg TranscriptMessage) error {
	if s == nil || s.db == nil {
		return nil
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if msg.MessageKey == "" {
		msg.MessageKey = msg.ID.String()
	}

	query := `
		INSERT INTO conversation_messages (
			id, conversation_ref, tenant_id, phone, role, body, step, message_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationRef, msg.TenantID, msg.Phone, msg.Role, msg.Body, string(msg.Step), msg.MessageKey, msg.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil
		}
		return fmt.Errorf("conversation: append transcript: %w", err)
	}
	return nil
}

// List returns a conversation's messages oldest first.
func (s *TranscriptStore) List(ctx context.Context, tenantID, conversationRef string) ([]TranscriptMessage, error) {
	query := `
		SELECT id, conversation_ref, tenant_id, phone, role, body, step, message_key, created_at
		FROM conversation_messages
		WHERE tenant_id = $1 AND conversation_ref = $2
		ORDER BY created_at, role
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, conversationRef)
	if err != nil {
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}
	defer rows.Close()

	var out []TranscriptMessage
	for rows.Next() {
		var msg TranscriptMessage
		var step string
		if err := rows.Scan(&msg.ID, &msg.ConversationRef, &msg.TenantID, &msg.Phone, &msg.Role, &msg.Body, &step, &msg.MessageKey, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: scan transcript: %w", err)
		}
		msg.Step = Step(step)
		out = append(out, msg)
	}
	return out, rows.Err()
}

// MemoryTranscript keeps transcripts in process.
type MemoryTranscript struct {
	mu       sync.Mutex
	messages []TranscriptMessage
	keys     map[string]bool
}

func NewMemoryTranscript() *MemoryTranscript {
	return &MemoryTranscript{keys: make(map[string]bool)}
}

func (m *MemoryTranscript) Append(_ context.Context, msg TranscriptMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg.MessageKey != "" {
		if m.keys[msg.MessageKey] {
			return nil
		}
		m.keys[msg.MessageKey] = true
	}
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns every recorded message for conversationRef.
func (m *MemoryTranscript) Messages(conversationRef string) []TranscriptMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TranscriptMessage
	for _, msg := range m.messages {
		if msg.ConversationRef == conversationRef {
			out = append(out, msg)
		}
	}
	return out
}
