package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func TestTranscriptStoreAppendIgnoresDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	store := NewTranscriptStore(db)
	msg := TranscriptMessage{
		ConversationRef: uuid.NewString(),
		TenantID:        "salon-1",
		Phone:           "+919812345678",
		Role:            RoleCustomer,
		Body:            "hi",
		Step:            StepWelcome,
		MessageKey:      "wamid-1:in",
	}

	mock.ExpectExec("INSERT INTO conversation_messages").
		WithArgs(sqlmock.AnyArg(), msg.ConversationRef, "salon-1", "+919812345678", RoleCustomer, "hi", "WELCOME", "wamid-1:in", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO conversation_messages").
		WillReturnError(&pq.Error{Code: "23505"})

	if err := store.Append(context.Background(), msg); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(context.Background(), msg); err != nil {
		t.Fatalf("duplicate append should be ignored, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTranscriptStoreList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ref := uuid.NewString()
	id := uuid.New()
	at := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, conversation_ref").
		WithArgs("salon-1", ref).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_ref", "tenant_id", "phone", "role", "body", "step", "message_key", "created_at"}).
			AddRow(id.String(), ref, "salon-1", "+919812345678", RoleSalon, "Welcome!", "AWAITING_SERVICE", "k:out", at))

	msgs, err := NewTranscriptStore(db).List(context.Background(), "salon-1", ref)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != id || msgs[0].Step != StepAwaitingService || msgs[0].Role != RoleSalon {
		t.Fatalf("unexpected messages %#v", msgs)
	}
}

func TestNilTranscriptStoreIsNoop(t *testing.T) {
	store := NewTranscriptStore(nil)
	if err := store.Append(context.Background(), TranscriptMessage{Body: "x"}); err != nil {
		t.Fatalf("expected nil store to skip, got %v", err)
	}
}

func TestMemoryTranscriptDedupsByKey(t *testing.T) {
	m := NewMemoryTranscript()
	ctx := context.Background()
	_ = m.Append(ctx, TranscriptMessage{ConversationRef: "c1", MessageKey: "k:in", Body: "hi"})
	_ = m.Append(ctx, TranscriptMessage{ConversationRef: "c1", MessageKey: "k:in", Body: "hi"})
	_ = m.Append(ctx, TranscriptMessage{ConversationRef: "c2", MessageKey: "k2:in", Body: "yo"})
	if got := len(m.Messages("c1")); got != 1 {
		t.Fatalf("expected 1 message for c1, got %d", got)
	}
}
