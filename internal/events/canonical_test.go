package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubExec struct {
	args []any
}

type badEvent struct{}

func (badEvent) EventType() string { return "" }

func (s *stubExec) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.args = args
	return pgconn.CommandTag{}, nil
}

func sampleConfirmed() BookingConfirmedV1 {
	return BookingConfirmedV1{
		BookingID:     "b-1",
		TenantID:      "salon-1",
		ServiceName:   "Facial Cleanup",
		StaffName:     "Asha",
		CustomerPhone: "+919876543210",
		ScheduledAt:   time.Date(2026, 10, 20, 5, 30, 0, 0, time.UTC),
		AmountMinor:   80000,
		Currency:      "INR",
		Notes:         "booked via chat",
	}
}

func TestNewEnvelope(t *testing.T) {
	fixedNow := time.Unix(0, 123456000).UTC()
	prevNow := nowFunc
	nowFunc = func() time.Time { return fixedNow }
	defer func() { nowFunc = prevNow }()

	id := uuid.MustParse("9a20d7d1-bf6a-4d33-bd55-5d25a816f1a8")
	env, err := NewEnvelope("salon-1", "booking:b-1", "corr-1", sampleConfirmed(), WithEventID(id))
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	if env.EventID != id {
		t.Fatalf("expected event id override, got %s", env.EventID)
	}
	if env.TimestampMicros != fixedNow.UnixMicro() {
		t.Fatalf("unexpected timestamp: %d", env.TimestampMicros)
	}
	if env.EventType != "booking.confirmed.v1" {
		t.Fatalf("unexpected type: %s", env.EventType)
	}
	if env.TenantID != "salon-1" || env.Aggregate != "booking:b-1" {
		t.Fatalf("unexpected routing fields: %#v", env)
	}

	var decoded BookingConfirmedV1
	if err := env.Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Notes != "booked via chat" || !decoded.ScheduledAt.Equal(sampleConfirmed().ScheduledAt) {
		t.Fatalf("payload mismatch: %#v", decoded)
	}
}

func TestAppendCanonicalEvent(t *testing.T) {
	exec := &stubExec{}
	env, err := AppendCanonicalEvent(context.Background(), exec, "salon-1", "booking:b-1", "corr-1", sampleConfirmed())
	if err != nil {
		t.Fatalf("append canonical failed: %v", err)
	}
	if env.EventID == uuid.Nil {
		t.Fatal("expected generated event id")
	}
	if len(exec.args) != 5 {
		t.Fatalf("expected exec args, got %#v", exec.args)
	}
	if exec.args[0] != env.EventID || exec.args[1] != "salon-1" {
		t.Fatalf("id or tenant mismatch: %#v", exec.args)
	}
	payloadBytes, ok := exec.args[4].([]byte)
	if !ok {
		t.Fatalf("payload arg type %T", exec.args[4])
	}
	var stored Envelope
	if err := json.Unmarshal(payloadBytes, &stored); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if stored.EventType != env.EventType || stored.Aggregate != env.Aggregate {
		t.Fatalf("stored envelope mismatch: %#v", stored)
	}
	if len(stored.Payload) == 0 {
		t.Fatal("expected nested payload")
	}
}

func TestEnvelopeValidation(t *testing.T) {
	if _, err := NewEnvelope("", "agg", "", sampleConfirmed()); err == nil {
		t.Fatal("expected tenant error")
	}
	if _, err := NewEnvelope("salon-1", "", "", sampleConfirmed()); err == nil {
		t.Fatal("expected aggregate error")
	}
	if _, err := NewEnvelope("salon-1", "agg", "", nil); err == nil {
		t.Fatal("expected nil event error")
	}
	if _, err := NewEnvelope("salon-1", "agg", "", badEvent{}); err == nil {
		t.Fatal("expected event type error")
	}
}

func TestWithTimestampOption(t *testing.T) {
	target := time.Unix(50, 123000).UTC()
	env, err := NewEnvelope("salon-1", "agg", "", sampleConfirmed(), WithTimestamp(target))
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.TimestampMicros != target.UnixMicro() {
		t.Fatalf("expected timestamp override, got %d", env.TimestampMicros)
	}
}

func TestAppendCanonicalEventRequiresExec(t *testing.T) {
	if _, err := AppendCanonicalEvent(context.Background(), nil, "salon-1", "agg", "", sampleConfirmed()); err == nil {
		t.Fatal("expected exec error")
	}
}
