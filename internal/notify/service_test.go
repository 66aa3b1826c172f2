package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	"github.com/wolfman30/salon-booking-platform/internal/events"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
)

type mockEmailSender struct {
	sent   []EmailMessage
	failOn string
}

func (m *mockEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if m.failOn != "" && msg.To == m.failOn {
		return errors.New("mock email error")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func glowProfile(recipients ...string) *salon.Profile {
	p := salon.DefaultProfile("glow")
	p.Name = "Glow Salon"
	p.Notifications = salon.NotificationPrefs{EmailEnabled: len(recipients) > 0, EmailRecipients: recipients}
	return p
}

func confirmedEvent() events.BookingConfirmedV1 {
	ist := time.FixedZone("IST", 5*3600+1800)
	return events.BookingConfirmedV1{
		BookingID:       "7d0b5a0e-0000-4000-8000-000000000001",
		TenantID:        "glow",
		ServiceName:     "Haircut",
		StaffName:       "Asha",
		CustomerPhone:   "+919876543210",
		CustomerName:    "Priya <VIP>",
		ScheduledAt:     time.Date(2026, 10, 20, 10, 30, 0, 0, ist),
		DurationMinutes: 45,
		AmountMinor:     50000,
		Currency:        "INR",
		Notes:           "booked via chat",
	}
}

func TestNotifyBookingConfirmed_EmailsRecipients(t *testing.T) {
	email := &mockEmailSender{}
	svc := NewService(email, salon.NewStaticStore(glowProfile("owner@glow.example", "desk@glow.example")), nil)

	if err := svc.NotifyBookingConfirmed(context.Background(), confirmedEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(email.sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(email.sent))
	}
	msg := email.sent[0]
	if msg.Subject != "New booking: Haircut on Tue 20 Oct 10:30" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	for _, want := range []string{"Stylist: Asha", "Haircut (45 min, ₹500)", "Notes: booked via chat", "Glow Salon"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
	if !strings.Contains(msg.HTML, "Priya &lt;VIP&gt;") {
		t.Fatalf("expected escaped customer name in html")
	}
	if msg.Category != bookingCategory {
		t.Fatalf("unexpected category %q", msg.Category)
	}
}

func TestNotifyBookingConfirmed_SkipsWhenDisabled(t *testing.T) {
	email := &mockEmailSender{}
	svc := NewService(email, salon.NewStaticStore(glowProfile()), nil)
	if err := svc.NotifyBookingConfirmed(context.Background(), confirmedEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(email.sent) != 0 {
		t.Fatalf("expected no emails, got %d", len(email.sent))
	}

	if err := NewService(nil, nil, nil).NotifyBookingConfirmed(context.Background(), confirmedEvent()); err != nil {
		t.Fatalf("unconfigured notifier should be a no-op: %v", err)
	}
}

func TestNotifyBookingConfirmed_PartialFailure(t *testing.T) {
	email := &mockEmailSender{failOn: "desk@glow.example"}
	svc := NewService(email, salon.NewStaticStore(glowProfile("owner@glow.example", "desk@glow.example")), nil)

	err := svc.NotifyBookingConfirmed(context.Background(), confirmedEvent())
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if len(email.sent) != 1 {
		t.Fatalf("expected the healthy recipient to be emailed, got %d", len(email.sent))
	}
}

func TestOutboxHandler_DecodesEnvelope(t *testing.T) {
	email := &mockEmailSender{}
	svc := NewService(email, salon.NewStaticStore(glowProfile("owner@glow.example")), nil)

	outbox := events.NewMemoryOutbox()
	if _, err := outbox.Append(context.Background(), "glow", "booking:1", "", confirmedEvent()); err != nil {
		t.Fatalf("append: %v", err)
	}
	pending := outbox.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(pending))
	}
	if err := svc.OutboxHandler().Handle(context.Background(), pending[0]); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(email.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(email.sent))
	}

	bad := events.OutboxEntry{Payload: []byte("not json")}
	if err := svc.OutboxHandler().Handle(context.Background(), bad); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLogMessenger(t *testing.T) {
	m := NewLogMessenger(nil)
	m.limit = 2
	for _, body := range []string{"one", "two", "three"} {
		if err := m.SendReply(context.Background(), conversation.OutboundReply{TenantID: "glow", To: "+919876543210", Body: body}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	sent := m.Sent()
	if len(sent) != 2 || sent[0].Body != "two" || sent[1].Body != "three" {
		t.Fatalf("unexpected retained messages %v", sent)
	}

	if err := m.SendReply(context.Background(), conversation.OutboundReply{Body: "x"}); err == nil {
		t.Fatal("expected error without recipient")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.SendReply(ctx, conversation.OutboundReply{To: "+919876543210"}); err == nil {
		t.Fatal("expected context error")
	}
}
