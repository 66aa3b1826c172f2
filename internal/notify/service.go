package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/salon-booking-platform/internal/catalog"
	"github.com/wolfman30/salon-booking-platform/internal/events"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

const bookingCategory = "booking-confirmed"

// ProfileReader is the slice of the salon profile store the notifier needs.
type ProfileReader interface {
	Get(ctx context.Context, tenantID string) (*salon.Profile, error)
}

// Service tells salon staff about bookings made over chat.
type Service struct {
	email    EmailSender
	profiles ProfileReader
	logger   *logging.Logger
}

func NewService(email EmailSender, profiles ProfileReader, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:    email,
		profiles: profiles,
		logger:   logger,
	}
}

// NotifyBookingConfirmed emails every recipient in the salon's notification settings.
// Salons without recipients, or with email turned off, are skipped.
func (s *Service) NotifyBookingConfirmed(ctx context.Context, evt events.BookingConfirmedV1) error {
	if s.profiles == nil || s.email == nil {
		s.logger.Debug("notify: email or profile store not configured, skipping", "booking_id", evt.BookingID)
		return nil
	}

	profile, err := s.profiles.Get(ctx, evt.TenantID)
	if err != nil {
		s.logger.Error("notify: failed to get salon profile", "error", err, "tenant_id", evt.TenantID)
		return fmt.Errorf("notify: get salon profile: %w", err)
	}
	if !profile.Notifications.EmailEnabled || len(profile.Notifications.EmailRecipients) == 0 {
		s.logger.Debug("notify: booking emails disabled for salon", "tenant_id", evt.TenantID)
		return nil
	}

	customer := evt.CustomerName
	if strings.TrimSpace(customer) == "" {
		customer = evt.CustomerPhone
	}
	when := evt.ScheduledAt.In(profile.Location()).Format("Monday, 2 January at 15:04")
	price := catalog.FormatPrice(evt.AmountMinor, evt.Currency)

	subject := fmt.Sprintf("New booking: %s on %s", evt.ServiceName, evt.ScheduledAt.In(profile.Location()).Format("Mon 2 Jan 15:04"))
	body := fmt.Sprintf(`%s booked %s over chat.

Customer: %s
Phone: %s
Service: %s (%d min, %s)
Stylist: %s
When: %s
Booking ID: %s%s

%s`, customer, evt.ServiceName, customer, evt.CustomerPhone, evt.ServiceName, evt.DurationMinutes, price,
		evt.StaffName, when, evt.BookingID, notesLine(evt.Notes), profile.Name)

	htmlBody := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>New booking</h2>
<table style="border-collapse: collapse; margin: 20px 0;">
%s%s%s%s%s%s
</table>
<p style="color: #6b7280; font-size: 12px;">%s</p>
</div>`,
		htmlRow("Customer", customer),
		htmlRow("Phone", evt.CustomerPhone),
		htmlRow("Service", fmt.Sprintf("%s (%d min, %s)", evt.ServiceName, evt.DurationMinutes, price)),
		htmlRow("Stylist", evt.StaffName),
		htmlRow("When", when),
		htmlRow("Booking ID", evt.BookingID),
		html.EscapeString(profile.Name))

	var failed int
	for _, recipient := range profile.Notifications.EmailRecipients {
		msg := EmailMessage{
			To:       recipient,
			Subject:  subject,
			Body:     body,
			HTML:     htmlBody,
			Category: bookingCategory,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send booking email", "error", err, "to", recipient, "booking_id", evt.BookingID)
			failed++
			continue
		}
		s.logger.Info("notify: booking email sent", "to", recipient, "booking_id", evt.BookingID)
	}
	if failed > 0 {
		return fmt.Errorf("notify: %d of %d booking email(s) failed", failed, len(profile.Notifications.EmailRecipients))
	}
	return nil
}

// OutboxHandler adapts the notifier to the outbox deliverer.
func (s *Service) OutboxHandler() events.DeliveryHandler {
	return events.HandlerFunc(func(ctx context.Context, entry events.OutboxEntry) error {
		env, err := entry.Envelope()
		if err != nil {
			return err
		}
		var evt events.BookingConfirmedV1
		if err := env.Decode(&evt); err != nil {
			return err
		}
		return s.NotifyBookingConfirmed(ctx, evt)
	})
}

func notesLine(notes string) string {
	if strings.TrimSpace(notes) == "" {
		return ""
	}
	return "\nNotes: " + notes
}

func htmlRow(label, value string) string {
	return fmt.Sprintf(`<tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>%s:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>`,
		label, html.EscapeString(value))
}
