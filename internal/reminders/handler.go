package reminders

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// Handler sends due reminders through the chat messenger.
type Handler struct {
	messenger conversation.ReplyMessenger
	profiles  salon.ProfileStore
	logger    *logging.Logger
}

func NewHandler(messenger conversation.ReplyMessenger, profiles salon.ProfileStore, logger *logging.Logger) *Handler {
	if messenger == nil {
		panic("reminders: messenger cannot be nil")
	}
	if profiles == nil {
		panic("reminders: profile store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{messenger: messenger, profiles: profiles, logger: logger}
}

// Register mounts the handler on mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeSendReminder, h)
}

// ProcessTask implements asynq.Handler. Bad payloads are not retried.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	p, err := decodePayload(task)
	if err != nil {
		h.logger.Error("invalid reminder payload", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	profile, err := h.profiles.Get(ctx, p.TenantID)
	if err != nil {
		return fmt.Errorf("reminders: load salon profile: %w", err)
	}

	body := reminderText(p, profile)
	err = h.messenger.SendReply(ctx, conversation.OutboundReply{
		TenantID: p.TenantID,
		To:       p.Phone,
		Body:     body,
		Metadata: map[string]string{"kind": "reminder", "booking_id": p.BookingID},
	})
	if err != nil {
		h.logger.Error("reminder send failed", "error", err, "booking_id", p.BookingID, "phone", logging.MaskPhone(p.Phone))
		return fmt.Errorf("reminders: send: %w", err)
	}
	h.logger.Info("reminder sent", "booking_id", p.BookingID, "tenant_id", p.TenantID)
	return nil
}

func reminderText(p Payload, profile *salon.Profile) string {
	loc := profile.Location()
	at := p.ScheduledAt.In(loc)
	greeting := "Hi"
	if name := strings.TrimSpace(p.CustomerName); name != "" && !strings.HasPrefix(name, "+") {
		greeting = "Hi " + name
	}
	return fmt.Sprintf("%s, a reminder of your %s with %s at %s on %s at %s. Reply \"book\" to make another booking.",
		greeting, p.ServiceName, p.StaffName, profile.Name, at.Format("Mon 2 Jan"), at.Format("15:04"))
}

var _ asynq.Handler = (*Handler)(nil)
