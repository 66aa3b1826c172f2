package bookings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("salon.internal.bookings")

// Service confirms and reads bookings.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

// NewService constructs a bookings service.
func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Confirm persists b as a confirmed booking. A taken slot returns ErrSlotConflict
// and leaves nothing behind.
func (s *Service) Confirm(ctx context.Context, b *Booking) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("salon.tenant_id", b.TenantID),
		attribute.String("salon.staff_id", b.StaffID.String()),
		attribute.String("salon.service_id", b.ServiceID.String()),
	)

	b.Status = StatusConfirmed
	if err := s.repo.Create(ctx, b); err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotConflict) {
			s.logger.Info("booking slot taken", "tenant_id", b.TenantID, "staff_id", b.StaffID, "scheduled_at", b.ScheduledAt)
		}
		return err
	}
	span.SetAttributes(attribute.String("salon.booking_id", b.ID.String()))
	s.logger.Info("booking confirmed",
		"tenant_id", b.TenantID,
		"booking_id", b.ID,
		"staff_id", b.StaffID,
		"scheduled_at", b.ScheduledAt,
		"phone", logging.MaskPhone(b.CustomerPhone),
	)
	return nil
}

// Get returns a booking scoped to the tenant.
func (s *Service) Get(ctx context.Context, tenantID string, id uuid.UUID) (*Booking, error) {
	return s.repo.Get(ctx, tenantID, id)
}

