package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/wolfman30/salon-booking-platform/internal/events"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler enqueues one reminder per confirmed booking, lead before the appointment.
type Scheduler struct {
	client enqueuer
	lead   time.Duration
	now    func() time.Time
	logger *logging.Logger
}

func NewScheduler(client enqueuer, lead time.Duration, logger *logging.Logger) *Scheduler {
	if client == nil {
		panic("reminders: asynq client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	return &Scheduler{client: client, lead: lead, now: time.Now, logger: logger}
}

// Schedule returns true when a task was enqueued. Reminders whose fire time has
// already passed are skipped, as are bookings that already have one.
func (s *Scheduler) Schedule(ctx context.Context, evt events.BookingConfirmedV1) (bool, error) {
	fireAt := evt.ScheduledAt.Add(-s.lead)
	if !fireAt.After(s.now()) {
		s.logger.Debug("reminder fire time already passed", "booking_id", evt.BookingID, "fire_at", fireAt)
		return false, nil
	}

	task, opts, err := NewReminderTask(Payload{
		BookingID:    evt.BookingID,
		TenantID:     evt.TenantID,
		Phone:        evt.CustomerPhone,
		CustomerName: evt.CustomerName,
		ServiceName:  evt.ServiceName,
		StaffName:    evt.StaffName,
		ScheduledAt:  evt.ScheduledAt,
	}, fireAt)
	if err != nil {
		return false, err
	}

	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		s.logger.Debug("reminder already scheduled", "booking_id", evt.BookingID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reminders: enqueue %s: %w", evt.BookingID, err)
	}

	s.logger.Info("reminder scheduled",
		"booking_id", evt.BookingID,
		"tenant_id", evt.TenantID,
		"task_id", info.ID,
		"fire_at", fireAt,
	)
	return true, nil
}

// OutboxHandler adapts the scheduler to the outbox deliverer.
func (s *Scheduler) OutboxHandler() events.DeliveryHandler {
	return events.HandlerFunc(func(ctx context.Context, entry events.OutboxEntry) error {
		env, err := entry.Envelope()
		if err != nil {
			return err
		}
		var evt events.BookingConfirmedV1
		if err := env.Decode(&evt); err != nil {
			return err
		}
		_, err = s.Schedule(ctx, evt)
		return err
	})
}
