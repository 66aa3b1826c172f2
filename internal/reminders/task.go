// Package reminders schedules and delivers appointment reminders for chat bookings.
package reminders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeSendReminder = "reminder:send"
	QueueName        = "reminders"
	maxRetry         = 5
)

// Payload is what a reminder task carries.
type Payload struct {
	BookingID    string    `json:"booking_id"`
	TenantID     string    `json:"tenant_id"`
	Phone        string    `json:"phone"`
	CustomerName string    `json:"customer_name,omitempty"`
	ServiceName  string    `json:"service_name"`
	StaffName    string    `json:"staff_name"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

// TaskID makes scheduling idempotent per booking.
func TaskID(bookingID string) string {
	return "reminder:" + bookingID
}

// NewReminderTask builds the task and the options that fire it at fireAt.
func NewReminderTask(p Payload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	if p.BookingID == "" || p.Phone == "" {
		return nil, nil, fmt.Errorf("reminders: booking id and phone are required")
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("reminders: marshal payload: %w", err)
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(TaskID(p.BookingID)),
		asynq.Queue(QueueName),
		asynq.MaxRetry(maxRetry),
		// keep the id reserved after completion so outbox redelivery cannot re-arm it
		asynq.Retention(48 * time.Hour),
	}
	return task, opts, nil
}

func decodePayload(task *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return Payload{}, fmt.Errorf("reminders: decode payload: %w", err)
	}
	return p, nil
}
