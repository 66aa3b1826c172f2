// Package bookings persists confirmed appointments and enforces one booking
// per staff member per slot.
package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSlotConflict means another confirmed booking already holds the staff member's slot.
	ErrSlotConflict = errors.New("bookings: slot already booked")
	ErrNotFound     = errors.New("bookings: not found")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Booking is one appointment. ScheduledAt is the single source of the date and time.
type Booking struct {
	ID              uuid.UUID `json:"id"`
	TenantID        string    `json:"tenantId"`
	ServiceID       uuid.UUID `json:"serviceId"`
	ServiceName     string    `json:"serviceName"`
	StaffID         uuid.UUID `json:"staffId"`
	StaffName       string    `json:"staffName"`
	CustomerPhone   string    `json:"customerPhone"`
	CustomerName    string    `json:"customerName"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
	AmountMinor     int64     `json:"amountMinor"`
	Currency        string    `json:"currency"`
	Status          Status    `json:"status"`
	Notes           string    `json:"notes"`
	ConversationRef string    `json:"conversationRef,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (b Booking) Duration() time.Duration {
	return time.Duration(b.DurationMinutes) * time.Minute
}

func (b Booking) EndsAt() time.Time {
	return b.ScheduledAt.Add(b.Duration())
}

// Overlaps reports whether the booking intersects [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.ScheduledAt.Before(end) && b.EndsAt().After(start)
}

// Repository stores bookings. Create must be atomic: the row and its
// booking.confirmed.v1 event are written together or not at all.
type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*Booking, error)
	ListConfirmedBetween(ctx context.Context, tenantID string, from, to time.Time) ([]Booking, error)
	LastAssignedAt(ctx context.Context, tenantID string, staffIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

// ScheduledDate is the appointment day in loc as YYYY-MM-DD.
func (b Booking) ScheduledDate(loc *time.Location) string {
	return b.ScheduledAt.In(loc).Format(time.DateOnly)
}

// ScheduledTime is the appointment start in loc as 24h HH:MM.
func (b Booking) ScheduledTime(loc *time.Location) string {
	return b.ScheduledAt.In(loc).Format("15:04")
}
