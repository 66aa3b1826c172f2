package events

import "time"

// BookingConfirmedV1 is emitted in the same transaction that confirms a booking.
type BookingConfirmedV1 struct {
	BookingID       string    `json:"booking_id"`
	TenantID        string    `json:"tenant_id"`
	ServiceID       string    `json:"service_id"`
	ServiceName     string    `json:"service_name"`
	StaffID         string    `json:"staff_id"`
	StaffName       string    `json:"staff_name"`
	CustomerPhone   string    `json:"customer_phone"`
	CustomerName    string    `json:"customer_name,omitempty"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	AmountMinor     int64     `json:"amount_minor"`
	Currency        string    `json:"currency"`
	Notes           string    `json:"notes,omitempty"`
	ConfirmedAt     time.Time `json:"confirmed_at"`
}

const BookingConfirmedType = "booking.confirmed.v1"

func (BookingConfirmedV1) EventType() string {
	return BookingConfirmedType
}
