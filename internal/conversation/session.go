package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-platform/internal/salon"
)

// Step is a state of the booking flow.
type Step string

const (
	StepWelcome              Step = "WELCOME"
	StepAwaitingService      Step = "AWAITING_SERVICE"
	StepAwaitingDate         Step = "AWAITING_DATE"
	StepAwaitingTime         Step = "AWAITING_TIME"
	StepAwaitingConfirmation Step = "AWAITING_CONFIRMATION"
	StepCompleted            Step = "COMPLETED"
)

// Session is the per-phone progress through the booking flow. Selections are
// filled in as the customer moves forward and cleared when they go back.
type Session struct {
	ID                uuid.UUID   `json:"id"`
	TenantID          string      `json:"tenantId"`
	Phone             string      `json:"phone"`
	CustomerName      string      `json:"customerName,omitempty"`
	Step              Step        `json:"step"`
	ServiceID         uuid.UUID   `json:"serviceId"`
	ServiceName       string      `json:"serviceName,omitempty"`
	Date              string      `json:"date,omitempty"` // YYYY-MM-DD in the salon timezone
	Time              string      `json:"time,omitempty"` // HH:MM
	StaffID           uuid.UUID   `json:"staffId"`
	StaffName         string      `json:"staffName,omitempty"`
	OfferedServiceIDs []uuid.UUID `json:"offeredServiceIds,omitempty"`
	OfferedDates      []string    `json:"offeredDates,omitempty"`
	OfferedTimes      []string    `json:"offeredTimes,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	LastUpdatedAt     time.Time   `json:"lastUpdatedAt"`
}

// NewSession starts a fresh conversation at WELCOME.
func NewSession(tenantID, phone string, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Phone:         phone,
		Step:          StepWelcome,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// Expired reports whether the session sat idle longer than window.
func (s *Session) Expired(now time.Time, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	return now.Sub(s.LastUpdatedAt) > window
}

// Reset drops every selection and returns to WELCOME under a new id.
func (s *Session) Reset(now time.Time) {
	name := s.CustomerName
	*s = *NewSession(s.TenantID, s.Phone, now)
	s.CustomerName = name
}

// ConversationRef is the id used to correlate bookings and transcripts.
func (s *Session) ConversationRef() string {
	return s.ID.String()
}

func (s *Session) chooseService(id uuid.UUID, name string) {
	s.ServiceID = id
	s.ServiceName = name
	s.clearDate()
}

func (s *Session) clearService() {
	s.ServiceID = uuid.Nil
	s.ServiceName = ""
	s.clearDate()
}

func (s *Session) clearDate() {
	s.Date = ""
	s.OfferedDates = nil
	s.clearTime()
}

func (s *Session) clearTime() {
	s.Time = ""
	s.OfferedTimes = nil
	s.StaffID = uuid.Nil
	s.StaffName = ""
}

// Day returns the selected date at midnight in loc.
func (s *Session) Day(loc *time.Location) (time.Time, bool) {
	if s.Date == "" {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(time.DateOnly, s.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// ScheduledAt combines the selected date and time in loc.
func (s *Session) ScheduledAt(loc *time.Location) (time.Time, bool) {
	day, ok := s.Day(loc)
	if !ok || s.Time == "" {
		return time.Time{}, false
	}
	minutes, err := salon.ClockMinutes(s.Time)
	if err != nil {
		return time.Time{}, false
	}
	return salon.AtClock(day, minutes), true
}

func (s *Session) clone() *Session {
	out := *s
	out.OfferedServiceIDs = append([]uuid.UUID(nil), s.OfferedServiceIDs...)
	out.OfferedDates = append([]string(nil), s.OfferedDates...)
	out.OfferedTimes = append([]string(nil), s.OfferedTimes...)
	return &out
}
