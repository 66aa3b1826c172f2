// Package salon provides per-tenant salon profile configuration.
package salon

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// DayHours represents the opening hours for a single day.
// Nil means the salon is closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "09:00" in 24-hour format
	Close string `json:"close"` // "18:00" in 24-hour format
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// NotificationPrefs controls who hears about new chat bookings.
type NotificationPrefs struct {
	EmailEnabled    bool     `json:"email_enabled"`
	EmailRecipients []string `json:"email_recipients,omitempty"`
}

// Profile holds salon-specific booking configuration.
type Profile struct {
	TenantID            string            `json:"tenant_id"`
	Name                string            `json:"name"`
	Timezone            string            `json:"timezone"` // e.g., "Asia/Kolkata"
	Currency            string            `json:"currency"`
	BusinessHours       BusinessHours     `json:"business_hours"`
	SlotIntervalMinutes int               `json:"slot_interval_minutes"`
	BookingHorizonDays  int               `json:"booking_horizon_days"`
	Notifications       NotificationPrefs `json:"notifications"`
}

const (
	defaultSlotInterval = 30
	defaultHorizonDays  = 30
)

// DefaultProfile returns the profile used for tenants that never saved one.
func DefaultProfile(tenantID string) *Profile {
	weekday := &DayHours{Open: "09:00", Close: "18:00"}
	return &Profile{
		TenantID: tenantID,
		Name:     "Salon",
		Timezone: "Asia/Kolkata",
		Currency: "INR",
		BusinessHours: BusinessHours{
			Monday:    weekday,
			Tuesday:   weekday,
			Wednesday: weekday,
			Thursday:  weekday,
			Friday:    weekday,
			Saturday:  weekday,
			Sunday:    nil,
		},
		SlotIntervalMinutes: defaultSlotInterval,
		BookingHorizonDays:  defaultHorizonDays,
	}
}

// GetHoursForDay returns the hours for a given weekday (0=Sunday, 6=Saturday).
func (b *BusinessHours) GetHoursForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// Location resolves the salon timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p == nil || strings.TrimSpace(p.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlotInterval is the spacing of the candidate time grid.
func (p *Profile) SlotInterval() time.Duration {
	if p == nil || p.SlotIntervalMinutes <= 0 {
		return defaultSlotInterval * time.Minute
	}
	return time.Duration(p.SlotIntervalMinutes) * time.Minute
}

// HorizonDays is how far ahead customers may book.
func (p *Profile) HorizonDays() int {
	if p == nil || p.BookingHorizonDays <= 0 {
		return defaultHorizonDays
	}
	return p.BookingHorizonDays
}

// Today returns midnight of the current day in the salon timezone.
func (p *Profile) Today(now time.Time) time.Time {
	return StartOfDay(now.In(p.Location()))
}

// HoursOn returns the opening and closing instants for the calendar day of date,
// interpreted in the salon timezone. ok is false on closed days.
func (p *Profile) HoursOn(date time.Time) (open, close time.Time, ok bool) {
	loc := p.Location()
	day := StartOfDay(date.In(loc))
	hours := p.BusinessHours.GetHoursForDay(day.Weekday())
	if hours == nil {
		return time.Time{}, time.Time{}, false
	}
	openMin, err := ClockMinutes(hours.Open)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	closeMin, err := ClockMinutes(hours.Close)
	if err != nil || closeMin <= openMin {
		return time.Time{}, time.Time{}, false
	}
	return AtClock(day, openMin), AtClock(day, closeMin), true
}

// IsOpenOn reports whether the salon has hours on the calendar day of date.
func (p *Profile) IsOpenOn(date time.Time) bool {
	_, _, ok := p.HoursOn(date)
	return ok
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AtClock returns day at the given minute of the day.
func AtClock(day time.Time, minutes int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, day.Location())
}

// ClockMinutes parses "HH:MM" into minutes since midnight.
func ClockMinutes(clock string) (int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return 0, fmt.Errorf("salon: invalid clock %q: %w", clock, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
