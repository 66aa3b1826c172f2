// Package staff models salon staff, their specializations and working hours,
// and picks who performs a booked slot.
package staff

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-platform/internal/catalog"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
)

// WorkingHours is a daily "HH:MM" window. Empty bounds mean the whole day.
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Member is a staff member who can be assigned bookings.
type Member struct {
	ID              uuid.UUID    `json:"id"`
	TenantID        string       `json:"tenantId"`
	Name            string       `json:"name"`
	Role            string       `json:"role"`
	Specializations []string     `json:"specializations"`
	WorkingDays     []string     `json:"workingDays"`
	WorkingHours    WorkingHours `json:"workingHours"`
	IsActive        bool         `json:"isActive"`
}

// Directory reads the staff list of a tenant.
type Directory interface {
	ListActive(ctx context.Context, tenantID string) ([]Member, error)
}

// CanPerform reports whether the offering's name, category or id is one of the
// member's specializations.
func (m Member) CanPerform(o catalog.Offering) bool {
	name := normalize(o.Name)
	category := normalize(o.Category)
	id := o.ID.String()
	for _, spec := range m.Specializations {
		s := normalize(spec)
		if s == "" {
			continue
		}
		if s == name || (category != "" && s == category) || s == id {
			return true
		}
	}
	return false
}

// WorksOn reports whether weekday is a working day. No configured days means every day.
func (m Member) WorksOn(weekday time.Weekday) bool {
	if len(m.WorkingDays) == 0 {
		return true
	}
	for _, d := range m.WorkingDays {
		if parsed, ok := parseWeekday(d); ok && parsed == weekday {
			return true
		}
	}
	return false
}

// Covers reports whether the member works for the whole of [start, start+duration).
// start must already be in the salon timezone.
func (m Member) Covers(start time.Time, duration time.Duration) bool {
	if !m.IsActive || !m.WorksOn(start.Weekday()) {
		return false
	}
	day := salon.StartOfDay(start)
	from, to := day, day.Add(24*time.Hour)
	if m.WorkingHours.Start != "" {
		minutes, err := salon.ClockMinutes(m.WorkingHours.Start)
		if err != nil {
			return false
		}
		from = salon.AtClock(day, minutes)
	}
	if m.WorkingHours.End != "" {
		minutes, err := salon.ClockMinutes(m.WorkingHours.End)
		if err != nil {
			return false
		}
		to = salon.AtClock(day, minutes)
	}
	end := start.Add(duration)
	return !start.Before(from) && !end.After(to)
}

// Qualified filters members to those who can perform o for the whole appointment.
func Qualified(members []Member, o catalog.Offering, start time.Time) []Member {
	duration := time.Duration(o.DurationMinutes) * time.Minute
	var out []Member
	for _, m := range members {
		if m.CanPerform(o) && m.Covers(start, duration) {
			out = append(out, m)
		}
	}
	return out
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdays[normalize(s)]
	return d, ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
