// Package availability turns salon hours, staff shifts and existing bookings
// into bookable start times.
package availability

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/salon-booking-platform/internal/bookings"
	"github.com/wolfman30/salon-booking-platform/internal/catalog"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/internal/staff"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

var availabilityTracer = otel.Tracer("salon.internal.availability")

// Slot is a start time and the staff who could take it, in directory order.
type Slot struct {
	Time              time.Time   `json:"time"`
	QualifiedStaffIDs []uuid.UUID `json:"qualifiedStaffIds"`
}

// Label renders the start as 24h "HH:MM".
func (s Slot) Label() string {
	return s.Time.Format("15:04")
}

// BookingLister is the part of the bookings store the resolver reads.
type BookingLister interface {
	ListConfirmedBetween(ctx context.Context, tenantID string, from, to time.Time) ([]bookings.Booking, error)
}

// Resolver computes open slots and assigns staff to them.
type Resolver struct {
	offerings catalog.Store
	staff     staff.Directory
	profiles  salon.ProfileStore
	bookings  BookingLister
	matcher   *staff.Matcher
	logger    *logging.Logger
	now       func() time.Time
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMatcher overrides the staff matcher.
func WithMatcher(m *staff.Matcher) Option {
	return func(r *Resolver) {
		if m != nil {
			r.matcher = m
		}
	}
}

// NewResolver computes open slots for a tenant's services.
func NewResolver(offerings catalog.Store, directory staff.Directory, profiles salon.ProfileStore, booked BookingLister, logger *logging.Logger, opts ...Option) *Resolver {
	if offerings == nil {
		panic("availability: catalog store cannot be nil")
	}
	if directory == nil {
		panic("availability: staff directory cannot be nil")
	}
	if profiles == nil {
		panic("availability: profile store cannot be nil")
	}
	if booked == nil {
		panic("availability: booking lister cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	r := &Resolver{
		offerings: offerings,
		staff:     directory,
		profiles:  profiles,
		bookings:  booked,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.matcher == nil {
		r.matcher = staff.NewMatcher(nil, logger)
	}
	return r
}

// Grid yields candidate start times from open, stepping by step, while a
// service of the given duration still ends by close. Starts at or before
// notBefore are skipped.
func Grid(open, close time.Time, step, duration time.Duration, notBefore time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if step <= 0 {
			return
		}
		for t := open; !t.Add(duration).After(close); t = t.Add(step) {
			if !notBefore.IsZero() && !t.After(notBefore) {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// ComputeSlots returns every start time on date where at least one qualified
// member is free for the whole service. Only the calendar day of date is used;
// it is placed in the salon's timezone. No availability is an empty result, not an error.
func (r *Resolver) ComputeSlots(ctx context.Context, tenantID string, serviceID uuid.UUID, date time.Time) ([]Slot, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.compute_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("salon.tenant_id", tenantID),
		attribute.String("salon.service_id", serviceID.String()),
		attribute.String("salon.date", date.Format(time.DateOnly)),
	)

	offering, profile, err := r.load(ctx, tenantID, serviceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	slots, err := r.slotsOn(ctx, tenantID, profile, offering, date)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("salon.slot_count", len(slots)))
	return slots, nil
}

// AvailableDates returns up to limit days, starting today, that have at least
// one slot for the service, within the salon's booking horizon.
func (r *Resolver) AvailableDates(ctx context.Context, tenantID string, serviceID uuid.UUID, limit int) ([]time.Time, error) {
	offering, profile, err := r.load(ctx, tenantID, serviceID)
	if err != nil {
		return nil, err
	}
	today := profile.Today(r.now())
	var dates []time.Time
	for i := 0; i <= profile.HorizonDays() && len(dates) < limit; i++ {
		day := today.AddDate(0, 0, i)
		if !profile.IsOpenOn(day) {
			continue
		}
		slots, err := r.slotsOn(ctx, tenantID, profile, offering, day)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			dates = append(dates, day)
		}
	}
	return dates, nil
}

// AssignStaff re-checks that at is still open for the service and picks one
// qualified member. It returns staff.ErrUnassignable when nobody is left.
func (r *Resolver) AssignStaff(ctx context.Context, tenantID string, serviceID uuid.UUID, at time.Time) (staff.Member, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.assign_staff")
	defer span.End()

	offering, profile, err := r.load(ctx, tenantID, serviceID)
	if err != nil {
		span.RecordError(err)
		return staff.Member{}, err
	}
	at = at.In(profile.Location())
	slots, err := r.slotsOn(ctx, tenantID, profile, offering, at)
	if err != nil {
		span.RecordError(err)
		return staff.Member{}, err
	}

	var qualified []uuid.UUID
	for _, s := range slots {
		if s.Time.Equal(at) {
			qualified = s.QualifiedStaffIDs
			break
		}
	}
	if len(qualified) == 0 {
		return staff.Member{}, staff.ErrUnassignable
	}

	members, err := r.staff.ListActive(ctx, tenantID)
	if err != nil {
		return staff.Member{}, fmt.Errorf("availability: list staff: %w", err)
	}
	byID := make(map[uuid.UUID]staff.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	candidates := make([]staff.Member, 0, len(qualified))
	for _, id := range qualified {
		if m, ok := byID[id]; ok {
			candidates = append(candidates, m)
		}
	}
	member, err := r.matcher.Pick(ctx, tenantID, candidates)
	if err != nil {
		return staff.Member{}, err
	}
	span.SetAttributes(attribute.String("salon.staff_id", member.ID.String()))
	return member, nil
}

func (r *Resolver) load(ctx context.Context, tenantID string, serviceID uuid.UUID) (catalog.Offering, *salon.Profile, error) {
	offering, err := r.offerings.Get(ctx, tenantID, serviceID)
	if err != nil {
		return catalog.Offering{}, nil, fmt.Errorf("availability: load service: %w", err)
	}
	if !offering.IsActive {
		return catalog.Offering{}, nil, fmt.Errorf("availability: service %s inactive: %w", serviceID, catalog.ErrNotFound)
	}
	profile, err := r.profiles.Get(ctx, tenantID)
	if err != nil {
		return catalog.Offering{}, nil, fmt.Errorf("availability: load salon profile: %w", err)
	}
	return *offering, profile, nil
}

func (r *Resolver) slotsOn(ctx context.Context, tenantID string, profile *salon.Profile, offering catalog.Offering, date time.Time) ([]Slot, error) {
	loc := profile.Location()
	now := r.now().In(loc)
	y, m, d := date.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	today := profile.Today(now)
	if day.Before(today) || day.After(today.AddDate(0, 0, profile.HorizonDays())) {
		return []Slot{}, nil
	}
	open, close, ok := profile.HoursOn(day)
	if !ok || offering.DurationMinutes <= 0 {
		return []Slot{}, nil
	}

	members, err := r.staff.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("availability: list staff: %w", err)
	}
	var capable []staff.Member
	for _, m := range members {
		if m.CanPerform(offering) {
			capable = append(capable, m)
		}
	}
	if len(capable) == 0 {
		return []Slot{}, nil
	}

	booked, err := r.bookings.ListConfirmedBetween(ctx, tenantID, open, close)
	if err != nil {
		return nil, fmt.Errorf("availability: list bookings: %w", err)
	}
	busy := make(map[uuid.UUID][]bookings.Booking)
	for _, b := range booked {
		busy[b.StaffID] = append(busy[b.StaffID], b)
	}

	var notBefore time.Time
	if day.Equal(today) {
		notBefore = now
	}
	duration := time.Duration(offering.DurationMinutes) * time.Minute
	slots := []Slot{}
	for start := range Grid(open, close, profile.SlotInterval(), duration, notBefore) {
		end := start.Add(duration)
		var ids []uuid.UUID
		for _, m := range staff.Qualified(capable, offering, start) {
			if overlapsAny(busy[m.ID], start, end) {
				continue
			}
			ids = append(ids, m.ID)
		}
		if len(ids) > 0 {
			slots = append(slots, Slot{Time: start, QualifiedStaffIDs: ids})
		}
	}
	return slots, nil
}

func overlapsAny(list []bookings.Booking, start, end time.Time) bool {
	for _, b := range list {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
