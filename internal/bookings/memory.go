package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-platform/internal/events"
)

// EventAppender receives the booking.confirmed.v1 event written with a booking.
type EventAppender interface {
	Append(ctx context.Context, tenantID, aggregate, correlationID string, evt events.CanonicalEvent) (events.Envelope, error)
}

// MemoryRepository keeps bookings in memory. Writes are serialized, which gives
// the same one-booking-per-slot guarantee as the database constraint.
type MemoryRepository struct {
	mu       sync.Mutex
	bookings []Booking
	outbox   EventAppender
	now      func() time.Time
}

// NewMemoryRepository creates an empty repository. outbox may be nil.
func NewMemoryRepository(outbox EventAppender) *MemoryRepository {
	return &MemoryRepository{outbox: outbox, now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.Status == "" {
		b.Status = StatusConfirmed
	}
	if b.Status == StatusConfirmed {
		for _, existing := range r.bookings {
			if existing.Status == StatusConfirmed && existing.StaffID == b.StaffID &&
				existing.Overlaps(b.ScheduledAt, b.EndsAt()) {
				return ErrSlotConflict
			}
		}
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = r.now().UTC()

	if b.Status == StatusConfirmed && r.outbox != nil {
		if _, err := r.outbox.Append(ctx, b.TenantID, aggregate(b.ID), b.ConversationRef, ConfirmedEvent(*b)); err != nil {
			return err
		}
	}
	r.bookings = append(r.bookings, *b)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, tenantID string, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.TenantID == tenantID && b.ID == id {
			found := b
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListConfirmedBetween(_ context.Context, tenantID string, from, to time.Time) ([]Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Booking
	for _, b := range r.bookings {
		if b.TenantID == tenantID && b.Status == StatusConfirmed && b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *MemoryRepository) LastAssignedAt(_ context.Context, tenantID string, staffIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(staffIDs))
	for _, id := range staffIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]time.Time)
	for _, b := range r.bookings {
		if b.TenantID != tenantID || b.Status != StatusConfirmed || !wanted[b.StaffID] {
			continue
		}
		if b.CreatedAt.After(out[b.StaffID]) {
			out[b.StaffID] = b.CreatedAt
		}
	}
	return out, nil
}

// All returns a copy of every stored booking.
func (r *MemoryRepository) All() []Booking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Booking(nil), r.bookings...)
}
