package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/salon-booking-platform/internal/events"
)

// Postgres error codes that mean the slot is taken.
const (
	uniqueViolation    = "23505"
	exclusionViolation = "23P01"
)

type txQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores bookings in the bookings table.
type PostgresRepository struct {
	db  txQuerier
	now func() time.Time
}

// NewPostgresRepository creates a repository backed by pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: pool, now: time.Now}
}

func newPostgresRepositoryWithQuerier(db txQuerier) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// Create inserts a confirmed booking and its outbox event in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = StatusConfirmed
	}
	b.CreatedAt = r.now().UTC()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bookings: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO bookings (
			id, tenant_id, service_id, service_name, staff_id, staff_name,
			customer_phone, customer_name, scheduled_at, ends_at, duration_minutes,
			amount_minor, currency, status, notes, conversation_ref, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = tx.Exec(ctx, query,
		b.ID, b.TenantID, b.ServiceID, b.ServiceName, b.StaffID, b.StaffName,
		b.CustomerPhone, b.CustomerName, b.ScheduledAt.UTC(), b.EndsAt().UTC(), b.DurationMinutes,
		b.AmountMinor, b.Currency, string(b.Status), b.Notes, b.ConversationRef, b.CreatedAt,
	)
	if err != nil {
		if isSlotConflict(err) {
			return ErrSlotConflict
		}
		return fmt.Errorf("bookings: insert: %w", err)
	}

	if b.Status == StatusConfirmed {
		if _, err := events.AppendCanonicalEvent(ctx, tx, b.TenantID, aggregate(b.ID), b.ConversationRef, ConfirmedEvent(*b)); err != nil {
			return fmt.Errorf("bookings: append event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isSlotConflict(err) {
			return ErrSlotConflict
		}
		return fmt.Errorf("bookings: commit: %w", err)
	}
	return nil
}

const bookingColumns = `id, tenant_id, service_id, service_name, staff_id, staff_name,
	customer_phone, customer_name, scheduled_at, duration_minutes,
	amount_minor, currency, status, notes, conversation_ref, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(row scanner) (Booking, error) {
	var b Booking
	var status string
	err := row.Scan(&b.ID, &b.TenantID, &b.ServiceID, &b.ServiceName, &b.StaffID, &b.StaffName,
		&b.CustomerPhone, &b.CustomerName, &b.ScheduledAt, &b.DurationMinutes,
		&b.AmountMinor, &b.Currency, &status, &b.Notes, &b.ConversationRef, &b.CreatedAt)
	b.Status = Status(status)
	return b, err
}

// Get returns a booking scoped to the tenant.
func (r *PostgresRepository) Get(ctx context.Context, tenantID string, id uuid.UUID) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE tenant_id = $1 AND id = $2`
	b, err := scanBooking(r.db.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bookings: load: %w", err)
	}
	return &b, nil
}

// ListConfirmedBetween returns confirmed bookings overlapping [from, to).
func (r *PostgresRepository) ListConfirmedBetween(ctx context.Context, tenantID string, from, to time.Time) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE tenant_id = $1 AND status = 'confirmed' AND scheduled_at < $3 AND ends_at > $2
		ORDER BY scheduled_at, staff_id
	`
	rows, err := r.db.Query(ctx, query, tenantID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("bookings: list confirmed: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate: %w", err)
	}
	return out, nil
}

// LastAssignedAt returns the creation time of each member's latest confirmed booking.
func (r *PostgresRepository) LastAssignedAt(ctx context.Context, tenantID string, staffIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	out := make(map[uuid.UUID]time.Time, len(staffIDs))
	if len(staffIDs) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(staffIDs))
	for _, id := range staffIDs {
		ids = append(ids, id.String())
	}
	query := `
		SELECT staff_id, max(created_at)
		FROM bookings
		WHERE tenant_id = $1 AND status = 'confirmed' AND staff_id = ANY($2::uuid[])
		GROUP BY staff_id
	`
	rows, err := r.db.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("bookings: last assigned: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("bookings: scan last assigned: %w", err)
		}
		out[id] = at
	}
	return out, rows.Err()
}

func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation || pgErr.Code == exclusionViolation
	}
	return false
}

func aggregate(id uuid.UUID) string {
	return "booking:" + id.String()
}

// ConfirmedEvent builds the outbox payload for b.
func ConfirmedEvent(b Booking) events.BookingConfirmedV1 {
	return events.BookingConfirmedV1{
		BookingID:       b.ID.String(),
		TenantID:        b.TenantID,
		ServiceID:       b.ServiceID.String(),
		ServiceName:     b.ServiceName,
		StaffID:         b.StaffID.String(),
		StaffName:       b.StaffName,
		CustomerPhone:   b.CustomerPhone,
		CustomerName:    b.CustomerName,
		ScheduledAt:     b.ScheduledAt.UTC(),
		DurationMinutes: b.DurationMinutes,
		AmountMinor:     b.AmountMinor,
		Currency:        b.Currency,
		Notes:           b.Notes,
		ConfirmedAt:     b.CreatedAt,
	}
}
