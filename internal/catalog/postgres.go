package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads offerings from the service_offerings table.
type PostgresStore struct {
	db rowQuerier
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db rowQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

const offeringColumns = `id, tenant_id, name, base_price_minor, currency, category, duration_minutes, is_active, position`

// ListActive returns active offerings ordered by position then name.
func (s *PostgresStore) ListActive(ctx context.Context, tenantID string) ([]Offering, error) {
	query := `
		SELECT ` + offeringColumns + `
		FROM service_offerings
		WHERE tenant_id = $1 AND is_active
		ORDER BY position, lower(name), id
	`
	rows, err := s.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("catalog: query offerings: %w", err)
	}
	defer rows.Close()

	var offerings []Offering
	for rows.Next() {
		var o Offering
		if err := rows.Scan(&o.ID, &o.TenantID, &o.Name, &o.BasePriceMinor, &o.Currency, &o.Category, &o.DurationMinutes, &o.IsActive, &o.Position); err != nil {
			return nil, fmt.Errorf("catalog: scan offering: %w", err)
		}
		offerings = append(offerings, o)
	}
	return offerings, rows.Err()
}

// Get returns one offering, active or not.
func (s *PostgresStore) Get(ctx context.Context, tenantID string, id uuid.UUID) (*Offering, error) {
	query := `
		SELECT ` + offeringColumns + `
		FROM service_offerings
		WHERE tenant_id = $1 AND id = $2
	`
	var o Offering
	err := s.db.QueryRow(ctx, query, tenantID, id).Scan(&o.ID, &o.TenantID, &o.Name, &o.BasePriceMinor, &o.Currency, &o.Category, &o.DurationMinutes, &o.IsActive, &o.Position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog: get offering: %w", err)
	}
	return &o, nil
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("catalog: invalid offering id %q: %w", id, ErrNotFound)
	}
	return parsed, nil
}
