package staff

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresDirectory reads staff from the staff_members table.
type PostgresDirectory struct {
	db rowQuerier
}

// NewPostgresDirectory creates a directory backed by a pgx pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	if pool == nil {
		panic("staff: pgx pool required")
	}
	return &PostgresDirectory{db: pool}
}

func newPostgresDirectoryWithQuerier(db rowQuerier) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// ListActive returns active members ordered by name.
func (d *PostgresDirectory) ListActive(ctx context.Context, tenantID string) ([]Member, error) {
	query := `
		SELECT id, tenant_id, name, role, specializations, working_days,
		       COALESCE(work_start, ''), COALESCE(work_end, ''), is_active
		FROM staff_members
		WHERE tenant_id = $1 AND is_active
		ORDER BY lower(name), id
	`
	rows, err := d.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("staff: query members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Name, &m.Role, &m.Specializations, &m.WorkingDays,
			&m.WorkingHours.Start, &m.WorkingHours.End, &m.IsActive); err != nil {
			return nil, fmt.Errorf("staff: scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staff: iterate members: %w", err)
	}
	return members, nil
}

// MemoryDirectory keeps staff in memory for local runs and tests.
type MemoryDirectory struct {
	mu      sync.RWMutex
	members map[string][]Member
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{members: make(map[string][]Member)}
}

// Put adds or replaces a member. Missing ids are generated.
func (d *MemoryDirectory) Put(m Member) Member {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.members[m.TenantID]
	for i := range list {
		if list[i].ID == m.ID {
			list[i] = m
			return m
		}
	}
	d.members[m.TenantID] = append(list, m)
	return m
}

func (d *MemoryDirectory) ListActive(_ context.Context, tenantID string) ([]Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Member
	for _, m := range d.members[tenantID] {
		if m.IsActive {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
