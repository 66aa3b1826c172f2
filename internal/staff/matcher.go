package staff

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// ErrUnassignable means no qualified, available member is left for a slot.
var ErrUnassignable = errors.New("staff: no qualified staff available")

// AssignmentHistory reports when each member last received a confirmed booking.
// Members never assigned are absent from the map.
type AssignmentHistory interface {
	LastAssignedAt(ctx context.Context, tenantID string, staffIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

// Matcher picks one member from a qualified set.
//
// The rule is least-recently-assigned: members never assigned come first, then the
// oldest last assignment. Remaining ties are broken by case-insensitive name and
// finally by id, so the result never depends on input order.
type Matcher struct {
	history AssignmentHistory
	logger  *logging.Logger
}

// NewMatcher creates a matcher. A nil history orders by name and id only.
func NewMatcher(history AssignmentHistory, logger *logging.Logger) *Matcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Matcher{history: history, logger: logger}
}

// Pick returns the member to assign, or ErrUnassignable when candidates is empty.
func (m *Matcher) Pick(ctx context.Context, tenantID string, candidates []Member) (Member, error) {
	if len(candidates) == 0 {
		return Member{}, ErrUnassignable
	}

	last := map[uuid.UUID]time.Time{}
	if m.history != nil {
		ids := make([]uuid.UUID, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		got, err := m.history.LastAssignedAt(ctx, tenantID, ids)
		if err != nil {
			m.logger.Warn("staff assignment history unavailable, ordering by name", "tenant_id", tenantID, "error", err)
		} else if got != nil {
			last = got
		}
	}

	ordered := append([]Member(nil), candidates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, tj := last[ordered[i].ID], last[ordered[j].ID]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		ni, nj := strings.ToLower(ordered[i].Name), strings.ToLower(ordered[j].Name)
		if ni != nj {
			return ni < nj
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})
	return ordered[0], nil
}
