package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/salon-booking-platform/internal/textparse"
)

var catalogTracer = otel.Tracer("salon.internal.catalog")

// MatchKind records which rule resolved a request.
type MatchKind string

const (
	MatchOrdinal   MatchKind = "ordinal"
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
)

const minSubstringLen = 3

// Match resolves raw against offerings, which must be in displayed order.
// Rules are tried in order: list position, case-insensitive exact name,
// then substring in either direction. Ties go to the earliest offering.
func Match(offerings []Offering, raw string) (Offering, MatchKind, error) {
	input := textparse.Normalize(raw)
	if input == "" || len(offerings) == 0 {
		return Offering{}, "", ErrNotFound
	}

	if n, ok := textparse.ParseOrdinal(input); ok {
		if n >= 1 && n <= len(offerings) {
			return offerings[n-1], MatchOrdinal, nil
		}
		if textparse.IsBareNumber(input) {
			return Offering{}, "", ErrNotFound
		}
	}

	for _, o := range offerings {
		if textparse.Normalize(o.Name) == input {
			return o, MatchExact, nil
		}
	}

	for _, o := range offerings {
		name := textparse.Normalize(o.Name)
		if len(input) >= minSubstringLen && strings.Contains(name, input) {
			return o, MatchSubstring, nil
		}
		if len(name) >= minSubstringLen && strings.Contains(input, name) {
			return o, MatchSubstring, nil
		}
	}
	return Offering{}, "", ErrNotFound
}

// Lookup resolves service requests for a tenant.
type Lookup struct {
	store Store
}

// NewLookup wraps a catalog store.
func NewLookup(store Store) *Lookup {
	if store == nil {
		panic("catalog: store cannot be nil")
	}
	return &Lookup{store: store}
}

// Active returns the tenant's active offerings in catalog order.
func (l *Lookup) Active(ctx context.Context, tenantID string) ([]Offering, error) {
	offerings, err := l.store.ListActive(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list active: %w", err)
	}
	return offerings, nil
}

// Get returns one offering by id.
func (l *Lookup) Get(ctx context.Context, tenantID string, id string) (*Offering, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return l.store.Get(ctx, tenantID, parsed)
}

// ResolveService matches rawText against the tenant's active catalog.
func (l *Lookup) ResolveService(ctx context.Context, tenantID, rawText string) (Offering, error) {
	ctx, span := catalogTracer.Start(ctx, "catalog.resolve_service")
	defer span.End()

	offerings, err := l.Active(ctx, tenantID)
	if err != nil {
		span.RecordError(err)
		return Offering{}, err
	}
	return l.Resolve(ctx, offerings, rawText)
}

// Resolve matches rawText against menu, the offerings as the customer last saw
// them. Positions refer to that list.
func (l *Lookup) Resolve(ctx context.Context, menu []Offering, rawText string) (Offering, error) {
	_, span := catalogTracer.Start(ctx, "catalog.resolve")
	defer span.End()

	offering, kind, err := Match(menu, rawText)
	if err != nil {
		span.SetAttributes(attribute.String("salon.match_kind", "none"))
		return Offering{}, err
	}
	span.SetAttributes(attribute.String("salon.match_kind", string(kind)))
	return offering, nil
}

// FormatMenu renders a numbered list of offerings.
func FormatMenu(offerings []Offering) string {
	var sb strings.Builder
	for i, o := range offerings {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s - %s", i+1, o.Name, o.Price())
		if o.DurationMinutes > 0 {
			fmt.Fprintf(&sb, " (%d min)", o.DurationMinutes)
		}
	}
	return sb.String()
}
