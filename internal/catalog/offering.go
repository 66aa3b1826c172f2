// Package catalog resolves free-text service requests against a tenant's
// active service offerings.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound indicates no offering matched.
var ErrNotFound = errors.New("catalog: offering not found")

// Offering is a bookable service with a price, duration and category.
type Offering struct {
	ID              uuid.UUID `json:"id"`
	TenantID        string    `json:"tenantId"`
	Name            string    `json:"name"`
	BasePriceMinor  int64     `json:"basePriceMinor"`
	Currency        string    `json:"currency"`
	Category        string    `json:"category"`
	DurationMinutes int       `json:"durationMinutes"`
	IsActive        bool      `json:"isActive"`
	Position        int       `json:"position"`
}

// Store reads the service catalog. ListActive returns offerings in catalog order.
type Store interface {
	ListActive(ctx context.Context, tenantID string) ([]Offering, error)
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*Offering, error)
}

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatPrice renders minor units with the currency symbol, dropping zero cents.
func FormatPrice(minor int64, currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}
	if minor%100 == 0 {
		return fmt.Sprintf("%s%d", symbol, minor/100)
	}
	return fmt.Sprintf("%s%d.%02d", symbol, minor/100, minor%100)
}

// Price renders the offering's base price.
func (o Offering) Price() string {
	return FormatPrice(o.BasePriceMinor, o.Currency)
}
