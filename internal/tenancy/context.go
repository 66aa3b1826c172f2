package tenancy

import (
	"context"
	"strings"
)

type ctxKey string

const tenantKey ctxKey = "salon.tenant_id"

// Header carries the tenant id on API requests.
const Header = "X-Tenant-Id"

// WithTenantID stores the tenant id in context.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, strings.TrimSpace(tenantID))
}

// TenantIDFromContext extracts the tenant id if present.
func TenantIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(tenantKey)
	if val == nil {
		return "", false
	}
	tenantID, ok := val.(string)
	return tenantID, ok && tenantID != ""
}

// SessionKey scopes a phone number to its tenant. Sessions, locks and queue
// message groups are all keyed by it.
func SessionKey(tenantID, phone string) string {
	return strings.TrimSpace(tenantID) + ":" + NormalizePhone(phone)
}

// NormalizePhone keeps a leading plus and the digits of a phone number.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
