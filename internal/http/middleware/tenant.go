package middleware

import (
	"net/http"
	"strings"

	"github.com/wolfman30/salon-booking-platform/internal/tenancy"
)

// Tenant copies the X-Tenant-Id header onto the request context. Requests
// without the header pass through and may carry the tenant in their body.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tenantID := strings.TrimSpace(r.Header.Get(tenancy.Header)); tenantID != "" {
			r = r.WithContext(tenancy.WithTenantID(r.Context(), tenantID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTenant rejects requests whose context has no tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenancy.TenantIDFromContext(r.Context()); !ok {
			http.Error(w, "missing "+tenancy.Header+" header", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r)
	})
}
