package salon

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// Handler provides HTTP endpoints for salon profile management.
type Handler struct {
	store  ProfileStore
	logger *logging.Logger
}

// NewHandler creates a new salon profile HTTP handler.
func NewHandler(store ProfileStore, logger *logging.Logger) *Handler {
	if store == nil {
		panic("salon: profile store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes returns the salon admin routes. mw runs after {tenantID} is resolved.
func (h *Handler) Routes(mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/{tenantID}", func(r chi.Router) {
		r.Use(mw...)
		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.UpdateProfile)
	})
	return r
}

// GetProfile returns the salon profile for a tenant.
// GET /admin/salons/{tenantID}/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		http.Error(w, `{"error": "tenant_id required"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.store.Get(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to get salon profile", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, tenantID, profile)
}

// UpdateProfileRequest is the request body for a partial profile update.
type UpdateProfileRequest struct {
	Name                string             `json:"name,omitempty"`
	Timezone            string             `json:"timezone,omitempty"`
	Currency            string             `json:"currency,omitempty"`
	BusinessHours       *BusinessHours     `json:"business_hours,omitempty"`
	SlotIntervalMinutes *int               `json:"slot_interval_minutes,omitempty"`
	BookingHorizonDays  *int               `json:"booking_horizon_days,omitempty"`
	Notifications       *NotificationPrefs `json:"notifications,omitempty"`
}

// UpdateProfile creates or updates the salon profile for a tenant.
// PUT /admin/salons/{tenantID}/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		http.Error(w, `{"error": "tenant_id required"}`, http.StatusBadRequest)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, `{"error": "unknown timezone"}`, http.StatusBadRequest)
			return
		}
	}
	if req.SlotIntervalMinutes != nil && (*req.SlotIntervalMinutes < 5 || *req.SlotIntervalMinutes > 240) {
		http.Error(w, `{"error": "slot_interval_minutes must be between 5 and 240"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.store.Get(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to get salon profile", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	if req.Name != "" {
		profile.Name = req.Name
	}
	if req.Timezone != "" {
		profile.Timezone = req.Timezone
	}
	if req.Currency != "" {
		profile.Currency = req.Currency
	}
	if req.BusinessHours != nil {
		profile.BusinessHours = *req.BusinessHours
	}
	if req.SlotIntervalMinutes != nil {
		profile.SlotIntervalMinutes = *req.SlotIntervalMinutes
	}
	if req.BookingHorizonDays != nil {
		profile.BookingHorizonDays = *req.BookingHorizonDays
	}
	if req.Notifications != nil {
		profile.Notifications = *req.Notifications
	}

	if err := h.store.Set(r.Context(), profile); err != nil {
		h.logger.Error("failed to save salon profile", "tenant_id", tenantID, "error", err)
		http.Error(w, `{"error": "failed to save profile"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("salon profile updated", "tenant_id", tenantID, "name", profile.Name)
	h.writeJSON(w, tenantID, profile)
}

func (h *Handler) writeJSON(w http.ResponseWriter, tenantID string, profile *Profile) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(profile); err != nil {
		h.logger.Error("failed to encode salon profile", "tenant_id", tenantID, "error", err)
	}
}
