package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/salon-booking-platform/internal/bookings"
	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	httpmiddleware "github.com/wolfman30/salon-booking-platform/internal/http/middleware"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	BookingsHandler     *bookings.Handler
	SalonHandler        *salon.Handler
	MetricsHandler      http.Handler
	AdminAuthSecret     string
	CORSAllowedOrigins  []string

	// Per-phone limit on inbound chat messages. Zero disables it.
	InboundRatePerSecond float64
	InboundRateBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.Tenant)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.SalonHandler != nil {
		r.Mount("/admin/salons", cfg.SalonHandler.Routes(httpmiddleware.AdminJWT(cfg.AdminAuthSecret)))
	}

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.ConversationHandler != nil {
			v1.Route("/conversations", func(c chi.Router) {
				c.Group(func(inbound chi.Router) {
					if cfg.InboundRatePerSecond > 0 {
						limiter := httpmiddleware.NewRateLimiter(cfg.InboundRatePerSecond, cfg.InboundRateBurst)
						inbound.Use(httpmiddleware.RateLimit(limiter, httpmiddleware.PhoneKey))
					}
					inbound.Post("/messages", cfg.ConversationHandler.Message)
					inbound.Post("/messages:async", cfg.ConversationHandler.MessageAsync)
				})
				c.With(httpmiddleware.RequireTenant).Get("/jobs/{jobID}", cfg.ConversationHandler.JobStatus)
			})
		}
		if cfg.BookingsHandler != nil {
			v1.With(httpmiddleware.RequireTenant).Get("/bookings/{bookingID}", cfg.BookingsHandler.GetBooking)
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
