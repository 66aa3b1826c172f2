package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking-platform/internal/availability"
	"github.com/wolfman30/salon-booking-platform/internal/bookings"
	"github.com/wolfman30/salon-booking-platform/internal/catalog"
	appconfig "github.com/wolfman30/salon-booking-platform/internal/config"
	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	"github.com/wolfman30/salon-booking-platform/internal/events"
	"github.com/wolfman30/salon-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/internal/staff"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

// Infra is the shared connections a binary opened. Any of them may be nil.
type Infra struct {
	Redis      *redis.Client
	Pool       *pgxpool.Pool
	SQL        *sql.DB
	Registerer prometheus.Registerer
}

// Conversation is the assembled booking engine and the stores around it.
type Conversation struct {
	Engine   *conversation.Engine
	Bookings *bookings.Service
	Profiles salon.ProfileStore
	Outbox   events.Source
}

// BuildConversation wires the engine. Without Postgres it runs on in-memory
// stores seeded with a demo salon; without Redis sessions live in process.
func BuildConversation(ctx context.Context, cfg *appconfig.Config, infra Infra, logger *logging.Logger) (*Conversation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	profiles := BuildProfileStore(infra.Redis)

	var (
		offerings catalog.Store
		directory staff.Directory
		repo      bookings.Repository
		outbox    events.Source
		processed conversation.ProcessedStore
	)
	if infra.Pool != nil {
		offerings = catalog.NewPostgresStore(infra.Pool)
		if infra.Redis != nil && cfg.CatalogCacheTTL > 0 {
			offerings = catalog.NewCachedStore(offerings, infra.Redis, cfg.CatalogCacheTTL, logger)
		}
		directory = staff.NewPostgresDirectory(infra.Pool)
		repo = bookings.NewPostgresRepository(infra.Pool)
		outbox = events.NewOutboxStore(infra.Pool)
		processed = events.NewProcessedStore(infra.Pool)
		logger.Info("booking stores on postgres", "catalog_cache", infra.Redis != nil && cfg.CatalogCacheTTL > 0)
	} else {
		memOutbox := events.NewMemoryOutbox()
		memCatalog := catalog.NewMemoryStore()
		memStaff := staff.NewMemoryDirectory()
		if err := seedDemoSalon(ctx, cfg.DemoTenantID, profiles, memCatalog, memStaff); err != nil {
			return nil, err
		}
		offerings = memCatalog
		directory = memStaff
		repo = bookings.NewMemoryRepository(memOutbox)
		outbox = memOutbox
		processed = events.NewMemoryProcessedStore()
		logger.Warn("no DATABASE_URL; using in-memory booking stores", "demo_tenant", cfg.DemoTenantID)
	}

	service := bookings.NewService(repo, logger)
	resolver := availability.NewResolver(offerings, directory, profiles, repo, logger,
		availability.WithMatcher(staff.NewMatcher(repo, logger)))

	var backend conversation.SessionStore
	if infra.Redis != nil {
		backend = conversation.NewRedisSessionStore(infra.Redis, cfg.SessionInactivityWindow)
	} else {
		backend = conversation.NewMemorySessionStore()
	}
	states := conversation.NewStateStore(backend, cfg.SessionInactivityWindow, logger)

	var locker conversation.Locker = conversation.NewKeyedMutex()
	if cfg.DistributedLocks && infra.Redis != nil {
		locker = conversation.NewRedisLocker(infra.Redis, cfg.SessionLockTTL, cfg.SessionLockWait)
	}

	opts := []conversation.EngineOption{
		conversation.WithProcessedStore(processed),
		conversation.WithEngineConfig(conversation.EngineConfig{
			MaxSlotsShown:    cfg.MaxSlotsShown,
			DateOptionsShown: cfg.DateOptionsShown,
			DateOrder:        conversation.ParseDateOrder(cfg.NumericDateOrder),
			BookingNote:      cfg.BookingNote,
		}),
	}
	if infra.SQL != nil {
		opts = append(opts, conversation.WithTranscript(conversation.NewTranscriptStore(infra.SQL)))
	}
	if infra.Registerer != nil {
		opts = append(opts, conversation.WithFlowMetrics(metrics.NewBookingFlowMetrics(infra.Registerer)))
	}

	engine := conversation.NewEngine(catalog.NewLookup(offerings), resolver, service, profiles, states, locker, logger, opts...)
	logger.Info("conversation engine ready",
		"sessions", fmt.Sprintf("%T", backend),
		"locker", fmt.Sprintf("%T", locker),
		"inactivity_window", cfg.SessionInactivityWindow.String(),
	)
	return &Conversation{
		Engine:   engine,
		Bookings: service,
		Profiles: profiles,
		Outbox:   outbox,
	}, nil
}

// seedDemoSalon fills the in-memory catalog so a local run has something to book.
func seedDemoSalon(ctx context.Context, tenantID string, profiles salon.ProfileStore, offerings *catalog.MemoryStore, directory *staff.MemoryDirectory) error {
	if tenantID == "" {
		return nil
	}
	profile, err := profiles.Get(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("bootstrap: load demo profile: %w", err)
	}
	if profile.Name == salon.DefaultProfile(tenantID).Name {
		profile.Name = "Glow Demo Salon"
		if err := profiles.Set(ctx, profile); err != nil {
			return fmt.Errorf("bootstrap: seed demo profile: %w", err)
		}
	}
	for i, o := range []catalog.Offering{
		{Name: "Haircut", Category: "hair", BasePriceMinor: 50000, DurationMinutes: 45},
		{Name: "Hair Colour", Category: "hair", BasePriceMinor: 250000, DurationMinutes: 120},
		{Name: "Manicure", Category: "nails", BasePriceMinor: 40000, DurationMinutes: 30},
		{Name: "Pedicure", Category: "nails", BasePriceMinor: 60000, DurationMinutes: 45},
		{Name: "Facial Cleanup", Category: "skin", BasePriceMinor: 120000, DurationMinutes: 60},
	} {
		o.TenantID = tenantID
		o.Currency = "INR"
		o.IsActive = true
		o.Position = i + 1
		offerings.Put(o)
	}
	for _, m := range []staff.Member{
		{Name: "Asha", Role: "stylist", Specializations: []string{"hair"}},
		{Name: "Ravi", Role: "stylist", Specializations: []string{"hair"}},
		{Name: "Meera", Role: "beautician", Specializations: []string{"nails", "skin"}},
	} {
		m.TenantID = tenantID
		m.IsActive = true
		directory.Put(m)
	}
	return nil
}
