package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SESSION_INACTIVITY_WINDOW", "")
	t.Setenv("BOOKING_NOTE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.SessionInactivityWindow != 24*time.Hour {
		t.Fatalf("expected 24h inactivity window, got %s", cfg.SessionInactivityWindow)
	}
	if cfg.BookingNote != "booked via chat" {
		t.Fatalf("expected default booking note, got %q", cfg.BookingNote)
	}
	if cfg.NumericDateOrder != "dmy" {
		t.Fatalf("expected dmy date order, got %s", cfg.NumericDateOrder)
	}
	if cfg.CORSOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSOrigins)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SESSION_INACTIVITY_WINDOW", "2h")
	t.Setenv("DISTRIBUTED_LOCKS", "true")
	t.Setenv("MAX_SLOTS_SHOWN", "6")
	t.Setenv("NUMERIC_DATE_ORDER", "MDY")
	t.Setenv("INBOUND_RATE_PER_SECOND", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REMINDER_LEAD_TIME", "3h")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.SessionInactivityWindow != 2*time.Hour {
		t.Fatalf("expected inactivity override, got %s", cfg.SessionInactivityWindow)
	}
	if !cfg.DistributedLocks {
		t.Fatalf("expected distributed locks enabled")
	}
	if cfg.MaxSlotsShown != 6 {
		t.Fatalf("expected 6 slots, got %d", cfg.MaxSlotsShown)
	}
	if cfg.NumericDateOrder != "mdy" {
		t.Fatalf("expected mdy, got %s", cfg.NumericDateOrder)
	}
	if cfg.InboundRatePerSecond != 2.5 {
		t.Fatalf("expected rate 2.5, got %v", cfg.InboundRatePerSecond)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
	if cfg.ReminderLeadTime != 3*time.Hour {
		t.Fatalf("expected reminder lead override, got %s", cfg.ReminderLeadTime)
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("SESSION_LOCK_TTL", "soon")
	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected default worker count, got %d", cfg.WorkerCount)
	}
	if cfg.SessionLockTTL != 30*time.Second {
		t.Fatalf("expected default lock ttl, got %s", cfg.SessionLockTTL)
	}
}
